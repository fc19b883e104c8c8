package gemini

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// HeartbeatInterval is how often an in-flight call reports liveness.
const HeartbeatInterval = 25 * time.Second

// previewBytes bounds the output preview carried in a status message.
const previewBytes = 120

// Sink receives rendered status messages.
type Sink func(message string)

// Heartbeat implements Progress for one in-flight call: a repeating
// timer that, while the call runs, emits a bounded status message with a
// preview of the most recent output. Each call owns its own Heartbeat;
// two concurrent calls never share one.
type Heartbeat struct {
	label    string
	interval time.Duration
	sink     Sink
	started  time.Time

	mu     sync.Mutex
	latest string

	stop     chan struct{}
	stopOnce sync.Once
}

// NewHeartbeat creates a heartbeat that reports through sink. Call Start
// to begin ticking and Stop exactly once when the call completes.
func NewHeartbeat(label string, interval time.Duration, sink Sink) *Heartbeat {
	if interval <= 0 {
		interval = HeartbeatInterval
	}
	return &Heartbeat{
		label:    label,
		interval: interval,
		sink:     sink,
		started:  time.Now(),
		stop:     make(chan struct{}),
	}
}

// Output records the most recent stdout delta for the next tick's
// preview. It never emits on its own.
func (h *Heartbeat) Output(delta string) {
	h.mu.Lock()
	h.latest = delta
	h.mu.Unlock()
}

// Note forwards a discrete event (e.g. a fallback) immediately,
// bypassing the tick schedule.
func (h *Heartbeat) Note(message string) {
	h.sink(fmt.Sprintf("%s: %s", h.label, message))
}

// Start launches the repeating timer.
func (h *Heartbeat) Start() {
	go func() {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				h.sink(h.status())
			}
		}
	}()
}

// Stop cancels the timer unconditionally and emits one final status
// synchronously. Safe to call more than once; only the first emits.
func (h *Heartbeat) Stop(outcome string) {
	h.stopOnce.Do(func() {
		close(h.stop)
		h.sink(fmt.Sprintf("%s: %s after %s", h.label, outcome, elapsed(h.started)))
	})
}

func (h *Heartbeat) status() string {
	h.mu.Lock()
	preview := tail(h.latest, previewBytes)
	h.mu.Unlock()

	msg := fmt.Sprintf("%s: still working (%s elapsed)", h.label, elapsed(h.started))
	if preview != "" {
		msg += " … " + preview
	}
	return msg
}

// tail returns the last n bytes of s, collapsed onto one line.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return strings.Join(strings.Fields(s), " ")
}

func elapsed(since time.Time) string {
	return time.Since(since).Round(time.Second).String()
}
