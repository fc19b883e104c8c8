package chunk

import (
	"strings"
	"testing"
)

func TestSplit_SingleSegmentWhenSmall(t *testing.T) {
	for _, text := range []string{"", "short", strings.Repeat("a", 100)} {
		segs := Split(text, 100)
		if len(segs) != 1 {
			t.Fatalf("Split(%d bytes, 100) produced %d segments", len(text), len(segs))
		}
		s := segs[0]
		if s.Index != 1 || s.Total != 1 || s.Content != text {
			t.Errorf("segment = %+v", s)
		}
	}
}

// Scenario: 2500 bytes at a 1024 target, no newlines: exactly 3 segments
// reassembling the original.
func TestSplit_ExactCutsWithoutNewlines(t *testing.T) {
	text := strings.Repeat("A", 2500)
	segs := Split(text, 1024)
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	if len(segs[0].Content) != 1024 || len(segs[1].Content) != 1024 || len(segs[2].Content) != 452 {
		t.Errorf("segment sizes = %d, %d, %d", len(segs[0].Content), len(segs[1].Content), len(segs[2].Content))
	}
	if joined := join(segs); joined != text {
		t.Error("concatenation does not reproduce the original")
	}
}

func TestSplit_PrefersNewlineBoundary(t *testing.T) {
	// A newline 100 bytes before the 1000-byte cut point: the cut should
	// land just after it.
	text := strings.Repeat("x", 899) + "\n" + strings.Repeat("y", 600)
	segs := Split(text, 1000)
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if !strings.HasSuffix(segs[0].Content, "\n") {
		t.Error("first segment should end at the newline")
	}
	if len(segs[0].Content) != 900 {
		t.Errorf("first segment = %d bytes, want 900", len(segs[0].Content))
	}
}

func TestSplit_NewlineOutsideWindowIgnored(t *testing.T) {
	// Only newline is 600 bytes before the cut: outside the window, so
	// the cut is exact.
	text := strings.Repeat("x", 399) + "\n" + strings.Repeat("y", 1200)
	segs := Split(text, 1000)
	if len(segs[0].Content) != 1000 {
		t.Errorf("first segment = %d bytes, want exact 1000", len(segs[0].Content))
	}
}

func TestSplit_IndexingAndBackfill(t *testing.T) {
	segs := Split(strings.Repeat("z", 5000), 1000)
	for i, s := range segs {
		if s.Index != i+1 {
			t.Errorf("segment %d has Index %d", i, s.Index)
		}
		if s.Total != len(segs) {
			t.Errorf("segment %d has Total %d, want %d", i, s.Total, len(segs))
		}
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	texts := []string{
		strings.Repeat("line one\nline two is a bit longer\n", 500),
		strings.Repeat("no newlines at all ", 800),
		"tiny",
		strings.Repeat("\n", 3000),
	}
	targets := []int{1, 7, 100, 1024, 1 << 20}

	for _, text := range texts {
		for _, target := range targets {
			segs := Split(text, target)
			if join(segs) != text {
				t.Errorf("round trip failed for len=%d target=%d", len(text), target)
			}
			for _, s := range segs {
				if target >= newlineWindow && len(s.Content) > target {
					t.Errorf("segment exceeds target: %d > %d", len(s.Content), target)
				}
			}
			if len(text) <= target && len(segs) != 1 {
				t.Errorf("len=%d target=%d: want single segment, got %d", len(text), target, len(segs))
			}
		}
	}
}

func join(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Content)
	}
	return b.String()
}
