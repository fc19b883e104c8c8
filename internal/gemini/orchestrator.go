// Package gemini drives the Gemini CLI through a tiered model-fallback
// protocol and normalizes its output.
package gemini

import (
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/capyBearista/better-gemini-mcp/internal/config"
	"github.com/capyBearista/better-gemini-mcp/internal/errors"
	"github.com/capyBearista/better-gemini-mcp/internal/runner"
)

// RequestClass selects a fallback plan.
type RequestClass string

const (
	ClassFast RequestClass = "fast"
	ClassDeep RequestClass = "deep"
)

// safetyPreamble is prepended to every prompt, without exception. Paired
// with the absence of any write-enabling flag it keeps the engine
// strictly read-only.
const safetyPreamble = `You are running in read-only research mode. Answer the question by ` +
	`reading and analyzing the referenced files. Do not modify, create, or delete ` +
	`any files, do not run shell commands, and do not take any action beyond ` +
	`reading and reporting. End your answer with a "Files referenced:" list of ` +
	`the files you actually read.`

// Result is the normalized outcome of one orchestrated call.
type Result struct {
	Text            string   `json:"text"`
	FilesReferenced []string `json:"files_referenced,omitempty"`
	TokensUsed      int      `json:"tokens_used,omitempty"`
	APICalls        int      `json:"api_calls,omitempty"`
	Attempts        int      `json:"attempts"`
	LatencyMs       int64    `json:"latency_ms"`
	ModelUsed       string   `json:"model_used"`
	Structured      bool     `json:"structured"`
}

// Progress receives liveness information for one in-flight call. All
// progress state is scoped to the call that registered the observer;
// nothing is shared across concurrent calls.
type Progress interface {
	// Output receives each newly arrived stdout chunk, unmodified and
	// unthrottled. Rate limiting is the heartbeat's concern.
	Output(delta string)
	// Note receives discrete orchestration events, e.g. a fallback.
	Note(message string)
}

// RunFunc matches runner.Run; injectable for tests.
type RunFunc func(ctx context.Context, command string, args []string, opts runner.Options) (string, error)

// Orchestrator executes research prompts against the engine, walking the
// per-class tier plan on quota failures. It holds no per-call state and
// is safe for arbitrarily many concurrent Execute calls.
type Orchestrator struct {
	binary  string
	plans   map[RequestClass][]string
	timeout time.Duration
	workDir string

	run RunFunc
}

// New creates an orchestrator from configuration. workDir is the trusted
// root; the engine runs with it as working directory so relative @refs
// resolve inside it.
func New(cfg *config.Config, workDir string) *Orchestrator {
	return &Orchestrator{
		binary: cfg.GeminiBinary,
		plans: map[RequestClass][]string{
			ClassFast: cfg.FastModels,
			ClassDeep: cfg.DeepModels,
		},
		timeout: time.Duration(cfg.CallTimeoutSeconds) * time.Second,
		workDir: workDir,
		run:     runner.Run,
	}
}

// Execute runs prompt against the tier plan for class. Tiers are tried
// strictly in order; only a quota-pattern failure advances to the next
// tier, and every other failure propagates immediately as a classified
// error. progress may be nil.
func (o *Orchestrator) Execute(ctx context.Context, prompt string, class RequestClass, progress Progress) (*Result, error) {
	plan, ok := o.plans[class]
	if !ok || len(plan) == 0 {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown request class %q", class))
	}

	full := safetyPreamble + "\n\n" + prompt
	start := time.Now()

	var onOutput func(string)
	if progress != nil {
		onOutput = progress.Output
	}

	for i, model := range plan {
		stdout, err := o.run(ctx, o.binary, buildArgs(model, full), runner.Options{
			Timeout:  o.timeout,
			OnOutput: onOutput,
			Dir:      o.workDir,
		})
		if err == nil {
			return o.finish(stdout, model, i+1, start), nil
		}

		cerr, quota := o.classify(err, plan)
		if quota && i < len(plan)-1 {
			if progress != nil {
				progress.Note(fmt.Sprintf("model %s exhausted its quota, falling back to %s",
					tierName(model), tierName(plan[i+1])))
			}
			continue
		}
		return nil, cerr
	}

	// Unreachable: the last tier either succeeds or returns above.
	return nil, errors.NewInternal(stderrors.New("tier plan exhausted without a classified error"))
}

// finish normalizes a successful invocation.
func (o *Orchestrator) finish(stdout, model string, attempts int, start time.Time) *Result {
	parsed := parseOutput(stdout)

	used := model
	if model == config.ModelAuto || model == "" {
		// The engine picked; trust its own report when structured.
		if parsed.Model != "" {
			used = parsed.Model
		} else {
			used = config.ModelAuto
		}
	}

	return &Result{
		Text:            parsed.Text,
		FilesReferenced: extractFilesReferenced(parsed.Text),
		TokensUsed:      parsed.TokensUsed,
		APICalls:        parsed.APICalls,
		Attempts:        attempts,
		LatencyMs:       time.Since(start).Milliseconds(),
		ModelUsed:       used,
		Structured:      parsed.Kind == ParseStructured,
	}
}

// classify converts a runner failure into a ProxyError. The second
// return reports whether the failure carries a quota signature; the
// caller decides whether a further tier exists to absorb it.
func (o *Orchestrator) classify(err error, plan []string) (*errors.ProxyError, bool) {
	if stderrors.Is(err, exec.ErrNotFound) {
		return errors.NewGeminiNotFound(o.binary), false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		// A timeout carries no quota signature; it never falls back.
		return errors.NewExecutionTimeout(o.timeout.String()), false
	}

	var xe *runner.ExitError
	if stderrors.As(err, &xe) {
		switch {
		case isAuthFailure(xe.Stderr):
			return errors.NewAuthMissing(xe.Stderr), false
		case isQuotaFailure(xe.Stderr):
			return errors.NewQuotaExhausted(tierNames(plan), xe.Stderr), true
		default:
			return errors.NewExecutionFailed(xe.Code, xe.Stderr), false
		}
	}

	return errors.NewExecutionFailed(-1, err.Error()), false
}

// buildArgs assembles the engine argv for one tier. A tier of "auto"
// omits the model flag so the engine selects for itself. No flag that
// grants write or execute capability is ever emitted here.
func buildArgs(model, prompt string) []string {
	var args []string
	if model != "" && model != config.ModelAuto {
		args = append(args, "-m", model)
	}
	args = append(args, "-p", prompt, "--output-format", "json")
	return args
}

func tierName(model string) string {
	if model == "" || model == config.ModelAuto {
		return "auto-selected"
	}
	return model
}

func tierNames(plan []string) []string {
	out := make([]string, len(plan))
	for i, m := range plan {
		out[i] = tierName(m)
	}
	return out
}
