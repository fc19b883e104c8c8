package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a classified failure condition.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"   // 400
	ErrInvalidIndex    ErrorCode = "INVALID_INDEX"     // 400
	ErrAuthMissing     ErrorCode = "AUTH_MISSING"      // 401
	ErrPathOutsideRoot ErrorCode = "PATH_OUTSIDE_ROOT" // 403
	ErrCacheMiss       ErrorCode = "CACHE_MISS"        // 404
	ErrQuotaExhausted  ErrorCode = "QUOTA_EXHAUSTED"   // 429
	ErrInternal        ErrorCode = "INTERNAL"          // 500
	ErrExecutionFailed ErrorCode = "EXECUTION_FAILED"  // 502
	ErrGeminiNotFound  ErrorCode = "GEMINI_NOT_FOUND"  // 503
)

// ProxyError represents a structured error with code, status, and a
// one-line remediation hint. Raw subprocess stderr is never merged into
// Message; it is carried redacted under Details["stderr"].
type ProxyError struct {
	Code    ErrorCode
	Status  int
	Message string
	Hint    string
	Details map[string]any
}

// Error implements the error interface.
func (e *ProxyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ProxyError {
	return &ProxyError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
		Hint:    "check the tool arguments against the tool schema",
	}
}

// NewInvalidIndex creates a 400 error for a chunk index outside [1, total].
func NewInvalidIndex(key string, index, total int) *ProxyError {
	return &ProxyError{
		Code:    ErrInvalidIndex,
		Status:  400,
		Message: fmt.Sprintf("chunk index %d out of range for key %s", index, key),
		Hint:    fmt.Sprintf("valid indexes are 1 through %d", total),
		Details: map[string]any{"key": key, "index": index, "total_chunks": total},
	}
}

// NewAuthMissing creates a 401 error for an unauthenticated Gemini CLI.
func NewAuthMissing(stderr string) *ProxyError {
	return &ProxyError{
		Code:    ErrAuthMissing,
		Status:  401,
		Message: "the gemini CLI is not authenticated",
		Hint:    "run 'gemini' once interactively to sign in, or set GEMINI_API_KEY",
		Details: stderrDetails(stderr),
	}
}

// NewPathOutsideRoot creates a 403 error for a path that resolves outside
// the trusted root. The path guard itself reports verdicts as data; this
// error exists for callers that refuse to proceed on a failed verdict.
func NewPathOutsideRoot(path, reason string) *ProxyError {
	return &ProxyError{
		Code:    ErrPathOutsideRoot,
		Status:  403,
		Message: fmt.Sprintf("path not allowed: %s", path),
		Hint:    "reference only paths inside the trusted root directory",
		Details: map[string]any{"path": path, "reason": reason},
	}
}

// NewCacheMiss creates a 404 error for an unknown or expired chunk key.
func NewCacheMiss(key string) *ProxyError {
	return &ProxyError{
		Code:    ErrCacheMiss,
		Status:  404,
		Message: fmt.Sprintf("no cached response for key %s", key),
		Hint:    "chunk keys expire after the cache TTL; rerun the research request",
		Details: map[string]any{"key": key},
	}
}

// NewQuotaExhausted creates a 429 error after every fallback tier failed
// with a quota signature.
func NewQuotaExhausted(models []string, stderr string) *ProxyError {
	d := stderrDetails(stderr)
	if d == nil {
		d = map[string]any{}
	}
	d["models_tried"] = models
	return &ProxyError{
		Code:    ErrQuotaExhausted,
		Status:  429,
		Message: fmt.Sprintf("all models exhausted their quota (%s)", strings.Join(models, ", ")),
		Hint:    "wait for the rate limit window to reset, or retry in \"fast\" mode",
		Details: d,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ProxyError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ProxyError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Hint:    "this is a bug in better-gemini-mcp; please report it",
	}
}

// NewExecutionFailed creates a 502 error for a non-quota, non-auth engine
// failure (nonzero exit or unexpected spawn error).
func NewExecutionFailed(exitCode int, stderr string) *ProxyError {
	d := stderrDetails(stderr)
	if d == nil {
		d = map[string]any{}
	}
	d["exit_code"] = exitCode
	return &ProxyError{
		Code:    ErrExecutionFailed,
		Status:  502,
		Message: fmt.Sprintf("gemini exited with code %d", exitCode),
		Hint:    "inspect details.stderr for the engine's own diagnostics",
		Details: d,
	}
}

// NewExecutionTimeout creates a 502 error for a tier that hit the hard timeout.
func NewExecutionTimeout(timeout string) *ProxyError {
	return &ProxyError{
		Code:    ErrExecutionFailed,
		Status:  502,
		Message: fmt.Sprintf("gemini did not complete within %s", timeout),
		Hint:    "raise call_timeout_seconds in config, or narrow the request",
		Details: map[string]any{"timeout": timeout},
	}
}

// NewGeminiNotFound creates a 503 error when the engine binary is absent.
func NewGeminiNotFound(binary string) *ProxyError {
	return &ProxyError{
		Code:    ErrGeminiNotFound,
		Status:  503,
		Message: fmt.Sprintf("%s binary not found on PATH", binary),
		Hint:    "install the Gemini CLI: npm install -g @google/gemini-cli",
		Details: map[string]any{"binary": binary},
	}
}

// Is checks if an error is a ProxyError with the given code.
func Is(err error, code ErrorCode) bool {
	if pErr, ok := err.(*ProxyError); ok {
		return pErr.Code == code
	}
	return false
}

// stderrDetails wraps a redacted, size-capped stderr excerpt for the
// Details side channel. Returns nil for empty stderr.
func stderrDetails(stderr string) map[string]any {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return nil
	}
	return map[string]any{"stderr": Redact(Excerpt(stderr, 2000))}
}

// Excerpt truncates s to at most n bytes, appending a marker when cut.
func Excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + " [truncated]"
}
