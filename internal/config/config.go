package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ModelAuto is the sentinel tier value that lets the Gemini CLI pick the
// model itself (the model flag is omitted from the invocation).
const ModelAuto = "auto"

// Config holds application configuration.
type Config struct {
	// TrustedRoot is the single absolute directory outside of which no
	// path reference may resolve. Empty means the process working
	// directory at startup.
	TrustedRoot string `json:"trusted_root,omitempty"`

	// GeminiBinary is the engine executable name or path. Default "gemini".
	GeminiBinary string `json:"gemini_binary,omitempty"`

	// ChunkSizeBytes is the target size for response chunking.
	ChunkSizeBytes int `json:"chunk_size_bytes,omitempty"`

	// ChunkTTLMinutes bounds the lifetime of a cached chunk bundle.
	ChunkTTLMinutes int `json:"chunk_ttl_minutes,omitempty"`

	// CallTimeoutSeconds is the hard timeout for a single tier attempt.
	// 0 disables the timeout.
	CallTimeoutSeconds int `json:"call_timeout_seconds,omitempty"`

	// FastModels and DeepModels are the ordered fallback plans per
	// request class. The last entry may be "auto" to let the engine
	// pick. Overriding replaces the whole plan, it does not merge.
	FastModels []string `json:"fast_models,omitempty"`
	DeepModels []string `json:"deep_models,omitempty"`

	// WebPort, when nonzero, serves the bundle viewer on localhost
	// alongside the MCP server. The viewer shares the in-process cache,
	// so it is only available in server mode.
	WebPort int `json:"web_port,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from
	// registration. Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		GeminiBinary:       "gemini",
		ChunkSizeBytes:     20000,
		ChunkTTLMinutes:    60,
		CallTimeoutSeconds: 600,
		FastModels:         []string{"gemini-2.5-flash", "gemini-2.5-flash-lite", ModelAuto},
		DeepModels:         []string{"gemini-2.5-pro", "gemini-2.5-flash", ModelAuto},
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of
// ~/.better-gemini-mcp.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs. Overlay values take precedence
// for scalars; model plans replace wholesale; DisabledTools is merged and
// deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.TrustedRoot = overlay.TrustedRoot
	if result.TrustedRoot == "" {
		result.TrustedRoot = base.TrustedRoot
	}

	result.GeminiBinary = overlay.GeminiBinary
	if result.GeminiBinary == "" {
		result.GeminiBinary = base.GeminiBinary
	}

	result.ChunkSizeBytes = overlay.ChunkSizeBytes
	if result.ChunkSizeBytes == 0 {
		result.ChunkSizeBytes = base.ChunkSizeBytes
	}

	result.ChunkTTLMinutes = overlay.ChunkTTLMinutes
	if result.ChunkTTLMinutes == 0 {
		result.ChunkTTLMinutes = base.ChunkTTLMinutes
	}

	result.CallTimeoutSeconds = overlay.CallTimeoutSeconds
	if result.CallTimeoutSeconds == 0 {
		result.CallTimeoutSeconds = base.CallTimeoutSeconds
	}

	result.WebPort = overlay.WebPort
	if result.WebPort == 0 {
		result.WebPort = base.WebPort
	}

	// A tier plan is an ordered whole; merging two plans would scramble
	// the fallback order.
	result.FastModels = overlay.FastModels
	if len(result.FastModels) == 0 {
		result.FastModels = base.FastModels
	}
	result.DeepModels = overlay.DeepModels
	if len(result.DeepModels) == 0 {
		result.DeepModels = base.DeepModels
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// ResolveRoot returns the trusted root as an absolute path, falling back
// to the process working directory. Called once at startup; the result
// is immutable for the process lifetime.
func (c *Config) ResolveRoot() (string, error) {
	root := c.TrustedRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
