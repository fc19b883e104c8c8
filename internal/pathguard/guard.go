// Package pathguard validates path references against a single trusted
// root directory. It never returns errors: a disallowed path is reported
// in the verdict, and the caller decides whether to refuse.
package pathguard

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Verdict is the outcome of validating one path reference.
type Verdict struct {
	Input        string `json:"input"`
	ResolvedPath string `json:"resolved_path"`
	Exists       bool   `json:"exists"`
	Allowed      bool   `json:"allowed"`
	Reason       string `json:"reason,omitempty"`
}

// BatchResult is the outcome of validating every path reference embedded
// in a block of free text.
type BatchResult struct {
	AllValid bool      `json:"all_valid"`
	Checked  int       `json:"checked"`
	Invalid  []Verdict `json:"invalid,omitempty"`
}

const (
	reasonTraversal   = "path contains parent-traversal (..)"
	reasonOutsideRoot = "path resolves outside the trusted root"
	reasonNotExist    = "does not exist"
)

// refPattern matches @path references in free text: an @ marker followed
// by a contiguous run of path characters. Quotes and whitespace end the run.
var refPattern = regexp.MustCompile(`@([^\s"'` + "`" + `@]+)`)

// Validate resolves input against trustedRoot and reports whether the
// normalized absolute path stays at or below the root. trustedRoot must
// be absolute and cleaned (config.ResolveRoot guarantees this).
//
// Only a stat is performed; nothing is opened. A disallowed verdict is
// data, not an error.
func Validate(input, trustedRoot string) Verdict {
	v := Verdict{Input: input}

	resolved := input
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(trustedRoot, resolved)
	}
	resolved = filepath.Clean(resolved)
	v.ResolvedPath = resolved

	// The separator suffix is mandatory: a bare prefix test would let
	// /a/project-evil slip past a root of /a/project.
	root := filepath.Clean(trustedRoot)
	v.Allowed = resolved == root || strings.HasPrefix(resolved, root+string(filepath.Separator))

	if !v.Allowed {
		if containsTraversal(input) {
			v.Reason = reasonTraversal
		} else {
			v.Reason = reasonOutsideRoot
		}
		return v
	}

	if _, err := os.Stat(resolved); err != nil {
		v.Exists = false
		v.Reason = reasonNotExist
	} else {
		v.Exists = true
	}
	return v
}

// ValidateAll extracts every @path reference in text and validates each
// against trustedRoot. AllValid is true iff every extracted reference is
// allowed; existence does not affect validity here.
func ValidateAll(text, trustedRoot string) BatchResult {
	result := BatchResult{AllValid: true}
	for _, m := range refPattern.FindAllStringSubmatch(text, -1) {
		ref := strings.TrimRight(m[1], ".,;:)?!")
		if ref == "" {
			continue
		}
		result.Checked++
		v := Validate(ref, trustedRoot)
		if !v.Allowed {
			result.AllValid = false
			result.Invalid = append(result.Invalid, v)
		}
	}
	return result
}

// containsTraversal checks if the raw input contains a ".." component.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	// Also check forward slashes on all platforms (e.g., user input)
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}
