package gemini

import "strings"

// quotaSignatures are failure substrings classified as transient resource
// exhaustion. Only these warrant advancing to the next fallback tier.
var quotaSignatures = []string{
	"429",
	"resource_exhausted",
	"resource exhausted",
	"rate limit",
	"ratelimit",
	"too many requests",
	"quota",
	"capacity",
	"overloaded",
}

// authSignatures identify an installed but unauthenticated engine.
var authSignatures = []string{
	"unauthenticated",
	"not authenticated",
	"please sign in",
	"login required",
	"invalid api key",
	"api key not found",
	"status 401",
	"code: 401",
}

func isQuotaFailure(stderr string) bool {
	return containsAny(stderr, quotaSignatures)
}

func isAuthFailure(stderr string) bool {
	return containsAny(stderr, authSignatures)
}

func containsAny(s string, needles []string) bool {
	s = strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
