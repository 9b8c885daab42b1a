// Package pathutil maps request paths onto route templates for metric labels
// and span names.
package pathutil

import (
	"regexp"
	"strings"
)

// PathPattern represents a regex pattern and its corresponding normalized template.
type PathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

// pathPatterns defines the list of patterns for dynamic routes.
// Patterns are evaluated in order from most specific to least specific.
var pathPatterns = []*PathPattern{
	// Per-tenant callback URL; the key segment is a secret
	{Pattern: regexp.MustCompile(`^/send/[^/]+$`), Template: "/send/:key"},
}

// staticRoutes lists the fixed routes served by the API.
var staticRoutes = []string{
	"/send",
	"/login",
	"/callback",
	"/user",
	"/user/reset_key",
	"/wechat",
	"/health",
	"/ready",
	"/live",
	"/metrics",
}

// NormalizePath normalizes dynamic URL paths to prevent metrics label cardinality
// explosion and to keep tenant keys out of metrics and traces.
//
// Examples:
//
//	NormalizePath("/send/3yZe7d2Vqtz")      // "/send/:key"
//	NormalizePath("/send/3yZe7d2Vqtz/")     // "/send/:key"
//	NormalizePath("/user/reset_key")        // "/user/reset_key" (unchanged)
//	NormalizePath("/health")                // "/health" (unchanged)
//	NormalizePath("/unknown/path/123")      // "/unknown/path/123" (no match, return original)
//
// Query parameters are stripped:
//
//	NormalizePath("/send/3yZe7d2Vqtz?text=hi")   // "/send/:key"
func NormalizePath(path string) string {
	// Strip query parameters if present
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}

	// Strip trailing slash if present (except for root path)
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}

	return path
}

// GetExpectedCardinality returns the expected number of unique path labels
// after normalization for the routes the API serves.
func GetExpectedCardinality() int {
	return len(pathPatterns) + len(staticRoutes)
}
