// Package urlnorm centralizes domain and URL normalization so the ingest
// path and the delete-by-source path cannot drift apart in their matching
// semantics.
package urlnorm

import (
	"net/url"
	"strings"
)

// Domain normalizes a hostname or URL down to a comparable domain string:
// lowercase, no scheme, no port, no path, no leading "www." or dot.
func Domain(hostOrURL string) string {
	s := strings.TrimSpace(strings.ToLower(hostOrURL))
	if s == "" {
		return ""
	}

	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil && u.Hostname() != "" {
			s = u.Hostname()
		}
	} else if i := strings.IndexAny(s, "/:"); i >= 0 {
		// bare host with port or path
		s = s[:i]
	}

	s = strings.TrimPrefix(s, ".")
	s = strings.TrimPrefix(s, "www.")
	return s
}

// MatchesDomain reports whether candidate equals target or is a subdomain
// of it. Both sides are normalized first.
func MatchesDomain(candidate, target string) bool {
	c := Domain(candidate)
	t := Domain(target)
	if c == "" || t == "" {
		return false
	}
	return c == t || strings.HasSuffix(c, "."+t)
}

// TrimURL strips the trailing slash so exact-URL comparisons treat
// "https://example.com/a" and "https://example.com/a/" as the same source.
func TrimURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// SameURL compares two URLs for exact-source equality.
func SameURL(a, b string) bool {
	return TrimURL(a) != "" && TrimURL(a) == TrimURL(b)
}
