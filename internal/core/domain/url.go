package domain

import (
	"net/url"
	"strings"
)

// SamePage reports whether two page references point at the same target,
// tolerating one side being absolute ("https://site.example/songs/a") and
// the other relative ("/songs/a"). Unparseable references never match.
func SamePage(a, b string) bool {
	pa, okA := normalizePagePath(a)
	pb, okB := normalizePagePath(b)
	if !okA || !okB {
		return false
	}
	return pa == pb
}

func normalizePagePath(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}

	p := u.EscapedPath()
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	// Treat "/songs/a" and "/songs/a/" as the same page.
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p, true
}
