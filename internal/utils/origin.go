package utils

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// SameOrigin reports whether target may be shortened by a caller whose own origin is origin.
// Root-relative paths are always accepted; absolute URLs need an exact scheme://host match.
func SameOrigin(origin, target string) bool {
	if strings.HasPrefix(target, "/") {
		return IsRootRelative(target)
	}

	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}

	return u.Scheme+"://"+u.Host == origin
}

// IsRootRelative reports whether target is a path on the current host. Browsers treat "//host" and
// "/\host" as protocol-relative URLs, so those are not root-relative.
func IsRootRelative(target string) bool {
	if !strings.HasPrefix(target, "/") {
		return false
	}
	return len(target) == 1 || target[1] != '/' && target[1] != '\\'
}

// NormalizePath strips scheme, host and fragment from target, keeping path and query as written.
// Root-relative input is returned unchanged.
func NormalizePath(target string) string {
	if strings.HasPrefix(target, "/") {
		return target
	}

	u, err := url.Parse(target)
	if err != nil {
		return "/"
	}

	// Work on the raw text so escapes are neither added nor decoded
	raw, _, _ := strings.Cut(target, "#")
	if u.Scheme != "" {
		raw = raw[len(u.Scheme)+1:]
	}
	if strings.HasPrefix(raw, "//") {
		raw = raw[2:]
		if i := strings.IndexAny(raw, "/?"); i >= 0 {
			raw = raw[i:]
		} else {
			raw = ""
		}
	}

	path, query, _ := strings.Cut(raw, "?")
	if path == "" {
		path = "/"
	}
	if query != "" {
		path += "?" + query
	}

	return path
}

// RequestOrigin returns scheme://host of an inbound request. X-Forwarded-Proto is honoured only
// when trustForwarded is set, since clients can forge it.
func RequestOrigin(r *http.Request, trustForwarded bool) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	if trustForwarded {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
		}
	}

	return scheme + "://" + r.Host
}

// OriginOf returns scheme://host of an absolute URL such as the configured base URL
func OriginOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q has no scheme or host", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
