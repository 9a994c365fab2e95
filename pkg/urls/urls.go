// Package urls provides utility functions for working with URLs.
package urls

import (
	"net/url"
	"strings"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// IsURLValid checks that raw is an absolute http(s) URL with a host.
func IsURLValid(raw string) bool {
	u, err := url.Parse(raw)

	return err == nil && u.Host != "" && (u.Scheme == schemeHTTP || u.Scheme == schemeHTTPS)
}

// FixURL makes pasted links usable: a missing or non-http scheme becomes https.
// Example: youtube.com/watch?v=x => https://youtube.com/watch?v=x
func FixURL(raw string) string {
	raw = strings.TrimSpace(raw)

	switch {
	case raw == "":
		return raw
	case strings.HasPrefix(raw, "//"):
		return schemeHTTPS + ":" + raw
	case !strings.Contains(raw, "://"):
		return schemeHTTPS + "://" + raw
	}

	u, err := url.Parse(raw)
	if err == nil && u.Scheme != schemeHTTP && u.Scheme != schemeHTTPS {
		u.Scheme = schemeHTTPS

		return u.String()
	}

	return raw
}

// Normalize trims spaces, parses and returns the URL in string format.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	return u.String()
}
