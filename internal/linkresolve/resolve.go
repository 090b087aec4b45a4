// Package linkresolve resolves relative Markdown link targets against the
// source-repository URL of the page they came from.
package linkresolve

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrAmbiguousLink is returned when a target or base cannot be parsed.
var ErrAmbiguousLink = errors.New("link cannot be resolved against base")

var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)

// IsAbsolute reports whether ref starts with a URL scheme.
func IsAbsolute(ref string) bool {
	return schemePattern.MatchString(ref)
}

// Resolve resolves ref against base using RFC 3986 reference resolution.
// base names a directory: "tree/main/examples/ex1" resolves "../x" to
// "tree/main/examples/x". Absolute refs are returned unchanged.
func Resolve(base, ref string) (string, error) {
	if IsAbsolute(ref) {
		return ref, nil
	}

	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return "", fmt.Errorf("%w: base %q", ErrAmbiguousLink, base)
	}
	if !strings.HasSuffix(b.Path, "/") {
		b.Path += "/"
		if b.RawPath != "" {
			b.RawPath += "/"
		}
	}

	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrAmbiguousLink, ref, err)
	}
	return b.ResolveReference(r).String(), nil
}
