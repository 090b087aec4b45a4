// Package locale classifies README variants into the two locales the site
// publishes, using the filename-suffix convention of the source project.
package locale

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Locale is one of the two published content languages.
type Locale int

const (
	Default Locale = iota
	Secondary
)

// All lists the locales in publication order.
var All = []Locale{Default, Secondary}

func (l Locale) String() string {
	if l == Secondary {
		return "secondary"
	}
	return "default"
}

// ErrUnknownSuffix flags a README whose suffix names neither locale. Such a
// file is reported and skipped rather than guessed.
var ErrUnknownSuffix = errors.New("unrecognized locale suffix")

// Codes maps each locale to the code used in output filenames (en, zh-CN).
type Codes struct {
	Default   string
	Secondary string
	// Marker is the filename suffix selecting the secondary locale, e.g. "_zh".
	Marker string
}

// Code returns the output code for l.
func (c Codes) Code(l Locale) string {
	if l == Secondary {
		return c.Secondary
	}
	return c.Default
}

// Classify maps a README filename to its locale:
//
//	README.md, README.mdx         -> Default
//	README<marker>.md(x)          -> Secondary
//	README<anything else>.md(x)   -> ErrUnknownSuffix
//
// The stem comparison ignores case, the marker comparison does not.
func Classify(fileName, marker string) (Locale, error) {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if len(stem) < len("README") || !strings.EqualFold(stem[:len("README")], "README") {
		return Default, fmt.Errorf("%w: %q is not a README", ErrUnknownSuffix, fileName)
	}
	switch suffix := stem[len("README"):]; suffix {
	case "":
		return Default, nil
	case marker:
		return Secondary, nil
	default:
		return Default, fmt.Errorf("%w: %q in %q", ErrUnknownSuffix, suffix, fileName)
	}
}
