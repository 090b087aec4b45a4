// Package examples turns the localized READMEs of each example directory
// into cookbook pages.
package examples

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/docsite/internal/fsutil"
	"git.home.luguber.info/inful/docsite/internal/locale"
)

// ReadmePattern matches the README variants of every example directory.
const ReadmePattern = "*/README*.{md,mdx}"

// ErrDuplicateVariant reports a second README for a locale already taken.
var ErrDuplicateVariant = errors.New("duplicate README for locale")

// Variant is one localized README of an example.
type Variant struct {
	Path      string
	FileName  string
	Extension string // without the dot: md or mdx
	Locale    locale.Locale
}

// Example is a directory under the examples root with at least one README.
type Example struct {
	Name      string
	Dir       string
	AssetsDir string // empty when the example has no assets directory
	Variants  []Variant
}

// Variant returns the variant for l.
func (e Example) Variant(l locale.Locale) (Variant, bool) {
	for _, v := range e.Variants {
		if v.Locale == l {
			return v, true
		}
	}
	return Variant{}, false
}

// Rejected is a README file that was not turned into a variant.
type Rejected struct {
	Example string
	Path    string
	Err     error
}

// Discovery is the result of scanning the examples root.
type Discovery struct {
	Examples []Example // sorted by name
	Rejected []Rejected
}

// Discover scans root for example READMEs. Within an example the first
// README of a locale in lexical order wins; later ones and READMEs with an
// unknown suffix are rejected. Examples left without a variant are dropped.
// A missing root yields an empty discovery.
func Discover(root, marker string) (Discovery, error) {
	var d Discovery
	if !fsutil.IsDir(root) {
		return d, nil
	}

	matches, err := doublestar.Glob(os.DirFS(root), ReadmePattern, doublestar.WithFilesOnly())
	if err != nil {
		return d, fmt.Errorf("scan examples in %s: %w", root, err)
	}
	sort.Strings(matches)

	byName := map[string]*Example{}
	var names []string
	for _, m := range matches {
		name, file := path.Split(m)
		name = strings.TrimSuffix(name, "/")
		full := filepath.Join(root, filepath.FromSlash(m))

		l, err := locale.Classify(file, marker)
		if err != nil {
			d.Rejected = append(d.Rejected, Rejected{Example: name, Path: full, Err: err})
			continue
		}

		ex, ok := byName[name]
		if !ok {
			dir := filepath.Join(root, name)
			ex = &Example{Name: name, Dir: dir}
			if assets := filepath.Join(dir, "assets"); fsutil.IsDir(assets) {
				ex.AssetsDir = assets
			}
			byName[name] = ex
			names = append(names, name)
		}
		if _, taken := ex.Variant(l); taken {
			d.Rejected = append(d.Rejected, Rejected{
				Example: name,
				Path:    full,
				Err:     fmt.Errorf("%w: %s", ErrDuplicateVariant, l),
			})
			continue
		}
		ex.Variants = append(ex.Variants, Variant{
			Path:      full,
			FileName:  file,
			Extension: strings.TrimPrefix(path.Ext(file), "."),
			Locale:    l,
		})
	}

	sort.Strings(names)
	for _, name := range names {
		d.Examples = append(d.Examples, *byName[name])
	}
	return d, nil
}
