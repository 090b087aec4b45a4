package docstree

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/fsutil"
	"git.home.luguber.info/inful/docsite/internal/locale"
)

// languageSwitcherPattern matches the inline "English | 简体中文" switcher
// the project README carries below its title.
var languageSwitcherPattern = regexp.MustCompile(`(?s)\s*<br\s*/>\s*.*?简体中文\s*</a>`)

// docsPrefixPattern matches link targets into the docs directory.
var docsPrefixPattern = regexp.MustCompile(`\((?:\./)?docs/`)

// RewriteProjectReadme strips the language switcher and rebases links into
// docs/ onto the pages root, where the docs tree is copied.
func RewriteProjectReadme(content string) string {
	content = languageSwitcherPattern.ReplaceAllString(content, "")
	return docsPrefixPattern.ReplaceAllString(content, "(")
}

// IndexFileName returns the index page name for a locale code.
func IndexFileName(code string) string {
	return "index." + code + ".md"
}

// ProjectIndex publishes the project README and its secondary variant as
// index.{code}.md in the pages root. readme is the default-locale README;
// the secondary one is found next to it by the locale marker. Missing
// READMEs are skipped. Returned paths are relative to PagesDir.
func (t *Tree) ProjectIndex(readme string, codes locale.Codes) (written []string, failures []error) {
	ext := filepath.Ext(readme)
	variants := map[locale.Locale]string{
		locale.Default:   readme,
		locale.Secondary: strings.TrimSuffix(readme, ext) + codes.Marker + ext,
	}

	for _, l := range locale.All {
		src := variants[l]
		content, err := os.ReadFile(src)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			failures = append(failures, errors.WrapError(err, errors.CategoryFileSystem, "failed to read project README").
				WithContext("path", src).WithContext("locale", codes.Code(l)).Build())
			continue
		}
		name := IndexFileName(codes.Code(l))
		dst := filepath.Join(t.PagesDir, name)
		if err := fsutil.WriteFile(dst, []byte(RewriteProjectReadme(string(content)))); err != nil {
			failures = append(failures, errors.WrapError(err, errors.CategoryFileSystem, "failed to write index page").
				WithContext("path", dst).WithContext("locale", codes.Code(l)).Build())
			continue
		}
		written = append(written, name)
	}
	return written, failures
}
