// Package linknorm rewrites documentation cross-links in produced pages into
// site-relative paths.
package linknorm

import (
	"regexp"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/fsutil"
)

// Normalizer rewrites links into the docs directory of RepoURL.
type Normalizer struct {
	absolute *regexp.Regexp
	relative *regexp.Regexp
}

// New builds a Normalizer for repository browse URL repoURL and the docs
// directory docsDir (relative to the repository root).
func New(repoURL, docsDir string) *Normalizer {
	repo := regexp.QuoteMeta(strings.TrimSuffix(repoURL, "/"))
	docs := regexp.QuoteMeta(strings.Trim(docsDir, "/"))
	return &Normalizer{
		absolute: regexp.MustCompile(repo + `/(?:tree|blob)/[^/\s)"]+/` + docs + `/`),
		relative: regexp.MustCompile(`(\(|href=")(?:\.{1,2}/)*` + docs + `/`),
	}
}

// Normalize applies both rewrites:
//
//	{repo}/tree/main/docs/setup.md -> /setup.md
//	{repo}/blob/main/docs/setup.md -> /setup.md
//	(../../docs/setup.md)          -> (/setup.md)
//	href="./docs/setup.md"         -> href="/setup.md"
func (n *Normalizer) Normalize(content string) string {
	content = n.absolute.ReplaceAllString(content, "/")
	return n.relative.ReplaceAllString(content, "${1}/")
}

// Run normalizes every Markdown page below pagesDir in place.
func (n *Normalizer) Run(pagesDir string) (changed []string, failures []error, err error) {
	changed, rwFailures, err := fsutil.RewriteMarkdown(pagesDir, func(_ string, content []byte) []byte {
		return []byte(n.Normalize(string(content)))
	})
	for _, f := range rwFailures {
		failures = append(failures, errors.WrapError(f.Err, errors.CategoryFileSystem, "failed to normalize links").
			WithContext("path", f.Path).Build())
	}
	return changed, failures, err
}
