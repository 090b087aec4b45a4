// Package audit scans produced pages for links the pipeline left relative.
// Such links resolve against the page URL in the renderer and usually
// break, so each one is reported as a warning.
package audit

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/frontmatter"
	"git.home.luguber.info/inful/docsite/internal/fsutil"
	"git.home.luguber.info/inful/docsite/internal/linkresolve"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// Finding is one relative link left in a produced page.
type Finding struct {
	Path        string // relative to the audited root, slash separated
	Line        int    // 1-based, 0 when unknown
	Kind        LinkKind
	Destination string
}

// Err returns the finding as a classified warning.
func (f Finding) Err() error {
	return errors.WrapError(
		fmt.Errorf("%w: %q", linkresolve.ErrAmbiguousLink, f.Destination),
		errors.CategoryLink, "relative link left in output").
		Warning().
		WithContext("path", f.Path).
		WithContext("line", f.Line).
		WithContext("kind", string(f.Kind)).
		Build()
}

func (f Finding) String() string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", f.Path, f.Line, f.Destination)
	}
	return fmt.Sprintf("%s: %s", f.Path, f.Destination)
}

// Report summarizes an audit run.
type Report struct {
	Files    int
	Findings []Finding
	// Failures holds files that could not be read or parsed.
	Failures []error
}

// Warnings returns every finding as a classified warning.
func (r Report) Warnings() []error {
	out := make([]error, 0, len(r.Findings))
	for _, f := range r.Findings {
		out = append(out, f.Err())
	}
	return out
}

// IsRelative reports whether dest starts with a ./ or ../ segment.
func IsRelative(dest string) bool {
	return strings.HasPrefix(dest, "./") || strings.HasPrefix(dest, "../")
}

// Auditor scans a pages tree.
type Auditor struct {
	logger *slog.Logger
}

// New creates an auditor.
func New(logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{logger: logger}
}

// Run audits every Markdown page under root. Files are visited in sorted
// order so findings are deterministic.
func (a *Auditor) Run(ctx context.Context, root string) (Report, error) {
	files, err := fsutil.MarkdownFiles(root)
	if err != nil {
		return Report{}, errors.WrapError(err, errors.CategoryFileSystem, "failed to list pages").
			WithContext("root", root).Build()
	}

	var report Report
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			report.Failures = append(report.Failures,
				errors.WrapError(readErr, errors.CategoryFileSystem, "failed to read page").
					WithContext("path", rel).Build())
			continue
		}
		report.Files++
		for _, f := range AuditPage(rel, content) {
			a.logger.Warn("Relative link left in output",
				logfields.Path(f.Path),
				slog.Int("line", f.Line),
				logfields.Target(f.Destination))
			report.Findings = append(report.Findings, f)
		}
	}
	a.logger.Info("Link audit complete",
		logfields.Count(report.Files),
		slog.Int("findings", len(report.Findings)))
	return report, nil
}

// AuditPage returns the relative links in one page. Line numbers account
// for a leading frontmatter block.
func AuditPage(path string, content []byte) []Finding {
	body := content
	offset := 0
	if _, b, had, _, err := frontmatter.Split(content); err == nil && had {
		body = b
		offset = bytes.Count(content[:len(content)-len(b)], []byte("\n"))
	}

	var findings []Finding
	for _, l := range ExtractLinks(body) {
		if !IsRelative(l.Destination) {
			continue
		}
		line := l.Line
		if line > 0 {
			line += offset
		}
		findings = append(findings, Finding{Path: path, Line: line, Kind: l.Kind, Destination: l.Destination})
	}
	return findings
}
