package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/docsite/internal/eventstore"
	"git.home.luguber.info/inful/docsite/internal/frontmatter"
	"git.home.luguber.info/inful/docsite/internal/fsutil"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/notify"
)

// Stage names a pipeline step.
type Stage string

const (
	StageSync     Stage = "sync"
	StageReset    Stage = "reset"
	StageAssets   Stage = "assets"
	StageExamples Stage = "examples"
	StageDocs     Stage = "docs"
	StageLinks    Stage = "links"
	StageAudit    Stage = "audit"
)

// Report summarizes one pipeline run.
type Report struct {
	RunID   string
	Trigger string
	Start   time.Time
	End     time.Time
	Outcome metrics.BuildOutcomeLabel
	// Commit is the source commit when the run synced the checkout.
	Commit  string

	// Pages lists every produced Markdown page relative to the pages root.
	Pages []string
	// PagesByLocale counts cookbook pages per locale code.
	PagesByLocale map[string]int
	Examples      int
	Assets        int
	// Fingerprints maps page path to its content fingerprint.
	Fingerprints map[string]string
	// Changed lists pages added or modified since the previous recorded run.
	Changed []string

	StageDurations map[Stage]time.Duration
	StageResults   map[Stage]metrics.ResultLabel

	// Failures are per-file errors; the file was skipped.
	Failures []error
	// Warnings are reported problems in files that were still produced.
	Warnings []error
	// Err is the fatal error that aborted the run, if any.
	Err error
}

func newReport(runID, trigger string) *Report {
	return &Report{
		RunID:          runID,
		Trigger:        trigger,
		Start:          time.Now(),
		PagesByLocale:  map[string]int{},
		Fingerprints:   map[string]string{},
		StageDurations: map[Stage]time.Duration{},
		StageResults:   map[Stage]metrics.ResultLabel{},
	}
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

func (r *Report) finish() {
	r.End = time.Now()
	switch {
	case r.Err != nil:
		r.Outcome = metrics.BuildOutcomeFailed
	case len(r.Failures) > 0 || len(r.Warnings) > 0:
		r.Outcome = metrics.BuildOutcomeWarning
	default:
		r.Outcome = metrics.BuildOutcomeSuccess
	}
}

// Summary returns the ledger payload of the finished run.
func (r *Report) Summary() eventstore.BuildCompletedPayload {
	p := eventstore.BuildCompletedPayload{
		Outcome:      string(r.Outcome),
		DurationMS:   r.Duration().Milliseconds(),
		Pages:        len(r.Pages),
		Warnings:     len(r.Warnings),
		Fingerprints: r.Fingerprints,
	}
	for _, f := range r.Failures {
		p.Failures = append(p.Failures, f.Error())
	}
	if r.Err != nil {
		p.Error = r.Err.Error()
	}
	return p
}

// Notice returns the notification message of the finished run.
func (r *Report) Notice() notify.BuildNotice {
	n := notify.BuildNotice{
		RunID:      r.RunID,
		Outcome:    string(r.Outcome),
		Trigger:    r.Trigger,
		Commit:     r.Commit,
		Pages:      len(r.Pages),
		Failures:   len(r.Failures),
		Warnings:   len(r.Warnings),
		DurationMS: r.Duration().Milliseconds(),
		Changed:    r.Changed,
		FinishedAt: r.End,
	}
	if r.Err != nil {
		n.Error = r.Err.Error()
	}
	return n
}

// summaryRun converts the report to a history read model for diffing.
func (r *Report) summaryRun() *eventstore.RunSummary {
	return &eventstore.RunSummary{RunID: r.RunID, Fingerprints: r.Fingerprints}
}

// Fingerprint computes the content fingerprint of a page: the frontmatter
// (without delimiters, single trailing newline trimmed) and the body hashed
// separately.
func Fingerprint(content []byte) string {
	fm, body, had, _, err := frontmatter.Split(content)
	if err != nil || !had {
		return mdfp.CalculateFingerprintFromParts("", string(content))
	}
	return mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(string(fm), "\n"), string(body))
}

// fingerprintPages walks the pages root and fingerprints every Markdown page.
// Paths are relative to root in slash form, sorted.
func fingerprintPages(root string) ([]string, map[string]string, error) {
	files, err := fsutil.MarkdownFiles(root)
	if err != nil {
		return nil, nil, err
	}
	pages := make([]string, 0, len(files))
	fps := make(map[string]string, len(files))
	for _, path := range files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, nil, err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		rel = filepath.ToSlash(rel)
		pages = append(pages, rel)
		fps[rel] = Fingerprint(content)
	}
	sort.Strings(pages)
	return pages, fps, nil
}
