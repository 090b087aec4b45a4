package examples

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/frontmatter"
	"git.home.luguber.info/inful/docsite/internal/fsutil"
	"git.home.luguber.info/inful/docsite/internal/locale"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/navigation"
)

// Page is a produced cookbook page.
type Page struct {
	Example string
	Locale  locale.Locale
	Path    string // written file
	Title   string
	Tags    []string
	Content []byte
}

// Outcome collects everything produced for one example.
type Outcome struct {
	Example  Example
	Pages    []Page
	Failures []error // per-variant errors; the variant was skipped
	Warnings []error // unresolved links; the page was still written
}

// Result holds the outcomes of a transform run, sorted by example name.
type Result struct {
	Outcomes []Outcome
}

// Pages returns every produced page in example order.
func (r Result) Pages() []Page {
	var out []Page
	for _, o := range r.Outcomes {
		out = append(out, o.Pages...)
	}
	return out
}

// Failures returns every per-variant failure in example order.
func (r Result) Failures() []error {
	var out []error
	for _, o := range r.Outcomes {
		out = append(out, o.Failures...)
	}
	return out
}

// Warnings returns every warning in example order.
func (r Result) Warnings() []error {
	var out []error
	for _, o := range r.Outcomes {
		out = append(out, o.Warnings...)
	}
	return out
}

// Options configures a Transformer.
type Options struct {
	OutputDir   string       // cookbook directory receiving {name}.{code}.{ext}
	Codes       locale.Codes // output codes per locale
	CodeURL     func(example string) string
	Concurrency int
}

// Transformer renders example READMEs into cookbook pages.
type Transformer struct {
	opts   Options
	logger *slog.Logger
}

// NewTransformer creates a Transformer.
func NewTransformer(opts Options, logger *slog.Logger) *Transformer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{opts: opts, logger: logger}
}

// FileName returns the output file name of a variant: {name}.{code}.{ext}.
func (t *Transformer) FileName(ex Example, v Variant) string {
	return fmt.Sprintf("%s.%s.%s", ex.Name, t.opts.Codes.Code(v.Locale), v.Extension)
}

// Transform processes examples on a bounded worker pool. Each example is
// handled by one worker; its variants are processed in order. Once every
// worker has finished, results are merged into nav and tags in example order.
func (t *Transformer) Transform(ctx context.Context, exs []Example, nav *navigation.Aggregator, tags *navigation.TagIndex) Result {
	outcomes := make([]Outcome, len(exs))

	sem := make(chan struct{}, t.opts.Concurrency)
	var wg sync.WaitGroup
	for i := range exs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}        // Acquire semaphore
			defer func() { <-sem }() // Release semaphore
			outcomes[i] = t.transformExample(ctx, exs[i])
		}(i)
	}
	wg.Wait()

	for _, o := range outcomes {
		merge(o, nav, tags)
	}
	if nav != nil {
		nav.Complete()
	}
	return Result{Outcomes: outcomes}
}

// merge records one outcome. Examples without any page contribute nothing;
// a failed variant of an otherwise published example becomes hidden.
func merge(o Outcome, nav *navigation.Aggregator, tags *navigation.TagIndex) {
	if len(o.Pages) == 0 {
		return
	}
	for _, p := range o.Pages {
		if nav != nil {
			nav.Record(o.Example.Name, p.Locale, p.Title)
		}
		if tags != nil {
			tags.Add(p.Tags...)
		}
	}
	if nav != nil {
		for _, l := range locale.All {
			nav.Hide(o.Example.Name, l)
		}
	}
}

func (t *Transformer) transformExample(ctx context.Context, ex Example) Outcome {
	out := Outcome{Example: ex}
	for _, v := range ex.Variants {
		code := t.opts.Codes.Code(v.Locale)
		if err := ctx.Err(); err != nil {
			out.Failures = append(out.Failures, errors.WrapError(err, errors.CategoryRuntime, "transform canceled").
				WithContext("example", ex.Name).WithContext("locale", code).WithContext("path", v.Path).Build())
			continue
		}

		page, warnings, err := t.transformVariant(ex, v)
		out.Warnings = append(out.Warnings, warnings...)
		if err != nil {
			t.logger.Warn("Skipping example README",
				logfields.Example(ex.Name), logfields.Locale(code), logfields.Path(v.Path), logfields.Error(err))
			out.Failures = append(out.Failures, err)
			continue
		}
		t.logger.Debug("Wrote example page",
			logfields.Example(ex.Name), logfields.Locale(code), logfields.Path(page.Path))
		out.Pages = append(out.Pages, page)
	}
	return out
}

func (t *Transformer) transformVariant(ex Example, v Variant) (Page, []error, error) {
	code := t.opts.Codes.Code(v.Locale)
	errCtx := errors.ErrorContext{"example": ex.Name, "locale": code, "path": v.Path}

	content, err := os.ReadFile(v.Path)
	if err != nil {
		return Page{}, nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read README").
			WithContextMap(errCtx).Build()
	}

	codeURL := ""
	if t.opts.CodeURL != nil {
		codeURL = t.opts.CodeURL(ex.Name)
	}

	var warnings []error
	page, err := Render(ex.Name, content, codeURL, func(target string, err error) {
		warnings = append(warnings, errors.WrapError(err, errors.CategoryLink, "relative link left unresolved").
			Warning().WithContextMap(errCtx).WithContext("target", target).Build())
		t.logger.Warn("Relative link left unresolved",
			logfields.Example(ex.Name), logfields.Locale(code), logfields.Path(v.Path), logfields.Target(target))
	})
	if err != nil {
		msg := "malformed frontmatter"
		if stderrors.Is(err, frontmatter.ErrMissingTitle) {
			msg = "missing title"
		}
		return Page{}, warnings, errors.WrapError(err, errors.CategoryDocs, msg).WithContextMap(errCtx).Build()
	}

	page.Example = ex.Name
	page.Locale = v.Locale
	page.Path = filepath.Join(t.opts.OutputDir, t.FileName(ex, v))
	if err := fsutil.WriteFile(page.Path, page.Content); err != nil {
		return Page{}, warnings, errors.WrapError(err, errors.CategoryFileSystem, "failed to write page").
			WithContextMap(errCtx).WithContext("target", page.Path).Build()
	}
	return page, warnings, nil
}

// Render applies the README rewrites in order: ensure frontmatter, inject
// the tag and code-link block, resolve relative links against codeURL and
// point asset references at the example's public namespace.
func Render(name string, content []byte, codeURL string, warn WarnFunc) (Page, error) {
	doc, err := frontmatter.Ensure(content)
	if err != nil {
		return Page{}, err
	}
	tags := frontmatter.ExtractTags(doc.Meta)

	out := string(InjectHeader(doc.Content, tags, codeURL))
	out = RewriteRelativeLinks(out, codeURL, warn)
	out = RewriteAssetRefs(out, name)

	return Page{
		Title:   doc.Meta.Title(),
		Tags:    tags,
		Content: []byte(out),
	}, nil
}
