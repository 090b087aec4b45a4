// Package navigation aggregates per-locale navigation metadata for the
// cookbook: one ordered map per locale from example name to either a display
// title or a hidden marker.
package navigation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"git.home.luguber.info/inful/docsite/internal/fsutil"
	"git.home.luguber.info/inful/docsite/internal/locale"
)

// Entry is the navigation record of one example in one locale.
type Entry struct {
	Title  string
	Hidden bool
}

// Hidden is the entry of a locale without a page.
var Hidden = Entry{Hidden: true}

// MarshalJSON renders {"title": ...} or {"display": "hidden"}.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Hidden {
		return []byte(`{"display":"hidden"}`), nil
	}
	return marshal(struct {
		Title string `json:"title"`
	}{e.Title})
}

// Named pairs an entry with its example name.
type Named struct {
	Name  string
	Entry Entry
}

// Aggregator collects navigation entries for both locales. Names keep the
// order in which they were first recorded. Safe for concurrent use.
type Aggregator struct {
	mu      sync.Mutex
	order   []string
	entries [2]map[string]Entry
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{entries: [2]map[string]Entry{{}, {}}}
}

// Record stores the title of a produced page. A real entry always replaces a
// hidden one.
func (a *Aggregator) Record(name string, l locale.Locale, title string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.track(name)
	a.entries[l][name] = Entry{Title: title}
}

// Hide marks name as having no page in l unless a real entry exists.
func (a *Aggregator) Hide(name string, l locale.Locale) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.track(name)
	if _, ok := a.entries[l][name]; !ok {
		a.entries[l][name] = Hidden
	}
}

// Complete fills hidden entries so both locales carry the same names.
func (a *Aggregator) Complete() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, name := range a.order {
		for _, l := range locale.All {
			if _, ok := a.entries[l][name]; !ok {
				a.entries[l][name] = Hidden
			}
		}
	}
}

func (a *Aggregator) track(name string) {
	if _, ok := a.entries[locale.Default][name]; ok {
		return
	}
	if _, ok := a.entries[locale.Secondary][name]; ok {
		return
	}
	a.order = append(a.order, name)
}

// Len returns the number of example names recorded.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.order)
}

// Entries returns the entries of l in recording order. Names without an
// entry in l are omitted; call Complete first to include them as hidden.
func (a *Aggregator) Entries(l locale.Locale) []Named {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Named, 0, len(a.order))
	for _, name := range a.order {
		if e, ok := a.entries[l][name]; ok {
			out = append(out, Named{Name: name, Entry: e})
		}
	}
	return out
}

// Lookup returns the entry of name in l.
func (a *Aggregator) Lookup(name string, l locale.Locale) (Entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[l][name]
	return e, ok
}

// Encode renders the entries of l as an insertion-ordered JSON object with
// two-space indentation and a trailing newline.
func (a *Aggregator) Encode(l locale.Locale) ([]byte, error) {
	entries := a.Entries(l)
	if len(entries) == 0 {
		return []byte("{}\n"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, n := range entries {
		key, err := marshal(n.Name)
		if err != nil {
			return nil, err
		}
		var value bytes.Buffer
		raw, err := n.Entry.MarshalJSON()
		if err != nil {
			return nil, err
		}
		if err := json.Indent(&value, raw, "  ", "  "); err != nil {
			return nil, err
		}
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value.Bytes())
		if i < len(entries)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// MetaFileName returns the navigation file name for a locale code.
func MetaFileName(code string) string {
	return fmt.Sprintf("_meta.%s.json", code)
}

// Write writes _meta.{code}.json for both locales into dir and returns the
// written paths.
func (a *Aggregator) Write(dir string, codes locale.Codes) ([]string, error) {
	written := make([]string, 0, len(locale.All))
	for _, l := range locale.All {
		data, err := a.Encode(l)
		if err != nil {
			return written, fmt.Errorf("encode %s navigation: %w", codes.Code(l), err)
		}
		path := filepath.Join(dir, MetaFileName(codes.Code(l)))
		if err := fsutil.WriteFile(path, data); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// marshal encodes v without HTML escaping so titles keep their characters.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
