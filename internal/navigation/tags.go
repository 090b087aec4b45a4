package navigation

import (
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"git.home.luguber.info/inful/docsite/internal/fsutil"
)

// TagIndexFileName is the tag list consumed by the tag filter.
const TagIndexFileName = "tags.json"

// TagIndex collects the unique tags of all produced pages. Tags are equal
// when they match under Unicode case folding; the first casing seen is kept.
type TagIndex struct {
	mu     sync.Mutex
	folder cases.Caser
	seen   map[string]struct{}
	tags   []string
}

// NewTagIndex returns an empty index.
func NewTagIndex() *TagIndex {
	return &TagIndex{folder: cases.Fold(), seen: map[string]struct{}{}}
}

// Key returns the identity of a tag.
func (t *TagIndex) Key(tag string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.folder.String(strings.TrimSpace(tag))
}

// Add records tags in order, ignoring blanks and case-insensitive duplicates.
func (t *TagIndex) Add(tags ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := t.folder.String(tag)
		if _, ok := t.seen[key]; ok {
			continue
		}
		t.seen[key] = struct{}{}
		t.tags = append(t.tags, tag)
	}
}

// Tags returns the unique tags in first-seen order.
func (t *TagIndex) Tags() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string{}, t.tags...)
}

// Encode renders the tags as an indented JSON array with a trailing newline.
func (t *TagIndex) Encode() ([]byte, error) {
	tags := t.Tags()
	if len(tags) == 0 {
		return []byte("[]\n"), nil
	}
	var b strings.Builder
	b.WriteString("[\n")
	for i, tag := range tags {
		raw, err := marshal(tag)
		if err != nil {
			return nil, err
		}
		b.WriteString("  ")
		b.Write(raw)
		if i < len(tags)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("]\n")
	return []byte(b.String()), nil
}

// Write writes tags.json into dir and returns its path.
func (t *TagIndex) Write(dir string) (string, error) {
	data, err := t.Encode()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, TagIndexFileName)
	return path, fsutil.WriteFile(path, data)
}
