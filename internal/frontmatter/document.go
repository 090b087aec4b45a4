package frontmatter

import (
	"fmt"
)

// Document is a page with a guaranteed title.
type Document struct {
	// Content is the full page, frontmatter included.
	Content []byte
	// BodyOffset is where the body starts inside Content.
	BodyOffset int
	Meta       Metadata
	// Synthesized reports whether the block or its title was generated.
	Synthesized bool
}

// Body returns the part of Content after the frontmatter block.
func (d Document) Body() string {
	return string(d.Content[d.BodyOffset:])
}

// Parse decodes a leading frontmatter block. had is false when the content
// has no block. An opened but unclosed block, invalid YAML or a non-mapping
// value yields ErrMalformedMetadata.
func Parse(content []byte) (meta Metadata, had bool, err error) {
	fm, _, had, _, err := Split(content)
	if err != nil {
		return Metadata{}, false, fmt.Errorf("%w: %w", ErrMalformedMetadata, err)
	}
	if !had {
		return Metadata{Fields: map[string]any{}}, false, nil
	}
	meta, err = ParseYAML(fm)
	if err != nil {
		return Metadata{}, true, fmt.Errorf("%w: %w", ErrMalformedMetadata, err)
	}
	return meta, true, nil
}

// Synthesize builds a block holding only the title taken from the first
// level-1 heading and prepends it to content.
func Synthesize(content []byte) (Document, error) {
	style := detectStyle(content)
	_, title, ok := FindHeading(string(content))
	if !ok || title == "" {
		return Document{}, ErrMissingTitle
	}

	fm, err := SerializeYAML([]Field{{Key: "title", Value: title}}, style)
	if err != nil {
		return Document{}, err
	}
	out := Join(fm, content, true, style)
	return Document{
		Content:     out,
		BodyOffset:  len(out) - len(content),
		Meta:        Metadata{Fields: map[string]any{"title": title}},
		Synthesized: true,
	}, nil
}

// Ensure returns content with a frontmatter block carrying a title, parsing
// the existing block when present and synthesizing one otherwise. A block
// without a title receives a title line at its top.
func Ensure(content []byte) (Document, error) {
	meta, had, err := Parse(content)
	if err != nil {
		return Document{}, err
	}
	if !had {
		return Synthesize(content)
	}

	fm, body, _, style, _ := Split(content)
	if meta.Title() != "" {
		return Document{Content: content, BodyOffset: len(content) - len(body), Meta: meta}, nil
	}
	if _, present := meta.Fields["title"]; present {
		// An explicit empty title is not overridden.
		return Document{}, ErrMissingTitle
	}

	_, title, ok := FindHeading(string(body))
	if !ok || title == "" {
		return Document{}, ErrMissingTitle
	}
	line, err := SerializeYAML([]Field{{Key: "title", Value: title}}, style)
	if err != nil {
		return Document{}, err
	}
	merged := append(line, fm...)
	out := Join(merged, body, true, style)

	reparsed, err := ParseYAML(merged)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrMalformedMetadata, err)
	}
	return Document{
		Content:     out,
		BodyOffset:  len(out) - len(body),
		Meta:        reparsed,
		Synthesized: true,
	}, nil
}
