package audit

import (
	"bytes"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// LinkKind names the construct a link was found in.
type LinkKind string

const (
	LinkKindInline              LinkKind = "inline"
	LinkKindImage               LinkKind = "image"
	LinkKindAuto                LinkKind = "auto"
	LinkKindReferenceDefinition LinkKind = "reference_definition"
	LinkKindHTML                LinkKind = "html"
)

// Link is one link destination found in a Markdown body.
type Link struct {
	Kind        LinkKind
	Destination string
	// Line is the 1-based line of the enclosing block, relative to the body.
	Line int
}

// htmlLinkAttrs lists the attributes followed per element in raw HTML.
var htmlLinkAttrs = map[string]string{
	"a":      "href",
	"img":    "src",
	"source": "src",
	"video":  "src",
	"audio":  "src",
	"iframe": "src",
	"link":   "href",
}

// ExtractLinks parses a Markdown body (frontmatter removed) and returns the
// link destinations of inline links, images, autolinks, reference
// definitions and raw HTML elements. Code spans and fenced blocks are
// ignored by the parser.
func ExtractLinks(body []byte) []Link {
	md := goldmark.New()
	ctx := parser.NewContext()
	root := md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	links := make([]Link, 0)
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *gmast.AutoLink:
			links = append(links, Link{Kind: LinkKindAuto, Destination: string(node.URL(body)), Line: lineOf(n, body)})
		case *gmast.Image:
			links = append(links, Link{Kind: LinkKindImage, Destination: string(node.Destination), Line: lineOf(n, body)})
		case *gmast.Link:
			links = append(links, Link{Kind: LinkKindInline, Destination: string(node.Destination), Line: lineOf(n, body)})
		case *gmast.RawHTML:
			var buf bytes.Buffer
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				buf.Write(seg.Value(body))
			}
			links = append(links, htmlLinks(buf.String(), lineOf(n, body))...)
		case *gmast.HTMLBlock:
			var buf bytes.Buffer
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(body))
			}
			if node.HasClosure() {
				buf.Write(node.ClosureLine.Value(body))
			}
			links = append(links, htmlLinks(buf.String(), lineOf(n, body))...)
		}
		return gmast.WalkContinue, nil
	})

	// Reference definitions live in the parse context, not in the tree.
	refs := ctx.References()
	sort.Slice(refs, func(i, j int) bool {
		return string(refs[i].Label()) < string(refs[j].Label())
	})
	for _, ref := range refs {
		links = append(links, Link{Kind: LinkKindReferenceDefinition, Destination: string(ref.Destination())})
	}
	return links
}

// htmlLinks extracts href/src attributes from a raw HTML fragment.
func htmlLinks(fragment string, line int) []Link {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil
	}
	var out []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := htmlLinkAttrs[n.Data]; ok {
				if v := getAttr(n, attr); v != "" {
					out = append(out, Link{Kind: LinkKindHTML, Destination: v, Line: line})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// lineOf returns the line of the nearest block ancestor of n.
func lineOf(n gmast.Node, source []byte) int {
	for p := n; p != nil; p = p.Parent() {
		if p.Type() != gmast.TypeBlock {
			continue
		}
		lines := p.Lines()
		if lines == nil || lines.Len() == 0 {
			continue
		}
		return bytes.Count(source[:lines.At(0).Start], []byte("\n")) + 1
	}
	return 0
}
