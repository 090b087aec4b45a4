package examples

import (
	"regexp"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/frontmatter"
	"git.home.luguber.info/inful/docsite/internal/linkresolve"
)

// HeaderBlock renders the tag and code-link lines placed above the title:
//
//	**Tags**: #A #B
//
//	**Code**: [url](url)
//
// The tags line is omitted when there are no tags.
func HeaderBlock(tags []string, codeURL string) string {
	var b strings.Builder
	if len(tags) > 0 {
		b.WriteString("**Tags**:")
		for _, t := range tags {
			b.WriteString(" #")
			b.WriteString(t)
		}
		b.WriteString("\n\n")
	}
	b.WriteString("**Code**: [")
	b.WriteString(codeURL)
	b.WriteString("](")
	b.WriteString(codeURL)
	b.WriteString(")\n\n")
	return b.String()
}

// InjectHeader inserts HeaderBlock(tags, codeURL) immediately before the
// first level-1 heading that follows the frontmatter. Content without such a
// heading, or with an unreadable frontmatter block, is returned unchanged.
func InjectHeader(content []byte, tags []string, codeURL string) []byte {
	_, body, _, _, err := frontmatter.Split(content)
	if err != nil {
		return content
	}
	offset, _, ok := frontmatter.FindHeading(string(body))
	if !ok {
		return content
	}
	at := len(content) - len(body) + offset

	block := HeaderBlock(tags, codeURL)
	out := make([]byte, 0, len(content)+len(block))
	out = append(out, content[:at]...)
	out = append(out, block...)
	out = append(out, content[at:]...)
	return out
}

// relativeLinkPattern matches [label](target "title") where target starts
// with one or more ./ or ../ segments. The label may hold one level of nested
// brackets so linked images are matched as a whole. Group 1 is a leading "!"
// marking an image embed.
var relativeLinkPattern = regexp.MustCompile(
	`(!?)\[((?:[^\[\]]|\[[^\[\]]*\](?:\([^()]*\))?)*)\]\(((?:\.{1,2}/)+[^)\s]*)(\s+"[^"]*")?\)`)

// WarnFunc receives a link target that could not be resolved.
type WarnFunc func(target string, err error)

// RewriteRelativeLinks resolves relative link targets against base, the
// example's source directory URL. Image embeds are left to RewriteAssetRefs.
// Targets that fail to resolve are kept and passed to warn.
func RewriteRelativeLinks(content, base string, warn WarnFunc) string {
	return replaceSubmatches(relativeLinkPattern, content, func(whole string, groups []string) string {
		if groups[1] == "!" {
			return whole
		}
		target := groups[3]
		resolved, err := linkresolve.Resolve(base, target)
		if err != nil {
			if warn != nil {
				warn(target, err)
			}
			return whole
		}
		return "[" + groups[2] + "](" + resolved + groups[4] + ")"
	})
}

// assetRefPattern matches assets/ or ./assets/ directly after an opening
// parenthesis or quote, i.e. as a Markdown link target or an HTML attribute.
var assetRefPattern = regexp.MustCompile(`([("'])(?:\./)?assets/`)

// RewriteAssetRefs points example-relative asset references at the
// example's namespace in the public assets tree:
//
//	![d](./assets/arch.png)   -> ![d](/assets/{name}/arch.png)
//	<img src="assets/a.png">  -> <img src="/assets/{name}/a.png">
func RewriteAssetRefs(content, name string) string {
	repl := "${1}/assets/" + strings.ReplaceAll(name, "$", "$$") + "/"
	return assetRefPattern.ReplaceAllString(content, repl)
}

// replaceSubmatches is ReplaceAllStringFunc with access to capture groups.
// Unmatched optional groups are passed as empty strings.
func replaceSubmatches(re *regexp.Regexp, s string, fn func(whole string, groups []string) string) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		groups := make([]string, len(m)/2)
		for i := range groups {
			if m[2*i] >= 0 {
				groups[i] = s[m[2*i]:m[2*i+1]]
			}
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(fn(groups[0], groups))
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
