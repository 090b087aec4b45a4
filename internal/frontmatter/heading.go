package frontmatter

import (
	"regexp"
	"strings"
)

var h1Pattern = regexp.MustCompile(`^#[ \t]+(.+?)(?:[ \t]+#+)?[ \t]*$`)

// FindHeading locates the first level-1 ATX heading line in body, skipping
// fenced code blocks. offset is the byte offset of the line start.
func FindHeading(body string) (offset int, title string, ok bool) {
	var fence string
	pos := 0
	for pos < len(body) {
		end := strings.IndexByte(body[pos:], '\n')
		next := len(body)
		line := body[pos:]
		if end >= 0 {
			line = body[pos : pos+end]
			next = pos + end + 1
		}
		line = strings.TrimSuffix(line, "\r")

		trimmed := strings.TrimLeft(line, " ")
		switch {
		case fence != "":
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
		case strings.HasPrefix(trimmed, "```"):
			fence = "```"
		case strings.HasPrefix(trimmed, "~~~"):
			fence = "~~~"
		default:
			if m := h1Pattern.FindStringSubmatch(line); m != nil {
				return pos, strings.TrimSpace(m[1]), true
			}
		}
		pos = next
	}
	return -1, "", false
}
