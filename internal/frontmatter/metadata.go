package frontmatter

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata is a decoded frontmatter block. Fields holds the decoded values;
// the underlying mapping node is kept so list order inside category mappings
// survives decoding.
type Metadata struct {
	Fields map[string]any
	node   *yaml.Node
}

// Title returns the trimmed title field, or "" when absent.
func (m Metadata) Title() string {
	v, ok := m.Fields["title"]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// ExtractTags returns the flat, ordered tag list of the `tags` field.
//
// Accepted shapes:
//
//	tags: [AWS, TypeScript]                 -> AWS, TypeScript
//	tags: AWS                               -> AWS
//	tags: {lang: [TypeScript], platform: AWS} -> TypeScript, AWS
//
// Values are trimmed and empty entries dropped. An absent field yields an
// empty (non-nil) list.
func ExtractTags(m Metadata) []string {
	tags := []string{}
	if m.node != nil {
		if v := mappingValue(m.node, "tags"); v != nil {
			return appendNodeTags(tags, v)
		}
		return tags
	}
	if v, ok := m.Fields["tags"]; ok {
		return appendValueTags(tags, v)
	}
	return tags
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func appendNodeTags(tags []string, n *yaml.Node) []string {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return tags
		}
		return appendTag(tags, n.Value)
	case yaml.SequenceNode:
		for _, item := range n.Content {
			tags = appendNodeTags(tags, item)
		}
	case yaml.MappingNode:
		for i := 1; i < len(n.Content); i += 2 {
			tags = appendNodeTags(tags, n.Content[i])
		}
	case yaml.AliasNode:
		if n.Alias != nil {
			return appendNodeTags(tags, n.Alias)
		}
	}
	return tags
}

// appendValueTags handles Metadata built without a node (synthesized blocks).
// Mapping keys are visited in sorted order to stay deterministic.
func appendValueTags(tags []string, v any) []string {
	switch vv := v.(type) {
	case nil:
		return tags
	case string:
		return appendTag(tags, vv)
	case []string:
		for _, s := range vv {
			tags = appendTag(tags, s)
		}
	case []any:
		for _, item := range vv {
			tags = appendValueTags(tags, item)
		}
	case map[string]any:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			tags = appendValueTags(tags, vv[k])
		}
	default:
		return appendTag(tags, fmt.Sprint(vv))
	}
	return tags
}

func appendTag(tags []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return tags
	}
	return append(tags, s)
}
