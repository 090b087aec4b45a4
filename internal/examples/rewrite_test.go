package examples

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ex1URL = "https://git/org/repo/tree/main/examples/ex1"

func TestInjectHeader(t *testing.T) {
	tests := []struct {
		name    string
		content string
		tags    []string
		want    string
	}{
		{
			name:    "tags and code before heading",
			content: "---\ntitle: Hello World\n---\nintro\n# Hello World\nbody\n",
			tags:    []string{"AWS", "TypeScript"},
			want: "---\ntitle: Hello World\n---\nintro\n" +
				"**Tags**: #AWS #TypeScript\n\n" +
				"**Code**: [" + ex1URL + "](" + ex1URL + ")\n\n" +
				"# Hello World\nbody\n",
		},
		{
			name:    "no tags emits only code line",
			content: "# Title\n",
			want:    "**Code**: [" + ex1URL + "](" + ex1URL + ")\n\n# Title\n",
		},
		{
			name:    "no heading leaves content unchanged",
			content: "---\ntitle: T\n---\n## Only second level\n",
			tags:    []string{"x"},
			want:    "---\ntitle: T\n---\n## Only second level\n",
		},
		{
			name:    "heading inside frontmatter is ignored",
			content: "---\ntitle: T\n# comment\n---\ntext\n# Real\n",
			want:    "---\ntitle: T\n# comment\n---\ntext\n**Code**: [" + ex1URL + "](" + ex1URL + ")\n\n# Real\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InjectHeader([]byte(tt.content), tt.tags, ex1URL)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestRewriteRelativeLinks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "parent segments",
			in:   "see [guide](../../docs/guide.md) now",
			want: "see [guide](https://git/org/repo/tree/main/docs/guide.md) now",
		},
		{
			name: "current directory",
			in:   "[src](./src/index.ts)",
			want: "[src](" + ex1URL + "/src/index.ts)",
		},
		{
			name: "title preserved",
			in:   `[a](../b.md "B title")`,
			want: `[a](https://git/org/repo/tree/main/examples/b.md "B title")`,
		},
		{
			name: "image embeds excluded",
			in:   "![diagram](./assets/arch.png)",
			want: "![diagram](./assets/arch.png)",
		},
		{
			name: "absolute and bare links untouched",
			in:   "[a](https://x.y/z) [b](docs/c.md) [c](/abs)",
			want: "[a](https://x.y/z) [b](docs/c.md) [c](/abs)",
		},
		{
			name: "linked image rewrites only the outer target",
			in:   "[![badge](./assets/b.svg)](../other)",
			want: "[![badge](./assets/b.svg)](https://git/org/repo/tree/main/examples/other)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RewriteRelativeLinks(tt.in, ex1URL, func(target string, err error) {
				t.Fatalf("unexpected warning for %s: %v", target, err)
			})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRewriteRelativeLinks_UnresolvableKept(t *testing.T) {
	var warned []string
	in := "[bad](./bad%zzescape)"
	got := RewriteRelativeLinks(in, ex1URL, func(target string, err error) {
		require.Error(t, err)
		warned = append(warned, target)
	})
	assert.Equal(t, in, got)
	assert.Equal(t, []string{"./bad%zzescape"}, warned)
}

func TestRewriteAssetRefs(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"![diagram](./assets/arch.png)", "![diagram](/assets/ex1/arch.png)"},
		{"![diagram](assets/arch.png)", "![diagram](/assets/ex1/arch.png)"},
		{`<img src="./assets/a.png" />`, `<img src="/assets/ex1/a.png" />`},
		{`<img src='assets/a.png'>`, `<img src='/assets/ex1/a.png'>`},
		{"![x](/assets/ex1/arch.png)", "![x](/assets/ex1/arch.png)"},
		{"(https://github.com/o/r/blob/main/assets/x.png)", "(https://github.com/o/r/blob/main/assets/x.png)"},
		{"plain assets/ text", "plain assets/ text"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RewriteAssetRefs(tt.in, "ex1"), tt.in)
	}
}

func TestRewriteAssetRefs_Idempotent(t *testing.T) {
	once := RewriteAssetRefs("![d](./assets/arch.png)", "ex1")
	assert.Equal(t, once, RewriteAssetRefs(once, "ex1"))
}

func TestRender(t *testing.T) {
	content := "---\ntags: [AWS, TypeScript]\n---\n# Hello World\n\n![d](./assets/arch.png) [next](../ex2)\n"
	page, err := Render("ex1", []byte(content), ex1URL, nil)
	require.NoError(t, err)

	assert.Equal(t, "Hello World", page.Title)
	assert.Equal(t, []string{"AWS", "TypeScript"}, page.Tags)
	body := string(page.Content)
	assert.Contains(t, body, "**Tags**: #AWS #TypeScript\n\n**Code**: ["+ex1URL+"]("+ex1URL+")\n\n# Hello World")
	assert.Contains(t, body, "![d](/assets/ex1/arch.png)")
	assert.Contains(t, body, "[next](https://git/org/repo/tree/main/examples/ex2)")
	assert.Contains(t, body, "title: Hello World")
}

func TestRender_MissingTitle(t *testing.T) {
	_, err := Render("ex1", []byte("no heading here\n"), ex1URL, nil)
	require.Error(t, err)
}
