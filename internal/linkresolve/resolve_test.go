package linkresolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "https://host/org/repo/tree/main/examples/ex1"

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{name: "parent segments", base: base, ref: "../../foo/bar.md", want: "https://host/org/repo/tree/main/foo/bar.md"},
		{name: "current dir", base: base, ref: "./src/index.ts", want: "https://host/org/repo/tree/main/examples/ex1/src/index.ts"},
		{name: "mixed dots", base: base, ref: "./../ex2/./README.md", want: "https://host/org/repo/tree/main/examples/ex2/README.md"},
		{name: "base with trailing slash", base: base + "/", ref: "../ex2", want: "https://host/org/repo/tree/main/examples/ex2"},
		{name: "keeps fragment", base: base, ref: "./guide.md#setup", want: "https://host/org/repo/tree/main/examples/ex1/guide.md#setup"},
		{name: "absolute untouched", base: base, ref: "https://other/x/../y", want: "https://other/x/../y"},
		{name: "mailto untouched", base: base, ref: "mailto:dev@example.com", want: "mailto:dev@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.base, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	first, err := Resolve(base, "../../foo/bar.md")
	require.NoError(t, err)
	second, err := Resolve(base, first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolve_Ambiguous(t *testing.T) {
	_, err := Resolve(base, "./bad%zzescape")
	require.ErrorIs(t, err, ErrAmbiguousLink)

	_, err = Resolve("not a url", "./x")
	require.ErrorIs(t, err, ErrAmbiguousLink)
}

func TestIsAbsolute(t *testing.T) {
	assert.True(t, IsAbsolute("https://x"))
	assert.True(t, IsAbsolute("mailto:a@b"))
	assert.False(t, IsAbsolute("./x"))
	assert.False(t, IsAbsolute("/assets/x.png"))
	assert.False(t, IsAbsolute("../a:b"))
}
