package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		file    string
		want    Locale
		wantErr bool
	}{
		{file: "README.md", want: Default},
		{file: "README.mdx", want: Default},
		{file: "readme.md", want: Default},
		{file: "README_zh.md", want: Secondary},
		{file: "README_zh.mdx", want: Secondary},
		{file: "README_ja.md", wantErr: true},
		{file: "README-zh.md", wantErr: true},
		{file: "GUIDE.md", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, err := Classify(tt.file, "_zh")
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownSuffix)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCodes(t *testing.T) {
	c := Codes{Default: "en", Secondary: "zh-CN", Marker: "_zh"}
	assert.Equal(t, "en", c.Code(Default))
	assert.Equal(t, "zh-CN", c.Code(Secondary))
	assert.Equal(t, "secondary", Secondary.String())
}
