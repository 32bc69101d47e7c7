package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShorten(t *testing.T) {
	s := NewShortener("/home/dev")
	tests := map[string]string{
		"/home/dev":                 "~",
		"/home/dev/src/app/main.go": "~/src/app/main.go",
		"/home/developer/x":         "/home/developer/x",
		"/a/b/c/d":                  "/a/b/c/d",
		"/a/b/c/d/e":                ".../c/d/e",
		"relative/path.go":          "relative/path.go",
		"":                          "",
	}
	for in, want := range tests {
		assert.Equal(t, want, s.Shorten(in), in)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab...", Truncate("abcdefgh", 5))
	assert.Equal(t, "日本...", Truncate("日本語のテキスト", 5))
	assert.Equal(t, "", Truncate("abc", 0))
}

func TestCleanLabel(t *testing.T) {
	assert.Equal(t, "hello world", CleanLabel("<b>hello</b>\n\n  world", 80))
	assert.Equal(t, "", CleanLabel("<tag></tag>", 80))
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", OneLine("a\nb\r\nc"))
}
