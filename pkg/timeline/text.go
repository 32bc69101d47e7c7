package timeline

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagRegex        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Truncate shortens s to at most n runes, ending in "..." when cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// OneLine collapses newlines to spaces.
func OneLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}

// CleanLabel strips markup tags, collapses whitespace and truncates to n.
func CleanLabel(s string, n int) string {
	s = tagRegex.ReplaceAllString(s, " ")
	s = strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
	return Truncate(s, n)
}

// Shortener abbreviates paths for display.
type Shortener struct {
	home string
}

// NewShortener creates a Shortener for the given home directory. An empty
// home uses the current user's.
func NewShortener(home string) Shortener {
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return Shortener{home: filepath.Clean(home)}
}

// Shorten replaces a home prefix with "~"; other paths with more than four
// segments keep only the last three behind ".../".
func (s Shortener) Shorten(path string) string {
	if path == "" {
		return ""
	}
	slashed := filepath.ToSlash(path)
	if s.home != "" && s.home != "." && s.home != string(filepath.Separator) {
		home := filepath.ToSlash(s.home)
		if slashed == home {
			return "~"
		}
		if strings.HasPrefix(slashed, home+"/") {
			return "~" + slashed[len(home):]
		}
	}
	var segments []string
	for _, seg := range strings.Split(slashed, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) > 4 {
		return ".../" + strings.Join(segments[len(segments)-3:], "/")
	}
	return path
}
