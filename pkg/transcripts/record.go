package transcripts

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strings"
	"time"

	"github.com/grovetools/telemetry/errors"
)

// Record is one decoded transcript line. Only the fields the engine reads are
// declared; everything else is ignored.
type Record struct {
	Type       string   `json:"type"`
	Timestamp  string   `json:"timestamp"`
	IsAPIError bool     `json:"isApiErrorMessage"`
	IsMeta     bool     `json:"isMeta"`
	Message    *Message `json:"message"`

	CostUSD      *float64    `json:"costUSD"`
	InputTokens  *float64    `json:"inputTokens"`
	OutputTokens *float64    `json:"outputTokens"`
	Usage        *TokenUsage `json:"usage"`
}

// Message is the nested message object of a record.
type Message struct {
	Role      string          `json:"role"`
	Timestamp string          `json:"timestamp"`
	Content   json.RawMessage `json:"content"`
	Usage     *TokenUsage     `json:"usage"`
}

// TokenUsage is a usage object as found under "usage" or "message.usage".
type TokenUsage struct {
	InputTokens  float64 `json:"input_tokens"`
	OutputTokens float64 `json:"output_tokens"`
}

// Block is one element of an array-valued message content.
type Block struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Text  string          `json:"text"`
	Input json.RawMessage `json:"input"`
}

// Record types the engine distinguishes.
const (
	TypeUser      = "user"
	TypeAssistant = "assistant"
)

// ParseRecord decodes one transcript line.
func ParseRecord(line []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(line, &r); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeParseError, "malformed transcript record")
	}
	return &r, nil
}

// Time returns the record timestamp, checking the top-level field before the
// nested message field.
func (r *Record) Time() (time.Time, bool) {
	if t, ok := parseTimestamp(r.Timestamp); ok {
		return t, true
	}
	if r.Message != nil {
		return parseTimestamp(r.Message.Timestamp)
	}
	return time.Time{}, false
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Blocks returns the content blocks of an array-valued message content.
func (r *Record) Blocks() []Block {
	if r.Message == nil || len(r.Message.Content) == 0 || r.Message.Content[0] != '[' {
		return nil
	}
	var blocks []Block
	if err := json.Unmarshal(r.Message.Content, &blocks); err != nil {
		return nil
	}
	return blocks
}

// PlainText returns the user-authored text of a record: string content, or
// the text blocks of array content. Records whose array content has no text
// block (tool results) return false.
func (r *Record) PlainText() (string, bool) {
	if r.Message == nil || len(r.Message.Content) == 0 {
		return "", false
	}
	if r.Message.Content[0] == '"' {
		var s string
		if err := json.Unmarshal(r.Message.Content, &s); err != nil {
			return "", false
		}
		return s, true
	}
	var parts []string
	for _, b := range r.Blocks() {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n"), true
}

// Tokens rounds a token count to an integer, treating negatives and NaN as 0.
func Tokens(v float64) int64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Round(v))
}

// ScanLines calls fn for every line of r with its zero-based line index. Lines
// of any length are supported. Returning false from fn stops the scan.
func ScanLines(r io.Reader, fn func(index int, line []byte) bool) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for index := 0; ; index++ {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if !fn(index, bytes.TrimRight(line, "\r\n")) {
				return nil
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// IsBlank reports whether a line holds only whitespace.
func IsBlank(line []byte) bool {
	return len(bytes.TrimSpace(line)) == 0
}
