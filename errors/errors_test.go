package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroveError(t *testing.T) {
	err := New(ErrCodeNotFound, "transcript not found")
	assert.Equal(t, ErrCodeNotFound, err.Code)

	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeProcessError, "spawn failed")
	assert.Equal(t, cause, wrapped.Unwrap())

	assert.True(t, Is(wrapped, ErrCodeProcessError))
	assert.False(t, Is(wrapped, ErrCodeNotFound))

	detailed := err.WithDetail("session", "abc").WithDetail("line", 3)
	assert.Equal(t, "abc", detailed.Details["session"])
}

func TestIsThroughFmtWrapping(t *testing.T) {
	inner := NotFound("session", "abc")
	outer := fmt.Errorf("lookup: %w", inner)

	assert.True(t, Is(outer, ErrCodeNotFound))
	got, ok := As(outer)
	require.True(t, ok)
	assert.Equal(t, "abc", got.Details["name"])

	_, ok = As(fmt.Errorf("plain"))
	assert.False(t, ok)
	assert.Equal(t, ErrorCode(""), GetCode(nil))
}

func TestErrorConstructors(t *testing.T) {
	err := ProcessFailed("spawn", "pty-1", fmt.Errorf("no such file"))
	assert.Equal(t, ErrCodeProcessError, err.Code)
	assert.Equal(t, "spawn", err.Details["op"])
	assert.Contains(t, err.Error(), "no such file")

	err = EnumerationFailed("processes", fmt.Errorf("ps missing"))
	assert.Equal(t, ErrCodeEnumerationError, err.Code)

	err = ParseFailed("/tmp/a.jsonl", 7, fmt.Errorf("bad json"))
	assert.Equal(t, 7, err.Details["line"])

	err = InvalidInput("filter", "unknown category")
	assert.Equal(t, ErrCodeInvalidInput, err.Code)
	assert.Contains(t, err.ToJSON(), "INVALID_INPUT")
}
