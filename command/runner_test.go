package command

import (
	"context"
	"testing"
	"time"

	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerOutput(t *testing.T) {
	fake := testutil.NewFakeExecutor().On("ps -axo pid=", "  42\n")
	out, err := NewRunnerWithExecutor(fake).Output(context.Background(), "ps", "-axo", "pid=")
	require.NoError(t, err)
	assert.Equal(t, "  42\n", string(out))
	assert.Equal(t, []string{"ps -axo pid="}, fake.Calls())
}

func TestRunnerFailure(t *testing.T) {
	_, err := NewRunnerWithExecutor(testutil.NewFakeExecutor()).Output(context.Background(), "lsof", "-p", "1")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCommandFailed, errors.GetCode(err))
}

func TestRunnerMissingBinary(t *testing.T) {
	_, err := NewRunner().Output(context.Background(), "telemetry-no-such-binary")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCommandNotFound, errors.GetCode(err))
}

func TestRunnerRejectsEmptyName(t *testing.T) {
	_, err := NewRunner().Output(context.Background(), "")
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
}

func TestWithTimeoutClamps(t *testing.T) {
	r := NewRunner().WithTimeout(time.Hour)
	assert.Equal(t, MaxTimeout, r.timeout)
	r.WithTimeout(0)
	assert.Equal(t, MaxTimeout, r.timeout)
}
