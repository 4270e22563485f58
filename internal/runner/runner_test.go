package runner

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerSeparatesStreams(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(5*time.Second, nil)

	res, err := r.Run(context.Background(), "sh", "-c", `echo '{"ok":true}'; echo "first warning" >&2; echo "second" >&2`)
	require.NoError(t, err)
	assert.Equal(t, "{\"ok\":true}\n", string(res.Stdout))
	assert.Equal(t, "first warning", res.FirstStderrLine)
	assert.Contains(t, string(res.Stderr), "second")
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(5*time.Second, nil)

	res, err := r.Run(context.Background(), "sh", "-c", `echo "boom" >&2; exit 3`)
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "boom", res.FirstStderrLine)
}

func TestExecRunnerTimeoutKillsProcess(t *testing.T) {
	requireShell(t)
	r := NewExecRunner(200*time.Millisecond, nil)
	r.WaitDelay = 200 * time.Millisecond

	start := time.Now()
	res, err := r.Run(context.Background(), "sh", "-c", "sleep 10")
	require.Error(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, ExitTimeout, res.ExitCode)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecRunnerMissingExecutable(t *testing.T) {
	r := NewExecRunner(time.Second, nil)
	_, err := r.Run(context.Background(), "definitely-not-a-real-binary-4711")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...(truncated)", truncate("abcdef", 2))
}
