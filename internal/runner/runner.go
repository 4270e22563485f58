package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds one subprocess run.
const DefaultTimeout = 90 * time.Second

// ExitTimeout is reported as the exit code of a process killed on timeout.
const ExitTimeout = -1

// ErrNotFound is returned when the executable cannot be located.
var ErrNotFound = errors.New("executable not found")

// Result is what a finished (or killed) process left behind.
type Result struct {
	Stdout          []byte
	Stderr          []byte
	FirstStderrLine string
	ExitCode        int
	TimedOut        bool
	Duration        time.Duration
}

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs commands with os/exec. Stdout and stderr go to separate buffers.
type ExecRunner struct {
	Timeout time.Duration
	// WaitDelay bounds how long output pipes are drained after the process was killed.
	WaitDelay time.Duration
	Logger    *slog.Logger
}

func NewExecRunner(timeout time.Duration, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{Timeout: timeout, WaitDelay: 2 * time.Second, Logger: logger}
}

// Run starts name with args and waits for it. A non-zero exit is reported through
// Result.ExitCode together with a non-nil error; a timeout sets TimedOut and ExitTimeout.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if _, err := exec.LookPath(name); err != nil {
		return Result{ExitCode: ExitTimeout}, errors.Join(ErrNotFound, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmdLine := strings.Join(append([]string{name}, args...), " ")
	logger.Debug("running command", "cmd_line", cmdLine, "timeout", timeout)

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.WaitDelay = r.WaitDelay
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	res := Result{
		Stdout:   out.Bytes(),
		Stderr:   errb.Bytes(),
		Duration: time.Since(start),
	}
	res.FirstStderrLine = logStderr(logger, name, errb.Bytes())

	if runCtx.Err() != nil {
		res.ExitCode = ExitTimeout
		res.TimedOut = errors.Is(runCtx.Err(), context.DeadlineExceeded)
		logger.Error("exec aborted",
			"cmd", name,
			"duration_ms", res.Duration.Milliseconds(),
			"timed_out", res.TimedOut,
			"error", runCtx.Err(),
		)
		return res, runCtx.Err()
	}

	if err != nil {
		res.ExitCode = exitCode(err)
		logger.Error("exec failed",
			"cmd", name,
			"duration_ms", res.Duration.Milliseconds(),
			"exit_code", res.ExitCode,
			"error", err,
			"stderr", truncate(errb.String(), 8<<10), // cap at 8KB
		)
		return res, err
	}

	logger.Debug("exec ok",
		"cmd", name,
		"args", strings.Join(args, " "),
		"duration_ms", res.Duration.Milliseconds(),
		"stdout_bytes", out.Len(),
		"stderr_bytes", errb.Len(),
	)
	return res, nil
}

func exitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return ExitTimeout
}

// logStderr logs each non-blank stderr line and returns the first one.
func logStderr(logger *slog.Logger, name string, stderr []byte) string {
	first := ""
	sc := bufio.NewScanner(bytes.NewReader(stderr))
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if first == "" {
			first = line
		}
		logger.Warn("subprocess stderr", "cmd", name, "line", line)
	}
	return first
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
