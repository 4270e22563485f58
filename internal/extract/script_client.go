package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-checker/constants"
	"github.com/joseph-ayodele/invoice-checker/internal/common"
	"github.com/joseph-ayodele/invoice-checker/internal/runner"
)

// Config locates the extraction tool.
type Config struct {
	Interpreter string
	ScriptPath  string
	Timeout     time.Duration
}

// ScriptClient invokes the table-extraction script as "interpreter script --pdf-path ...".
type ScriptClient struct {
	cfg    Config
	runner runner.Runner
	logger *slog.Logger
}

func NewScriptClient(cfg Config, r runner.Runner, logger *slog.Logger) *ScriptClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = runner.DefaultTimeout
	}
	if r == nil {
		r = runner.NewExecRunner(cfg.Timeout, logger)
	}
	return &ScriptClient{cfg: cfg, runner: r, logger: logger}
}

// Extract runs one request. Every failure ends up in the returned Outcome.
func (c *ScriptClient) Extract(ctx context.Context, req Request) Outcome {
	out := Outcome{SourcePDF: filepath.Base(req.Path), FullPath: req.Path}
	logger := c.logger.With(append(common.LogAttrs(ctx), "path", req.Path, "pages", req.Pages)...)

	if strings.TrimSpace(req.Path) == "" {
		return fail(out, common.CodeInput, "no PDF path given", common.ErrInput)
	}
	if !fileExists(c.cfg.ScriptPath) {
		logger.Error("extraction script not found", "script", c.cfg.ScriptPath)
		return fail(out, common.CodeConfiguration, "extraction script not found", common.ErrConfiguration)
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil || !fileExists(abs) {
		logger.Error("input pdf not found")
		return fail(out, common.CodeInput, "input PDF file not found", common.ErrInput)
	}
	out.FullPath = abs

	args := append([]string{c.cfg.ScriptPath}, BuildArgs(abs, req, logger)...)
	start := time.Now()
	res, runErr := c.runner.Run(ctx, c.cfg.Interpreter, args...)

	switch {
	case errors.Is(runErr, runner.ErrNotFound):
		logger.Error("interpreter not found", "interpreter", c.cfg.Interpreter)
		return fail(out, common.CodeConfiguration, fmt.Sprintf("interpreter %q not found", c.cfg.Interpreter), common.ErrConfiguration)
	case res.TimedOut:
		// the deadline that fired may be the caller's, shorter than the configured timeout
		elapsed := res.Duration
		if elapsed <= 0 {
			elapsed = time.Since(start)
		}
		return fail(out, common.CodeProcess,
			fmt.Sprintf("extraction script failed (exit code: %d, timeout after %s)", runner.ExitTimeout, elapsed.Round(time.Millisecond)), common.ErrProcess)
	case runErr != nil:
		detail := res.FirstStderrLine
		// a fatal script error still prints a JSON object carrying "error"
		if p, err := decodePayload(bytes.TrimSpace(res.Stdout)); err == nil && deref(p.Error) != "" {
			detail = deref(p.Error)
		}
		if detail == "" {
			detail = "see log for details"
		}
		return fail(out, common.CodeProcess,
			fmt.Sprintf("extraction script failed (exit code: %d). %s", res.ExitCode, detail), common.ErrProcess)
	}

	stdout := bytes.TrimSpace(res.Stdout)
	if len(stdout) == 0 {
		msg := "extraction script returned empty output"
		if res.FirstStderrLine != "" {
			msg += ". possible hint: " + res.FirstStderrLine
		}
		return fail(out, common.CodeProtocol, msg, common.ErrProtocol)
	}

	p, err := decodePayload(stdout)
	if err != nil {
		logger.Error("invalid result payload", "error", err, "stdout", truncate(string(stdout), 1000))
		msg := "invalid JSON output from extraction script"
		if res.FirstStderrLine != "" {
			msg += " (stderr hint: '" + res.FirstStderrLine + "')"
		} else {
			msg += ": " + err.Error()
		}
		return fail(out, common.CodeProtocol, msg, errors.Join(common.ErrProtocol, err))
	}

	if s := deref(p.SourcePDF); s != "" {
		out.SourcePDF = s
	}
	if s := deref(p.FullPath); s != "" {
		out.FullPath = s
	}
	out.BillingPeriodStart = strings.TrimSpace(deref(p.BillingPeriodStart))
	out.BillingPeriodEnd = strings.TrimSpace(deref(p.BillingPeriodEnd))
	out.Tables = p.tables()
	if e := strings.TrimSpace(deref(p.Error)); e != "" {
		logger.Warn("extraction script reported an error", "error", e)
		out.Error = e
	}

	logger.Info("extraction ok",
		"tables", len(out.Tables),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// BuildArgs renders the tool flags for req. Row tolerance is only passed for stream.
func BuildArgs(absPath string, req Request, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}
	flavor, ok := constants.ParseFlavor(req.Params.Flavor)
	if !ok {
		if strings.TrimSpace(req.Params.Flavor) != "" {
			logger.Warn("unknown flavor, using default", "flavor", req.Params.Flavor, "default", constants.DefaultFlavor)
		}
		flavor = constants.DefaultFlavor
	}

	args := []string{"--pdf-path", absPath, "--flavor", string(flavor)}

	if rt := strings.TrimSpace(req.Params.RowTol); rt != "" {
		switch {
		case flavor != constants.Stream:
			logger.Warn("row tolerance ignored for flavor", "flavor", flavor, "row_tol", rt)
		default:
			if n, err := strconv.Atoi(rt); err != nil {
				logger.Warn("invalid row tolerance dropped", "row_tol", rt)
			} else {
				args = append(args, "--row-tol", strconv.Itoa(n))
			}
		}
	}

	pages := strings.TrimSpace(req.Pages)
	if pages == "" {
		logger.Warn("empty page selector, using all")
		pages = constants.PageAll
	}
	args = append(args, "--page", pages)

	if len(req.Regions) > 0 {
		args = append(args, "--table-areas")
		args = append(args, req.Regions...)
	}
	return args
}

func fail(out Outcome, code, msg string, cause error) Outcome {
	out.Error = msg
	out.Err = common.NewAppError(code, msg, cause)
	return out
}

func fileExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
