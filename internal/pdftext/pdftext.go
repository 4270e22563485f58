package pdftext

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/invoice-checker/internal/runner"
)

// Extractor reads the text layer of a PDF with pdftotext.
type Extractor struct {
	binary string
	runner runner.Runner
	logger *slog.Logger
}

func NewExtractor(binary string, r runner.Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if binary == "" {
		binary = "pdftotext"
	}
	if r == nil {
		r = runner.NewExecRunner(0, logger)
	}
	return &Extractor{binary: binary, runner: r, logger: logger}
}

// FirstPageText returns the normalized text of page 1.
func (e *Extractor) FirstPageText(ctx context.Context, path string) (string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix -f 1 -l 1 <path> -
	res, err := e.runner.Run(ctx, e.binary, "-layout", "-enc", "UTF-8", "-eol", "unix", "-f", "1", "-l", "1", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext %s: %w (%s)", path, err, res.FirstStderrLine)
	}
	text := Normalize(string(res.Stdout))
	e.logger.Debug("pdftext.first_page.ok", "path", path, "chars", len(text))
	return text, nil
}
