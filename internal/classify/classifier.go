package classify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/joseph-ayodele/invoice-checker/internal/entity"
)

// TextSource yields the text a document is classified by (its first page).
type TextSource interface {
	FirstPageText(ctx context.Context, path string) (string, error)
}

// RuleSource provides rules in priority order plus the fallback rule.
type RuleSource interface {
	Rules() []entity.InvoiceTypeRule
	Default() entity.InvoiceTypeRule
}

// Classifier picks the invoice type of a document. The first non-default rule whose include
// patterns all match and whose exclude patterns all miss wins.
type Classifier struct {
	text   TextSource
	rules  RuleSource
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

func NewClassifier(text TextSource, rules RuleSource, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{text: text, rules: rules, logger: logger, cache: map[string]*regexp.Regexp{}}
}

// Default returns the fallback rule.
func (c *Classifier) Default() entity.InvoiceTypeRule {
	return c.rules.Default()
}

// Classify reads the document text and matches it. Text extraction failures are returned
// as errors; callers fall back to Default.
func (c *Classifier) Classify(ctx context.Context, path string) (entity.InvoiceTypeRule, error) {
	text, err := c.text.FirstPageText(ctx, path)
	if err != nil {
		return c.Default(), fmt.Errorf("read first page: %w", err)
	}
	return c.Match(text), nil
}

// Match classifies already extracted text.
func (c *Classifier) Match(text string) entity.InvoiceTypeRule {
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("no text to classify, using default type")
		return c.Default()
	}
	for _, rule := range c.rules.Rules() {
		if rule.IsDefault() {
			continue
		}
		if c.matches(rule, text) {
			c.logger.Info("invoice type detected", "type", rule.Type, "keyword", rule.IdentifyingKeyword())
			return rule
		}
	}
	def := c.Default()
	c.logger.Info("no invoice type matched, using default", "keyword", def.IdentifyingKeyword())
	return def
}

func (c *Classifier) matches(rule entity.InvoiceTypeRule, text string) bool {
	incl := rule.IncludePatterns()
	if len(incl) == 0 {
		return false
	}
	for _, p := range incl {
		if !c.found(p, text) {
			return false
		}
	}
	for _, p := range rule.ExcludePatterns() {
		if c.found(p, text) {
			return false
		}
	}
	return true
}

// found reports whether pattern occurs anywhere in text, case-insensitive and with '.'
// matching newlines. Invalid patterns never match.
func (c *Classifier) found(pattern, text string) bool {
	re := c.compile(pattern)
	return re != nil && re.MatchString(text)
}

func (c *Classifier) compile(pattern string) *regexp.Regexp {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.cache[pattern]; ok {
		return re
	}
	re, err := regexp.Compile("(?is)" + pattern)
	if err != nil {
		c.logger.Error("invalid keyword pattern", "pattern", pattern, "error", err)
		re = nil
	}
	c.cache[pattern] = re
	return re
}
