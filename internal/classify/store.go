package classify

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/joseph-ayodele/invoice-checker/constants"
	"github.com/joseph-ayodele/invoice-checker/internal/common"
	"github.com/joseph-ayodele/invoice-checker/internal/entity"
)

const ruleColumns = 9

var header = []string{
	"Type", "KeywordIncl1", "KeywordIncl2", "KeywordIncl3",
	"KeywordExcl1", "KeywordExcl2", "AreaType", "Flavor", "RowTol",
}

// defaultRules seed a rule file that does not exist yet.
var defaultRules = []entity.InvoiceTypeRule{
	entity.NewInvoiceTypeRule("Grid operator", `E\.DIS.*`, "", "", "", "", "Config", "lattice", "2"),
	entity.NewInvoiceTypeRule("Grid operator", `Avacon.* AG`, "", "", "", "", entity.ManualAreaConfig, "lattice", "2"),
	entity.NewInvoiceTypeRule("Grid operator", "WEMAG", "", "", "", "", entity.ManualAreaConfig, "lattice", "2"),
	entity.NewInvoiceTypeRule("Direct marketer", "Interconnector", "", "", "", "", entity.ManualAreaConfig, "lattice", "2"),
	entity.NewInvoiceTypeRule("Direct marketer", "Next Kraftwerke", "", "", "", "", "Config", "lattice", "2"),
	entity.NewInvoiceTypeRule(entity.DefaultTypeKeyword, entity.DefaultTypeKeyword, "", "", "", "", entity.ManualAreaConfig, "stream", "5"),
}

// Store keeps invoice-type rules in a ';'-separated file with a header row.
// Lines starting with '#' are comments.
type Store struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	rules    []entity.InvoiceTypeRule
	fallback entity.InvoiceTypeRule
}

// NewStore makes sure the rule file exists (writing defaults if needed) and loads it.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger, fallback: entity.DefaultInvoiceTypeRule()}
	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) ensureFile() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat rule file: %w", err)
	}
	s.logger.Info("rule file not found, writing defaults", "path", s.path)
	return s.write(defaultRules)
}

// Reload re-reads the rule file. Rows with fewer than nine columns are skipped.
func (s *Store) Reload() error {
	f, err := os.Open(s.path)
	if err != nil {
		s.setRules(nil)
		return fmt.Errorf("open rule file: %w", err)
	}
	defer f.Close()

	rules, err := parseRules(f, s.logger)
	if err != nil {
		s.setRules(nil)
		return fmt.Errorf("read rule file %s: %w", s.path, err)
	}
	s.setRules(rules)
	s.logger.Info("invoice types loaded", "path", s.path, "rules", len(rules))
	return nil
}

func parseRules(r io.Reader, logger *slog.Logger) ([]entity.InvoiceTypeRule, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rules []entity.InvoiceTypeRule
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			continue
		}
		if len(rec) < ruleColumns {
			line, _ := cr.FieldPos(0)
			logger.Warn("skipping invalid rule row", "line", line, "columns", len(rec), "expected", ruleColumns)
			continue
		}
		rule := entity.NewInvoiceTypeRule(rec[0], rec[1], rec[2], rec[3], rec[4], rec[5], rec[6], rec[7], rec[8])
		if rule.IdentifyingKeyword() == "" {
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (s *Store) setRules(rules []entity.InvoiceTypeRule) {
	fallback := entity.DefaultInvoiceTypeRule()
	found := false
	for _, r := range rules {
		if r.IsDefault() {
			fallback, found = r, true
			break
		}
	}
	if !found {
		s.logger.Warn("no default rule in rule file, using internal fallback", "keyword", entity.DefaultTypeKeyword)
	}

	s.mu.Lock()
	s.rules = rules
	s.fallback = fallback
	s.mu.Unlock()
}

// Rules returns a copy of the loaded rules in file order.
func (s *Store) Rules() []entity.InvoiceTypeRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entity.InvoiceTypeRule(nil), s.rules...)
}

// Default returns the "Others" rule, or the internal fallback.
func (s *Store) Default() entity.InvoiceTypeRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fallback
}

// Save validates and writes rules, then reloads them.
func (s *Store) Save(rules []entity.InvoiceTypeRule) error {
	for i, r := range rules {
		if err := ValidateRule(r); err != nil {
			return fmt.Errorf("rule %d: %w", i+1, err)
		}
	}
	if err := s.write(rules); err != nil {
		return err
	}
	return s.Reload()
}

// ValidateRule checks a rule before it is persisted.
func ValidateRule(r entity.InvoiceTypeRule) error {
	v := common.NewValidator().
		Field("type", r.Type, common.Required).
		Field("keyword_incl_1", r.KeywordIncl1, common.Required, common.Regexp).
		Field("keyword_incl_2", r.KeywordIncl2, common.Regexp).
		Field("keyword_incl_3", r.KeywordIncl3, common.Regexp).
		Field("keyword_excl_1", r.KeywordExcl1, common.Regexp).
		Field("keyword_excl_2", r.KeywordExcl2, common.Regexp).
		Field("flavor", r.DefaultFlavor, common.OneOf(constants.Flavors()...)).
		Field("row_tol", r.DefaultRowTol, common.Integer)
	return common.ValidateAndReturnError(v)
}

func (s *Store) write(rules []entity.InvoiceTypeRule) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create rule dir: %w", err)
	}
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create rule file: %w", err)
	}

	if err := errors.Join(writeRules(f, rules), f.Close()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write rule file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace rule file: %w", err)
	}
	s.logger.Info("rule file written", "path", s.path, "rules", len(rules))
	return nil
}

func writeRules(out io.Writer, rules []entity.InvoiceTypeRule) error {
	w := csv.NewWriter(out)
	w.Comma = ';'
	_ = w.Write(header)
	for _, r := range rules {
		_ = w.Write([]string{
			r.Type, r.KeywordIncl1, r.KeywordIncl2, r.KeywordIncl3,
			r.KeywordExcl1, r.KeywordExcl2, r.AreaType, r.DefaultFlavor, r.DefaultRowTol,
		})
	}
	w.Flush()
	return w.Error()
}
