package areaconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/joseph-ayodele/invoice-checker/internal/common"
	"github.com/joseph-ayodele/invoice-checker/internal/entity"
)

const fileExt = ".json"

var reUnsafe = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// Store persists named region configs as one JSON file each.
type Store struct {
	dir    string
	logger *slog.Logger
}

func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, common.NewAppError(common.CodeConfiguration, "create config dir "+dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) Dir() string { return s.dir }

// FileName maps a config name to its file name.
func FileName(name string) string {
	return reUnsafe.ReplaceAllString(strings.TrimSpace(name), "_") + fileExt
}

// Save writes cfg, replacing any config with the same name.
func (s *Store) Save(cfg *entity.ExtractionConfig) error {
	if cfg == nil {
		return common.NewAppError(common.CodeInput, "config is nil", common.ErrInvalidInput)
	}
	v := common.NewValidator().Field("name", cfg.Name, common.Required, common.MaxLength(120))
	if err := common.ValidateAndReturnError(v); err != nil {
		return err
	}

	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config %q: %w", cfg.Name, err)
	}
	path := filepath.Join(s.dir, FileName(cfg.Name))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write config %q: %w", cfg.Name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace config %q: %w", cfg.Name, err)
	}
	s.logger.Info("config saved", "name", cfg.Name, "path", path)
	return nil
}

// Load reads the config with the given name. A missing file yields ErrNotFound.
func (s *Store) Load(name string) (*entity.ExtractionConfig, error) {
	if strings.TrimSpace(name) == "" {
		return nil, common.NewAppError(common.CodeInput, "config name is required", common.ErrInvalidInput)
	}
	path := filepath.Join(s.dir, FileName(name))
	cfg, err := s.readFile(path)
	if err != nil {
		return nil, err
	}
	if cfg.Name != strings.TrimSpace(name) {
		s.logger.Warn("config name differs from requested name, correcting", "file", path, "stored", cfg.Name, "requested", name)
		cfg.Name = strings.TrimSpace(name)
	}
	return cfg, nil
}

func (s *Store) readFile(path string) (*entity.ExtractionConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.NewAppError(common.CodeNotFound, "config "+filepath.Base(path), common.ErrNotFound)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg entity.ExtractionConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, common.NewAppError(common.CodeInput, "decode config "+filepath.Base(path), err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Delete removes a config; deleting a missing config is not an error.
func (s *Store) Delete(name string) error {
	err := os.Remove(filepath.Join(s.dir, FileName(name)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete config %q: %w", name, err)
	}
	return nil
}

// LoadAll reads every config in the directory, sorted by name case-insensitively.
// Unreadable files are logged and skipped.
func (s *Store) LoadAll() ([]*entity.ExtractionConfig, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	var out []*entity.ExtractionConfig
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), fileExt) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		cfg, err := s.readFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable config", "path", path, "error", err)
			continue
		}
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if FileName(cfg.Name) != e.Name() {
			s.logger.Warn("config name does not match file name, using file name", "path", path, "stored", cfg.Name)
			cfg.Name = base
		}
		out = append(out, cfg)
	}
	slices.SortFunc(out, func(a, b *entity.ExtractionConfig) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out, nil
}

// List returns the names of all configs, sorted case-insensitively.
func (s *Store) List() ([]string, error) {
	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for _, c := range all {
		names = append(names, c.Name)
	}
	return names, nil
}
