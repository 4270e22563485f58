package common

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Extractor ExtractorConfig
	PDFText   PDFTextConfig
	Storage   StorageConfig
	Workers   WorkersConfig
	Log       LogConfig
}

// ExtractorConfig holds the table-extraction subprocess settings
type ExtractorConfig struct {
	Interpreter string
	ScriptPath  string
	Timeout     time.Duration
}

// PDFTextConfig holds the first-page text tool used for invoice type detection
type PDFTextConfig struct {
	Binary  string
	Timeout time.Duration
}

// StorageConfig holds the locations of region configs and invoice-type rules
type StorageConfig struct {
	ConfigDir       string
	InvoiceTypesCSV string
}

// WorkersConfig holds worker pool settings
type WorkersConfig struct {
	Count         int
	QueueSize     int
	ShutdownGrace time.Duration
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// scriptCandidates are probed in order when EXTRACTOR_SCRIPT is not set.
var scriptCandidates = []string{
	"scripts/extract_tables.py",
	"target/scripts/extract_tables.py",
	"../scripts/extract_tables.py",
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Extractor: ExtractorConfig{
			Interpreter: getEnv("EXTRACTOR_PYTHON", "python3"),
			ScriptPath:  getEnv("EXTRACTOR_SCRIPT", findScript(scriptCandidates)),
			Timeout:     getEnvAsDuration("EXTRACTOR_TIMEOUT", 90*time.Second),
		},
		PDFText: PDFTextConfig{
			Binary:  getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Timeout: getEnvAsDuration("PDFTOTEXT_TIMEOUT", 20*time.Second),
		},
		Storage: StorageConfig{
			ConfigDir:       getEnv("CONFIG_DIR", "./configs"),
			InvoiceTypesCSV: getEnv("INVOICE_TYPES_CSV", "./configs/invoice-types.csv"),
		},
		Workers: WorkersConfig{
			Count:         getEnvAsInt("WORKERS", runtime.NumCPU()),
			QueueSize:     getEnvAsInt("QUEUE_SIZE", 256),
			ShutdownGrace: getEnvAsDuration("SHUTDOWN_GRACE", 5*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// findScript returns the first existing candidate, or the first candidate so the
// resulting error names a sensible path.
func findScript(candidates []string) string {
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			if abs, err := filepath.Abs(c); err == nil {
				return abs
			}
			return c
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Extractor.Interpreter == "" {
		return NewAppError(CodeConfiguration, "EXTRACTOR_PYTHON is required", ErrInvalidInput)
	}
	if c.Extractor.ScriptPath == "" {
		return NewAppError(CodeConfiguration, "EXTRACTOR_SCRIPT is required", ErrInvalidInput)
	}
	if c.Extractor.Timeout <= 0 {
		return NewAppError(CodeConfiguration, "EXTRACTOR_TIMEOUT must be positive", ErrInvalidInput)
	}
	if c.Workers.Count <= 0 {
		return NewAppError(CodeConfiguration, "WORKERS must be positive", ErrInvalidInput)
	}
	if c.Storage.ConfigDir == "" {
		return NewAppError(CodeConfiguration, "CONFIG_DIR is required", ErrInvalidInput)
	}
	return nil
}
