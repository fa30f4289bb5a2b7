package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/labelrisk/internal/llm"
	"github.com/cognicore/labelrisk/pkg/labelrisk/internalerr"
)

// Config is the full runtime configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Reference ReferenceConfig `yaml:"reference"`
	AI        AIConfig        `yaml:"ai"`
	OCR       OCRConfig       `yaml:"ocr"`
	Log       LogConfig       `yaml:"log"`
}

// StorageConfig selects the backing store. DatabaseURL wins over DBPath.
type StorageConfig struct {
	DBPath      string `yaml:"db_path"`
	DatabaseURL string `yaml:"database_url"`
}

// ReferenceConfig points at optional data files; empty paths use the
// embedded defaults.
type ReferenceConfig struct {
	TablePath    string `yaml:"table"`
	LexiconPath  string `yaml:"lexicon"`
	StoplistPath string `yaml:"stoplist"`
}

// AIConfig configures the AI tier. The tier is considered configured when
// the provider has what it needs to make a call.
type AIConfig struct {
	Provider    string        `yaml:"provider"`
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	ListTimeout time.Duration `yaml:"list_timeout"`
	CacheSize   int           `yaml:"cache_size"`
}

// OCRConfig configures the OCR collaborator.
type OCRConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{DBPath: "labelrisk.db"},
		AI: AIConfig{
			Provider:    llm.ProviderOpenAI,
			Model:       "gpt-4o-mini",
			Timeout:     10 * time.Second,
			ListTimeout: 20 * time.Second,
			CacheSize:   256,
		},
		OCR: OCRConfig{Timeout: 15 * time.Second},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load builds the configuration from defaults, an optional YAML file, a
// .env file in the working directory and LABELRISK_* variables, in that
// order of increasing precedence.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, eris.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, eris.Wrapf(internalerr.ErrInvalidInput, "config %s: %v", path, err)
		}
	}
	_ = godotenv.Load()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from LABELRISK_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		d, err := parseDuration(v)
		if err != nil {
			return eris.Wrapf(internalerr.ErrInvalidInput, "%s: %v", key, err)
		}
		*dst = d
		return nil
	}

	str("LABELRISK_DB_PATH", &c.Storage.DBPath)
	str("LABELRISK_DATABASE_URL", &c.Storage.DatabaseURL)
	str("LABELRISK_AI_PROVIDER", &c.AI.Provider)
	str("LABELRISK_AI_ENDPOINT", &c.AI.Endpoint)
	str("LABELRISK_AI_MODEL", &c.AI.Model)
	str("LABELRISK_AI_API_KEY", &c.AI.APIKey)
	str("LABELRISK_OCR_ENDPOINT", &c.OCR.Endpoint)
	str("LABELRISK_OCR_API_KEY", &c.OCR.APIKey)
	str("LABELRISK_LOG_LEVEL", &c.Log.Level)
	if err := dur("LABELRISK_AI_TIMEOUT", &c.AI.Timeout); err != nil {
		return err
	}
	return nil
}

// parseDuration accepts Go durations ("10s") and bare milliseconds ("10000").
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if ms, err := strconv.Atoi(v); err == nil {
		if ms < 0 {
			return 0, eris.New("negative duration")
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, eris.New("negative duration")
	}
	return d, nil
}

// LLMSettings returns the chat backend settings for the AI tier.
func (c Config) LLMSettings() llm.Settings {
	return llm.Settings{
		Provider: c.AI.Provider,
		Endpoint: c.AI.Endpoint,
		APIKey:   c.AI.APIKey,
		Model:    c.AI.Model,
	}
}

// AIConfigured reports whether the AI tier can be attempted.
func (c Config) AIConfigured() bool {
	return c.LLMSettings().Configured()
}

// Loader returns a component loader for the reference files.
func (c Config) Loader() *Loader {
	return &Loader{
		TablePath:    c.Reference.TablePath,
		LexiconPath:  c.Reference.LexiconPath,
		StoplistPath: c.Reference.StoplistPath,
	}
}

// Stoplist represents the stop term list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stop terms from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, eris.Wrapf(internalerr.ErrInvalidInput, "stoplist %s: %v", path, err)
	}

	return &sl, nil
}
