package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/john-shalamon/exam-hall-system/constants"
)

const (
	// EnvPrefix scopes environment overrides, e.g. EXAMHALL_DATABASE__DSN.
	EnvPrefix = "EXAMHALL_"
	// EnvConfigPath names an optional YAML config file.
	EnvConfigPath = "EXAMHALL_CONFIG"
)

// Config holds all application configuration
type Config struct {
	LogLevel string         `koanf:"log_level"`
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	OCR      OCRConfig      `koanf:"ocr"`
	Ingest   IngestConfig   `koanf:"ingest"`
	LLM      LLMConfig      `koanf:"llm"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `koanf:"driver"` // "postgres" | "sqlite"
	DSN              string        `koanf:"dsn"`
	MaxConns         int32         `koanf:"max_conns"`
	MinConns         int32         `koanf:"min_conns"`
	MaxConnLifetime  time.Duration `koanf:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `koanf:"max_conn_idle_time"`
	DialTimeout      time.Duration `koanf:"dial_timeout"`
	StatementTimeout time.Duration `koanf:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string   `koanf:"http_addr"`
	GRPCAddr       string   `koanf:"grpc_addr"`
	AllowedOrigins []string `koanf:"allowed_origins"`
	MaxUploadBytes int64    `koanf:"max_upload_bytes"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract           string `koanf:"tesseract"`
	Lang                string `koanf:"lang"`
	TessdataDir         string `koanf:"tessdata_dir"`
	PSM                 int    `koanf:"psm"`
	OEM                 int    `koanf:"oem"`
	HeicConverter       string `koanf:"heic_converter"`
	EnableTSVConfidence bool   `koanf:"enable_tsv_confidence"`
	ArtifactCacheDir    string `koanf:"artifact_cache_dir"`
}

// LLMConfig configures the llm-v1 structuring strategy.
type LLMConfig struct {
	BaseURL     string        `koanf:"base_url"`
	Model       string        `koanf:"model"`
	APIKey      string        `koanf:"api_key"`
	Temperature float32       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
}

// IngestConfig holds ingestion pipeline configuration
type IngestConfig struct {
	BatchSize       int           `koanf:"batch_size"`
	AcceptanceCheck bool          `koanf:"acceptance_check"`
	Strategy        string        `koanf:"strategy"`
	QueueSize       int           `koanf:"queue_size"`
	RunTimeout      time.Duration `koanf:"run_timeout"`
	WatchDirs       []string      `koanf:"watch_dirs"`
	WatchInclude    []string      `koanf:"watch_include"`
	WatchDebounce   time.Duration `koanf:"watch_debounce"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxConns:        20,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:       ":8080",
			GRPCAddr:       ":9090",
			AllowedOrigins: []string{"*"},
			MaxUploadBytes: 20 << 20,
		},
		OCR: OCRConfig{
			Tesseract:        "tesseract",
			Lang:             "eng",
			HeicConverter:    "magick",
			ArtifactCacheDir: "./tmp",
		},
		Ingest: IngestConfig{
			BatchSize:       constants.DefaultBatchSize,
			AcceptanceCheck: true,
			Strategy:        "positional-v1",
			QueueSize:       64,
			RunTimeout:      5 * time.Minute,
			WatchDebounce:   500 * time.Millisecond,
		},
		LLM: LLMConfig{
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
	}
}

// LoadConfig layers defaults, an optional YAML file, and EXAMHALL_* environment
// variables (low -> high precedence). path overrides EXAMHALL_CONFIG when set.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("load %s", path), err)
		}
	}

	// EXAMHALL_DATABASE__DSN -> database.dsn, EXAMHALL_LOG_LEVEL -> log_level
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		if s == "CONFIG" {
			return ""
		}
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, NewAppError(CodeConfig, "load environment", err)
	}

	cfg := *DefaultConfig()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, NewAppError(CodeConfig, "decode config", err)
	}

	// Variables the deployment scripts already export.
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = os.Getenv("DB_URL")
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.OCR.TessdataDir == "" {
		cfg.OCR.TessdataDir = os.Getenv("TESSDATA_PREFIX")
	}
	return &cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return NewAppError(CodeConfig, "database.dsn (or DB_URL) is required for postgres", ErrInvalidInput)
		}
	case "sqlite":
		if c.Database.DSN == "" {
			c.Database.DSN = ":memory:"
		}
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unsupported database.driver %q", c.Database.Driver), ErrInvalidInput)
	}
	if c.Ingest.BatchSize <= 0 {
		return NewAppError(CodeConfig, "ingest.batch_size must be positive", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "server.http_addr is required", ErrInvalidInput)
	}
	return nil
}
