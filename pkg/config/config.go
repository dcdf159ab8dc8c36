package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oarkflow/bcl"
	"github.com/oarkflow/json"
	"github.com/oarkflow/log"
	"gopkg.in/yaml.v3"

	"github.com/Foldover/wscript"
)

// Config is the file-level configuration shared by the CLI and the server.
type Config struct {
	Runtime RuntimeSection `json:"runtime" yaml:"runtime"`
	Log     LogSection     `json:"log" yaml:"log"`
	Server  ServerSection  `json:"server" yaml:"server"`
	REPL    REPLSection    `json:"repl" yaml:"repl"`
}

type RuntimeSection struct {
	StackBudget   int  `json:"stack_budget" yaml:"stack_budget"`
	MaxBounces    int  `json:"max_bounces" yaml:"max_bounces"`
	LogEvaluation bool `json:"log_evaluation" yaml:"log_evaluation"`
}

type LogSection struct {
	Level string `json:"level" yaml:"level"`
}

type ServerSection struct {
	Addr        string `json:"addr" yaml:"addr"`
	Version     string `json:"version" yaml:"version"`
	CacheSize   int    `json:"cache_size" yaml:"cache_size"`
	MaxBodySize int    `json:"max_body_size" yaml:"max_body_size"`
}

type REPLSection struct {
	HistoryFile string `json:"history_file" yaml:"history_file"`
	Prompt      string `json:"prompt" yaml:"prompt"`
}

var levels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Runtime.StackBudget == 0 {
		cfg.Runtime.StackBudget = wscript.DefaultStackBudget
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "1.0.0"
	}
	if cfg.Server.CacheSize == 0 {
		cfg.Server.CacheSize = 1024
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 1 << 20
	}
	if cfg.REPL.HistoryFile == "" {
		cfg.REPL.HistoryFile = ".wscript_history"
	}
	if cfg.REPL.Prompt == "" {
		cfg.REPL.Prompt = "> "
	}
}

// Load reads a config file, choosing the decoder from its extension.
// Environment references such as ${HOME} are expanded before decoding.
func Load(path string) (*Config, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	decode, err := decoderFor(ext)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeConfig(raw, decode)
}

// LoadFromString decodes raw config text in the given format.
func LoadFromString(content, format string) (*Config, error) {
	decode, err := decoderFor(strings.ToLower(format))
	if err != nil {
		return nil, err
	}
	return decodeConfig([]byte(content), decode)
}

func decoderFor(format string) (func([]byte, any) error, error) {
	switch format {
	case "yaml", "yml":
		return yaml.Unmarshal, nil
	case "json":
		return func(data []byte, v any) error {
			return json.Unmarshal(data, v)
		}, nil
	case "bcl":
		return func(data []byte, v any) error {
			_, err := bcl.Unmarshal(data, v)
			return err
		}, nil
	default:
		return nil, fmt.Errorf("unsupported config format: %q", format)
	}
}

func decodeConfig(data []byte, fn func([]byte, any) error) (*Config, error) {
	content := os.ExpandEnv(string(data))
	var cfg Config
	if err := fn([]byte(content), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, cfg.Validate()
}

// Validate checks value ranges after defaults have been applied.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Runtime.StackBudget < 0 || cfg.Runtime.StackBudget > wscript.MaxStackBudget {
		return fmt.Errorf("runtime.stack_budget must be between 0 and %d, got %d", wscript.MaxStackBudget, cfg.Runtime.StackBudget)
	}
	if cfg.Runtime.MaxBounces < 0 {
		return fmt.Errorf("runtime.max_bounces must not be negative, got %d", cfg.Runtime.MaxBounces)
	}
	if !validLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not one of %s", cfg.Log.Level, strings.Join(levels, ", "))
	}
	if cfg.Server.CacheSize < 0 {
		return fmt.Errorf("server.cache_size must not be negative, got %d", cfg.Server.CacheSize)
	}
	return nil
}

func validLevel(level string) bool {
	level = strings.ToLower(level)
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}

// RuntimeConfig converts the runtime section for the evaluator.
func (cfg *Config) RuntimeConfig() wscript.RuntimeConfig {
	return wscript.RuntimeConfig{
		StackBudget:   cfg.Runtime.StackBudget,
		MaxBounces:    cfg.Runtime.MaxBounces,
		LogEvaluation: cfg.Runtime.LogEvaluation,
	}
}

// Apply installs the runtime section as the process-wide default.
func (cfg *Config) Apply() {
	wscript.SetRuntimeConfig(cfg.RuntimeConfig())
}

// NewLogger returns a copy of the default logger at the given level. A nil w
// keeps the default writer.
func NewLogger(level string, w io.Writer) *log.Logger {
	logger := log.DefaultLogger
	logger.Level = log.ParseLevel(strings.ToLower(level))
	if w != nil {
		logger.Writer = &log.IOWriter{Writer: w}
	}
	return &logger
}

// Logger builds the logger described by the log section.
func (cfg *Config) Logger(w io.Writer) *log.Logger {
	return NewLogger(cfg.Log.Level, w)
}
