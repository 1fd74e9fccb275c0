// Package config assembles gateway settings.
//
// Layers apply in order, each overriding the one before:
//
//  1. built-in defaults
//  2. an optional YAML file
//  3. GRAPHGATE_* environment variables
//  4. command-line flags (applied by the CLI, then re-validated)
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/graphgate/internal/server"
	"github.com/roach88/graphgate/internal/wire"
)

// Defaults.
const (
	DefaultHost           = "localhost"
	DefaultCommandTimeout = 120 * time.Second
	DefaultLogLevel       = "info"
)

// Config holds every gateway setting.
type Config struct {
	Host            string        `yaml:"host" env:"GRAPHGATE_HOST" validate:"required"`
	Ports           []int         `yaml:"ports" env:"GRAPHGATE_PORTS" envSeparator:"," validate:"required,min=1,unique,dive,min=0,max=65535"`
	CommandTimeout  time.Duration `yaml:"command_timeout" env:"GRAPHGATE_COMMAND_TIMEOUT" validate:"gt=0"`
	ClientTimeout   time.Duration `yaml:"client_timeout" env:"GRAPHGATE_CLIENT_TIMEOUT" validate:"gtfield=CommandTimeout"`
	MaxMessageBytes int           `yaml:"max_message_bytes" env:"GRAPHGATE_MAX_MESSAGE_BYTES" validate:"min=1,max=104857600"`
	JournalPath     string        `yaml:"journal_path" env:"GRAPHGATE_JOURNAL"`
	ScenePath       string        `yaml:"scene_path" env:"GRAPHGATE_SCENE"`
	LogLevel        string        `yaml:"log_level" env:"GRAPHGATE_LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Host:            DefaultHost,
		Ports:           []int{server.DefaultPort},
		CommandTimeout:  DefaultCommandTimeout,
		ClientTimeout:   server.DefaultClientTimeout,
		MaxMessageBytes: wire.MaxMessageSize,
		LogLevel:        DefaultLogLevel,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and environ. A nil environ reads the process environment.
func Load(path string, environ map[string]string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := cfg.decodeYAML(f); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML overlays the keys present in r. Unknown keys are rejected.
func (c *Config) decodeYAML(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		return name
	})
	return v
}()

// Validate checks field constraints. Errors name fields by their YAML key.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), rule))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(parts, ", "))
}

// Addrs returns one listen address per port.
func (c Config) Addrs() []string {
	out := make([]string, len(c.Ports))
	for i, p := range c.Ports {
		out[i] = server.Addr(c.Host, p)
	}
	return out
}

// Level maps LogLevel to a slog level.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
