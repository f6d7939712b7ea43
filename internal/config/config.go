// Package config loads the waypoint configuration file.
//
// The file is YAML. It is decoded into a generic map first and bound onto Config
// with mapstructure, so "ttl: 90s" and "runs: '4'" both work. Environment variables
// prefixed with WAYPOINT_ override the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/domain"
)

// EnvPrefix prefixes every environment override, e.g. WAYPOINT_STORE_BACKEND.
const EnvPrefix = "WAYPOINT_"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the full runtime configuration.
type Config struct {
	Runs             int     `yaml:"runs" mapstructure:"runs"`
	RunPrefix        string  `yaml:"run_prefix" mapstructure:"run_prefix"`
	ReferenceWidthCm float64 `yaml:"reference_width_cm" mapstructure:"reference_width_cm"`
	TurnThresholdDeg float64 `yaml:"turn_threshold_deg" mapstructure:"turn_threshold_deg"`
	DragThresholdPx  float64 `yaml:"drag_threshold_px" mapstructure:"drag_threshold_px"`

	// Background, when set, is loaded onto the board at startup.
	Background *domain.Background `yaml:"background" mapstructure:"background"`

	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	HTTP   HTTPConfig   `yaml:"http" mapstructure:"http"`
	Render RenderConfig `yaml:"render" mapstructure:"render"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

type StoreConfig struct {
	Backend       string        `yaml:"backend" mapstructure:"backend"`
	Path          string        `yaml:"path" mapstructure:"path"`
	RedisAddr     string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int           `yaml:"redis_db" mapstructure:"redis_db"`
	Prefix        string        `yaml:"prefix" mapstructure:"prefix"`
	TTL           time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

type RenderConfig struct {
	Scale    float64 `yaml:"scale" mapstructure:"scale"`
	Annotate bool    `yaml:"annotate" mapstructure:"annotate"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Runs:             6,
		RunPrefix:        "run",
		ReferenceWidthCm: 240,
		TurnThresholdDeg: 1,
		DragThresholdPx:  0,
		Store: StoreConfig{
			Backend:   BackendFile,
			Path:      ".waypoint/runs",
			RedisAddr: "localhost:6379",
			Prefix:    "waypoint:run:",
		},
		HTTP:   HTTPConfig{Addr: ":8080"},
		Render: RenderConfig{Scale: 1, Annotate: true},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// RunIDs expands Runs and RunPrefix into "run-1".."run-N".
func (c Config) RunIDs() []domain.RunID {
	return domain.RunIDs(c.RunPrefix, c.Runs)
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Runs < 1 {
		errs = append(errs, fmt.Errorf("runs must be at least 1, got %d", c.Runs))
	}
	if strings.TrimSpace(c.RunPrefix) == "" {
		errs = append(errs, errors.New("run_prefix cannot be empty"))
	}
	if !(c.ReferenceWidthCm > 0) {
		errs = append(errs, fmt.Errorf("reference_width_cm must be positive, got %v", c.ReferenceWidthCm))
	}
	if c.TurnThresholdDeg < 0 {
		errs = append(errs, fmt.Errorf("turn_threshold_deg cannot be negative, got %v", c.TurnThresholdDeg))
	}
	if c.DragThresholdPx < 0 {
		errs = append(errs, fmt.Errorf("drag_threshold_px cannot be negative, got %v", c.DragThresholdPx))
	}
	if c.Background != nil {
		if err := c.Background.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("background: %w", err))
		}
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the file backend"))
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}
	if c.Store.TTL < 0 {
		errs = append(errs, fmt.Errorf("store.ttl cannot be negative, got %s", c.Store.TTL))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, fmt.Errorf("log.format: %w", err))
	}
	if !(c.Render.Scale > 0) {
		errs = append(errs, fmt.Errorf("render.scale must be positive, got %v", c.Render.Scale))
	}
	return errors.Join(errs...)
}

// Load reads path (if not empty) over the defaults, applies environment overrides
// and validates the result.
func Load(path string) (Config, error) {
	return load(path, os.Environ())
}

func load(path string, environ []string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := decode(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	if env := envOverrides(environ); len(env) > 0 {
		if err := decode(env, &cfg); err != nil {
			return Config{}, fmt.Errorf("invalid environment override: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(input map[string]any, out *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		ZeroFields:       false,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			boolFromString,
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// boolFromString accepts "yes"/"no"/"on"/"off" besides what WeaklyTypedInput takes.
func boolFromString(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
		return data, nil
	}
	switch strings.ToLower(strings.TrimSpace(reflect.ValueOf(data).String())) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return data, nil
}

// envOverrides turns WAYPOINT_STORE_REDIS_ADDR=x into {"store": {"redis_addr": "x"}}.
// The first segment after the prefix names a section when one exists.
func envOverrides(environ []string) map[string]any {
	out := map[string]any{}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		section, field, nested := strings.Cut(name, "_")
		if nested && sections[section] {
			m, _ := out[section].(map[string]any)
			if m == nil {
				m = map[string]any{}
				out[section] = m
			}
			m[field] = value
			continue
		}
		if topLevel[name] {
			out[name] = value
		}
	}
	return out
}

var sections = map[string]bool{"store": true, "http": true, "render": true, "log": true, "background": true}

var topLevel = map[string]bool{
	"runs":               true,
	"run_prefix":         true,
	"reference_width_cm": true,
	"turn_threshold_deg": true,
	"drag_threshold_px":  true,
}
