package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Presentations
	if cfg.Presentations.Dir == "" {
		errs = append(errs, errors.New("presentations.dir is required"))
	}
	if cfg.Presentations.AudioDir == "" {
		errs = append(errs, errors.New("presentations.audio_dir is required"))
	}
	if cfg.Presentations.FallbackClip == "" {
		slog.Warn("presentations.fallback_clip is empty; missing narration will play synthesized silence")
	}

	// Timing overrides
	if cfg.Timing != nil {
		for name, v := range map[string]*int{
			"timing.between_segments_ms":   cfg.Timing.BetweenSegmentsMS,
			"timing.between_slides_ms":     cfg.Timing.BetweenSlidesMS,
			"timing.after_final_slide_ms":  cfg.Timing.AfterFinalSlideMS,
			"timing.before_first_slide_ms": cfg.Timing.BeforeFirstSlideMS,
		} {
			if v != nil && *v < 0 {
				errs = append(errs, fmt.Errorf("%s must not be negative, got %d", name, *v))
			}
		}
	}

	// Storage backends are mutually exclusive.
	if cfg.Storage.RuntimeFile != "" && cfg.Storage.PostgresDSN != "" {
		errs = append(errs, errors.New("storage.runtime_file and storage.postgres_dsn are mutually exclusive"))
	}

	return errors.Join(errs...)
}
