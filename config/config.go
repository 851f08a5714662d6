// Package config loads strategy definitions from a YAML file.
//
//	logger:
//	  level: info
//	  format: json
//	server:
//	  listen: ":8080"
//	strategies:
//	  - name: default
//	    jwks_url: ${ISSUER_URL}/.well-known/jwks.json
//	    time_interval: 60000      # ms
//	    first_fetch_sync: true
//	    http_max_retries_per_fetch: 10
//	    http_delay_per_retry: 500 # ms
//
// ${VAR} references are expanded from the environment before parsing.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kidwatch/jwks-strategy/jwks"
	"github.com/kidwatch/jwks-strategy/telemetry"
)

// DefaultListen is the daemon address used when server.listen is empty.
const DefaultListen = ":8080"

// File is the top-level configuration document.
type File struct {
	Logger     telemetry.LoggerConfig `yaml:"logger"`
	Server     Server                 `yaml:"server"`
	Strategies []Strategy             `yaml:"strategies"`
}

// Server configures the daemon's HTTP listener.
type Server struct {
	Listen string `yaml:"listen"`

	// ShutdownTimeout in milliseconds. Default: 10000
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// ShutdownTimeoutDuration returns the shutdown timeout, defaulting to 10s.
func (s Server) ShutdownTimeoutDuration() time.Duration {
	if s.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.ShutdownTimeout) * time.Millisecond
}

// Strategy describes one named jwks.Strategy. Durations are in
// milliseconds. Pointer fields distinguish "unset" from zero so the jwks
// defaults apply.
type Strategy struct {
	Name              string `yaml:"name"`
	JWKSURL           string `yaml:"jwks_url"`
	TimeInterval      *int   `yaml:"time_interval"`
	ShouldStart       *bool  `yaml:"should_start"`
	FirstFetchSync    bool   `yaml:"first_fetch_sync"`
	ExplicitAlg       string `yaml:"explicit_alg"`
	HTTPMaxRetries    *int   `yaml:"http_max_retries_per_fetch"`
	HTTPDelayPerRetry *int   `yaml:"http_delay_per_retry"`
}

// Load reads, expands and validates the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references in data, decodes it and validates the
// result. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	expanded := os.ExpandEnv(string(data))

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if f.Server.Listen == "" {
		f.Server.Listen = DefaultListen
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that strategy names are present and unique and that every
// strategy has a jwks_url.
func (f *File) Validate() error {
	if len(f.Strategies) == 0 {
		return errors.New("config: at least one strategy is required")
	}

	seen := make(map[string]struct{}, len(f.Strategies))
	for i, s := range f.Strategies {
		if s.Name == "" {
			return fmt.Errorf("config: strategies[%d]: name is required", i)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("config: strategies[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = struct{}{}

		if s.JWKSURL == "" {
			return fmt.Errorf("config: strategy %q: jwks_url is required", s.Name)
		}
	}
	return nil
}

// Options converts s into jwks options. Range checks are left to the
// options themselves.
func (s Strategy) Options() []jwks.Option {
	opts := []jwks.Option{
		jwks.WithJWKSURL(s.JWKSURL),
		jwks.WithFirstFetchSync(s.FirstFetchSync),
	}
	if s.TimeInterval != nil {
		opts = append(opts, jwks.WithTimeInterval(millis(*s.TimeInterval)))
	}
	if s.ShouldStart != nil {
		opts = append(opts, jwks.WithShouldStart(*s.ShouldStart))
	}
	if s.ExplicitAlg != "" {
		opts = append(opts, jwks.WithExplicitAlg(s.ExplicitAlg))
	}
	if s.HTTPMaxRetries != nil {
		opts = append(opts, jwks.WithHTTPMaxRetries(*s.HTTPMaxRetries))
	}
	if s.HTTPDelayPerRetry != nil {
		opts = append(opts, jwks.WithHTTPDelayPerRetry(millis(*s.HTTPDelayPerRetry)))
	}
	return opts
}

// StrategyOptions returns the options of every strategy keyed by name, the
// shape jwks.Registry.StartAll takes.
func (f *File) StrategyOptions() map[string][]jwks.Option {
	out := make(map[string][]jwks.Option, len(f.Strategies))
	for _, s := range f.Strategies {
		out[s.Name] = s.Options()
	}
	return out
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
