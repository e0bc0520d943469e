// Package config loads the server configuration file.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/vvakame/annogql/annotation"
	"github.com/vvakame/annogql/annotation/rest"
	"github.com/vvakame/annogql/endpoint"
	"github.com/vvakame/annogql/executable"
)

const DefaultAddr = ":8080"

// Config is read from YAML:
//
//	addr: ":8080"
//	schemaFile: ./schema.graphqls
//	mode: text
//	validation:
//	  requireResolversForArgs: true
//	upstreamTimeout: 10s
type Config struct {
	Addr       string      `yaml:"addr"`
	SchemaFile string      `yaml:"schemaFile"`
	Mode       string      `yaml:"mode"`
	Validation *Validation `yaml:"validation"`
	// timeout of requests for REST APIs and the upstream GraphQL endpoint
	UpstreamTimeout string `yaml:"upstreamTimeout"`
	Verbosity       int    `yaml:"verbosity"`
	// relative SchemaFile is resolved from here
	baseDir string
}

type Validation struct {
	RequireResolversForArgs      bool `yaml:"requireResolversForArgs"`
	RequireResolversForNonScalar bool `yaml:"requireResolversForNonScalar"`
	RequireResolversForAllFields bool `yaml:"requireResolversForAllFields"`
}

func Default() *Config {
	return &Config{
		Addr: DefaultAddr,
		Mode: annotation.ModeAST.String(),
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.baseDir = filepath.Dir(path)

	return cfg, nil
}

// Parse decodes b over Default. Unknown keys are errors.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalWithOptions(b, cfg, yaml.DisallowUnknownField()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if _, err := annotation.ParseMode(cfg.Mode); err != nil {
		return err
	}
	if _, err := cfg.Timeout(); err != nil {
		return err
	}
	return nil
}

// Timeout returns 0 when upstreamTimeout is not set.
func (cfg *Config) Timeout() (time.Duration, error) {
	if cfg.UpstreamTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(cfg.UpstreamTimeout)
	if err != nil {
		return 0, fmt.Errorf("upstreamTimeout: %w", err)
	}
	if d < 0 {
		return 0, errors.New("upstreamTimeout: must not be negative")
	}
	return d, nil
}

// SchemaPath resolves SchemaFile against the directory of the loaded config file.
func (cfg *Config) SchemaPath() string {
	if cfg.SchemaFile == "" || filepath.IsAbs(cfg.SchemaFile) || cfg.baseDir == "" {
		return cfg.SchemaFile
	}
	return filepath.Join(cfg.baseDir, cfg.SchemaFile)
}

// NewEndpoint reads the schema file and builds the endpoint.
func (cfg *Config) NewEndpoint(ctx context.Context) (*endpoint.Endpoint, error) {
	if cfg.SchemaFile == "" {
		return nil, errors.New("schemaFile is required")
	}
	b, err := os.ReadFile(cfg.SchemaPath())
	if err != nil {
		return nil, err
	}

	epCfg, err := cfg.EndpointConfig(string(b))
	if err != nil {
		return nil, err
	}

	return endpoint.New(ctx, epCfg)
}

func (cfg *Config) EndpointConfig(schemaText string) (*endpoint.Config, error) {
	mode, err := annotation.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}

	epCfg := &endpoint.Config{
		SchemaText: schemaText,
		Mode:       mode,
	}
	if cfg.Validation != nil {
		epCfg.Validation = &executable.ValidationOptions{
			RequireResolversForArgs:      cfg.Validation.RequireResolversForArgs,
			RequireResolversForNonScalar: cfg.Validation.RequireResolversForNonScalar,
			RequireResolversForAllFields: cfg.Validation.RequireResolversForAllFields,
		}
	}
	if timeout != 0 {
		restClient := rest.NewHTTPClient()
		restClient.HTTPClient.Timeout = timeout
		epCfg.Client = restClient
		epCfg.UpstreamClient = &http.Client{Timeout: timeout}
	}

	return epCfg, nil
}
