// Package config loads the service configuration from an optional YAML file
// and EVENTREG_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Env   string `yaml:"env" validate:"oneof=development production"`
	Store string `yaml:"store" validate:"oneof=mongo memory"`

	HTTP struct {
		Addr            string        `yaml:"addr" validate:"required"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gt=0"`
	} `yaml:"http"`

	GRPC struct {
		Addr           string        `yaml:"addr"`
		CertFile       string        `yaml:"certFile" validate:"required_with=KeyFile"`
		KeyFile        string        `yaml:"keyFile" validate:"required_with=CertFile"`
		HealthInterval time.Duration `yaml:"healthInterval" validate:"gt=0"`
	} `yaml:"grpc"`

	Mongo struct {
		URI          string `yaml:"uri" validate:"required"`
		Database     string `yaml:"database" validate:"required"`
		Transactions bool   `yaml:"transactions"`
	} `yaml:"mongo"`

	Auth struct {
		Secret string `yaml:"secret" validate:"required,min=8"`
	} `yaml:"auth"`

	Log struct {
		Level string `yaml:"level" validate:"oneof=debug info warn error"`
		File  string `yaml:"file"`
	} `yaml:"log"`

	Telemetry struct {
		ServiceName  string `yaml:"serviceName" validate:"required"`
		OTLPEndpoint string `yaml:"otlpEndpoint"`
		Metrics      bool   `yaml:"metrics"`
	} `yaml:"telemetry"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	c := &Config{Env: "production", Store: "mongo"}
	c.HTTP.Addr = ":8080"
	c.HTTP.ShutdownTimeout = 10 * time.Second
	c.GRPC.Addr = ":50051"
	c.GRPC.HealthInterval = 15 * time.Second
	c.Mongo.URI = "mongodb://localhost:27017"
	c.Mongo.Database = "eventreg"
	// transactions need a replica set
	c.Mongo.Transactions = false
	c.Log.Level = "info"
	c.Log.File = ".logs/eventreg.log"
	c.Telemetry.ServiceName = "eventreg"
	c.Telemetry.Metrics = true
	return c
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the struct rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Development reports whether human readable logging is wanted.
func (c *Config) Development() bool {
	return c.Env == "development"
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"EVENTREG_ENV":            &c.Env,
		"EVENTREG_STORE":          &c.Store,
		"EVENTREG_HTTP_ADDR":      &c.HTTP.Addr,
		"EVENTREG_GRPC_ADDR":      &c.GRPC.Addr,
		"EVENTREG_GRPC_CERT_FILE": &c.GRPC.CertFile,
		"EVENTREG_GRPC_KEY_FILE":  &c.GRPC.KeyFile,
		"EVENTREG_MONGO_URI":      &c.Mongo.URI,
		"EVENTREG_MONGO_DATABASE": &c.Mongo.Database,
		"EVENTREG_AUTH_SECRET":    &c.Auth.Secret,
		"EVENTREG_LOG_LEVEL":      &c.Log.Level,
		"EVENTREG_LOG_FILE":       &c.Log.File,
		"EVENTREG_OTLP_ENDPOINT":  &c.Telemetry.OTLPEndpoint,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"EVENTREG_MONGO_TRANSACTIONS": &c.Mongo.Transactions,
		"EVENTREG_METRICS":            &c.Telemetry.Metrics,
	}
	for key, dst := range bools {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}
	return nil
}
