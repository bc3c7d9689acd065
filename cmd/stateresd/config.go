package main

import (
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/coreroom/stateres/spec"
)

// DefaultOpts mirrors dendrite's setup/config.DefaultOpts: it distinguishes
// "fill in defaults for an already-loaded config" from "generate a
// ready-to-edit sample config file".
type DefaultOpts struct {
	Generate bool
}

// ConfigErrors accumulates every problem found while verifying a Config,
// rather than failing on the first one, following dendrite's
// setup/config.ConfigErrors convention.
type ConfigErrors []string

func (e *ConfigErrors) Add(msg string) {
	*e = append(*e, msg)
}

func (e ConfigErrors) Error() string {
	if len(e) == 1 {
		return e[0]
	}
	return fmt.Sprintf("%d configuration errors: %v", len(e), []string(e))
}

func checkNotEmpty(errs *ConfigErrors, key, value string) {
	if value == "" {
		errs.Add(fmt.Sprintf("missing config key %q", key))
	}
}

// Config is cmd/stateresd's configuration: the HTTP debug surface, the
// EventStore backend, a default room version, and observability (spec.md §1 explicitly excludes
// config/observability from the core; the binary still needs them).
type Config struct {
	// ServerName identifies this instance in synthetic event construction
	// (eventbuilder's "origin").
	ServerName spec.ServerName `yaml:"server_name"`

	// DefaultRoomVersion is checked by Verify; no endpoint of the debug
	// HTTP surface reads it.
	DefaultRoomVersion spec.RoomVersion `yaml:"default_room_version"`

	// Bind is the address the debug HTTP surface listens on.
	Bind string `yaml:"bind"`

	Database DatabaseConfig `yaml:"database"`

	// PublishResolutions enables the embedded NATS publisher.
	PublishResolutions bool `yaml:"publish_resolutions"`

	Logging LoggingConfig `yaml:"logging"`
}

// DatabaseConfig selects and configures the store/sql backend.
type DatabaseConfig struct {
	// Dialect is "postgres" or "sqlite".
	Dialect          string `yaml:"dialect"`
	ConnectionString string `yaml:"connection_string"`
}

// LoggingConfig configures cmd/stateresd/logging.go.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	SentryDSN string `yaml:"sentry_dsn,omitempty"`
}

func (c *Config) Defaults(opts DefaultOpts) {
	c.DefaultRoomVersion = spec.RoomVersionV11
	c.Bind = "127.0.0.1:8080"
	c.Logging.Level = "info"
	c.Database.Dialect = "sqlite"
	if opts.Generate {
		c.ServerName = "localhost"
		c.Database.ConnectionString = "file:stateresd.db"
		c.PublishResolutions = true
	}
}

func (c *Config) Verify(configErrs *ConfigErrors) {
	checkNotEmpty(configErrs, "server_name", string(c.ServerName))
	checkNotEmpty(configErrs, "bind", c.Bind)
	checkNotEmpty(configErrs, "database.dialect", c.Database.Dialect)
	checkNotEmpty(configErrs, "database.connection_string", c.Database.ConnectionString)
	if c.Database.Dialect != "postgres" && c.Database.Dialect != "sqlite" {
		configErrs.Add(fmt.Sprintf("database.dialect must be \"postgres\" or \"sqlite\", got %q", c.Database.Dialect))
	}
	if !c.DefaultRoomVersion.IsKnown() {
		configErrs.Add(fmt.Sprintf("default_room_version %q is not a known room version", c.DefaultRoomVersion))
	}
}

// LoadConfig parses and verifies a Config from YAML bytes.
func LoadConfig(data []byte) (*Config, error) {
	var c Config
	c.Defaults(DefaultOpts{})
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	var errs ConfigErrors
	c.Verify(&errs)
	if len(errs) > 0 {
		return nil, errs
	}
	return &c, nil
}
