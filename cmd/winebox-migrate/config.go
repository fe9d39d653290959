package main

import (
	"fmt"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/winebox/dbmigrate"
	"github.com/winebox/dbmigrate/internal/common"
)

// LoggingConfig controls log output of the migration session.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // error, warn, info, debug
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// ConfigDoc is the optional YAML configuration document.
type ConfigDoc struct {
	Database dbmigrate.StoreConfig `mapstructure:"database" yaml:"database"`
	Logging  LoggingConfig         `mapstructure:"logging" yaml:"logging"`
}

// Load reads and decodes the config document. The YAML is decoded into a
// generic map first and then mapped onto the typed document, so unknown
// keys fail loudly instead of being silently dropped.
func (c *ConfigDoc) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      c,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(doc); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	return nil
}

// Logger builds the configured logger.
func (c *ConfigDoc) Logger() *common.Logger {
	level := common.ParseLogLevel(c.Logging.Level)
	if c.Logging.Format == "json" {
		return common.NewJSONLogger(level)
	}
	return common.NewLogger(level)
}
