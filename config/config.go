package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/datagrid/core/metrics"
	"github.com/kilianp07/datagrid/infra/database"
)

// EnvPrefix marks environment variables overriding configuration keys;
// "__" separates nesting levels, e.g. K_DATABASE__DRIVER.
const EnvPrefix = "K_"

type Config struct {
	Database database.Config         `json:"database"`
	Grid     GridConfig              `json:"grid"`
	Entities map[string]EntityConfig `json:"entities"`
	// Overrides maps override service names to configuration files loaded
	// when a grid lists them under "factories".
	Overrides map[string]string `json:"overrides"`
	Logging   LoggingConfig     `json:"logging"`
	Metrics   metrics.Config    `json:"metrics"`
	Sentry    SentryConfig      `json:"sentry"`

	// Raw is the whole merged tree, served to grids as the "Config" service.
	Raw map[string]any `json:"-"`
	// Dir is the directory of the loaded file; relative override paths are
	// resolved against it.
	Dir string `json:"-"`
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
}

// LoadFile reads one YAML or JSON file into a tree.
func LoadFile(path string) (map[string]any, error) {
	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	return k.Raw(), nil
}

func Load(path string) (*Config, error) {
	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Raw = k.Raw()
	cfg.Dir = filepath.Dir(path)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Database.SetDefaults()
	c.Grid.SetDefaults()
	c.Logging.SetDefaults()
	for name, e := range c.Entities {
		e.SetDefaults(name)
		c.Entities[name] = e
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Sentry.Validate(); err != nil {
		return err
	}
	for name, path := range c.Overrides {
		if path == "" {
			return fmt.Errorf("override %s: path is required", name)
		}
		if name == c.Grid.Prefix || name == "Config" {
			return fmt.Errorf("override %s: name is reserved", name)
		}
	}
	return nil
}

// OverridePath returns the file of an override, resolved against Dir.
func (c Config) OverridePath(name string) (string, bool) {
	p, ok := c.Overrides[name]
	if !ok {
		return "", false
	}
	if !filepath.IsAbs(p) && c.Dir != "" {
		p = filepath.Join(c.Dir, p)
	}
	return p, true
}
