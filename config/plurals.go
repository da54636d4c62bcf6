// Package config provides configuration structures and loading for the
// plural category tables used when parsing and serializing gettext files.
package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Config holds the complete configuration.
type Config struct {
	// Plurals maps language codes to their cardinal plural category
	// labels, in msgstr index order.
	Plurals map[string][]string `yaml:"plurals"`
}

// defaultPlurals lists CLDR cardinal plural categories by base
// language. Languages not listed here use ["one", "other"].
var defaultPlurals = map[string][]string{
	"id": {"other"},
	"ja": {"other"},
	"ko": {"other"},
	"th": {"other"},
	"vi": {"other"},
	"yo": {"other"},
	"zh": {"other"},

	"fr": {"one", "many", "other"},
	"pt": {"one", "many", "other"},
	"es": {"one", "many", "other"},
	"it": {"one", "many", "other"},

	"be": {"one", "few", "many", "other"},
	"cs": {"one", "few", "many", "other"},
	"lt": {"one", "few", "many", "other"},
	"pl": {"one", "few", "many", "other"},
	"ru": {"one", "few", "many", "other"},
	"sk": {"one", "few", "many", "other"},
	"uk": {"one", "few", "many", "other"},

	"bs": {"one", "few", "other"},
	"hr": {"one", "few", "other"},
	"ro": {"one", "few", "other"},
	"sr": {"one", "few", "other"},

	"ar": {"zero", "one", "two", "few", "many", "other"},
	"cy": {"zero", "one", "two", "few", "many", "other"},

	"ga": {"one", "two", "few", "many", "other"},
	"gd": {"one", "two", "few", "other"},
	"he": {"one", "two", "other"},
	"sl": {"one", "two", "few", "other"},

	"is": {"one", "other"},
	"mk": {"one", "other"},
}

// Load reads configuration from the given YAML file. An empty path
// returns a configuration with built-in defaults only.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Categories returns the plural category labels for a language code
// such as "cy" or "pt_BR". Configured entries take precedence over the
// built-in table, matching first the full code and then its base
// language.
func (c *Config) Categories(lang string) ([]string, error) {
	// Accept both underscore and hyphen separators.
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return nil, fmt.Errorf("invalid language code %q: %w", lang, err)
	}
	base, _ := tag.Base()
	if c.Plurals != nil {
		if plurals, ok := c.Plurals[lang]; ok {
			return plurals, nil
		}
		if plurals, ok := c.Plurals[base.String()]; ok {
			return plurals, nil
		}
	}
	if plurals, ok := defaultPlurals[base.String()]; ok {
		return plurals, nil
	}
	return []string{"one", "other"}, nil
}
