package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCategories(t *testing.T) {
	cfg := &Config{}

	plurals, err := cfg.Categories("cy")
	require.NoError(t, err)
	assert.Equal(t, []string{"zero", "one", "two", "few", "many", "other"}, plurals)

	plurals, err = cfg.Categories("ja")
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, plurals)

	// Regional variants resolve through the base language.
	plurals, err = cfg.Categories("pt_BR")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "many", "other"}, plurals)

	// Unlisted languages fall back to one/other.
	plurals, err = cfg.Categories("eo")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "other"}, plurals)

	_, err = cfg.Categories("no-such-language-code")
	assert.Error(t, err)
}

func TestConfiguredCategories(t *testing.T) {
	cfg := &Config{
		Plurals: map[string][]string{
			"pt_BR": {"one", "other"},
			"fil":   {"one", "other"},
		},
	}

	// Full code takes precedence over the built-in base entry.
	plurals, err := cfg.Categories("pt_BR")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "other"}, plurals)

	// Other regions of the same base still use the built-in table.
	plurals, err = cfg.Categories("pt_PT")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "many", "other"}, plurals)

	plurals, err = cfg.Categories("fil")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "other"}, plurals)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "l10nres.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`plurals:
  cy: [one, other]
  tok: [other]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	plurals, err := cfg.Categories("cy")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "other"}, plurals)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Nil(t, cfg.Plurals)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
