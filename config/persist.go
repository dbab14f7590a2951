package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/teranos/emile/errors"
)

// Marshal renders the effective configuration as TOML, including the values
// read from Zola's config.toml.
func (c *Config) Marshal() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal config")
	}
	return data, nil
}

// WriteDefault writes an emile.toml holding every default to root.
// It refuses to overwrite an existing file and returns the written path.
func WriteDefault(root string) (string, error) {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err == nil {
		return "", errors.WithHint(
			errors.NewIOError("%s already exists", path),
			"edit the existing file instead",
		)
	}

	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		return "", err
	}

	// base_url and default_language belong to Zola and stay empty here
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal default config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.WrapIO(err, "failed to write %s", path)
	}
	return path, nil
}
