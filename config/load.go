package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/teranos/emile/errors"
	"github.com/teranos/emile/logger"
)

// FileName is the name of emile's configuration file in the site root.
const FileName = "emile.toml"

// Load reads the configuration of the site at root.
//
// emile.toml is searched from root upwards; the directory it is found in
// becomes the site root. Without one, defaults apply and root is used as is.
// The returned config has been validated; any failure is an ErrConfig.
func Load(root string) (*Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WrapConfig(err, "resolve site root %s", root)
	}

	v := newViper()

	configPath := findConfig(absRoot)
	if configPath == "" {
		logger.Warnw("No emile.toml found, using default values", logger.FieldRoot, absRoot)
	} else {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WithHint(
				errors.WrapConfig(err, "failed to read config file %s", configPath),
				"emile.toml must be valid TOML; quote default_sch_time (\"12:00\")",
			)
		}
		absRoot = filepath.Dir(configPath)
	}

	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}
	cfg.Root = absRoot

	zola, err := readZolaConfig(absRoot)
	if err != nil {
		return nil, err
	}
	cfg.BaseURL = zola.BaseURL
	cfg.DefaultLang = zola.DefaultLanguage

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithViper unmarshals a prepared viper instance. Root and the Zola
// values are left empty.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WrapConfig(err, "failed to unmarshal config")
	}
	if cfg.Social != nil {
		cfg.Social.applySocialDefaults()
	}
	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")

	v.SetEnvPrefix("EMILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	return v
}

// findConfig walks up from dir looking for emile.toml.
// Returns the path to the first file found, or empty string if none found.
func findConfig(dir string) string {
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type zolaConfig struct {
	BaseURL         string `toml:"base_url"`
	DefaultLanguage string `toml:"default_language"`
}

// readZolaConfig extracts base_url and default_language from Zola's
// config.toml. A missing file falls back to defaults; a malformed one is an
// error because the site would not build either.
func readZolaConfig(root string) (zolaConfig, error) {
	zc := zolaConfig{}
	path := filepath.Join(root, "config.toml")

	if _, err := toml.DecodeFile(path, &zc); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return zc, errors.WrapConfig(err, "failed to parse Zola config %s", path)
		}
		logger.Warnw("No Zola config.toml found, using default base_url and language", logger.FieldPath, path)
	}

	if zc.BaseURL == "" {
		zc.BaseURL = DefaultBaseURL
	}
	zc.BaseURL = strings.TrimRight(zc.BaseURL, "/")
	if zc.DefaultLanguage == "" {
		zc.DefaultLanguage = DefaultLanguage
	}
	return zc, nil
}
