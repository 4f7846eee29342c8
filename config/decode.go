package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Load decodes a Config from a TOML file at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadLayered decodes a base config and, if localPath exists, overwrites it
// field-by-field with a second layer, the usual global/local split.
func LoadLayered(basePath, localPath string) (*Config, error) {
	cfg, err := Load(basePath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(localPath); err != nil {
		return cfg, nil
	}
	local, err := Load(localPath)
	if err != nil {
		return nil, err
	}
	cfg.Overwrite(local)
	return cfg, nil
}
