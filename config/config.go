// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the settings of the hyperbacked command line tool.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// HYPERBACKED_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/golang/glog"
	"github.com/hyperbacked/hyperbacked/backup"
	"github.com/hyperbacked/hyperbacked/constants"
	"sigs.k8s.io/yaml"
)

const (
	// DefaultConfigName is the file name looked up in the user configuration directory.
	DefaultConfigName = "hyperbacked.yaml"

	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "HYPERBACKED_"
)

// Config contains the tool's settings.
type Config struct {
	KDF            backup.KDFParams `json:"kdf" envPrefix:"KDF_"`
	Cipher         string           `json:"cipher" env:"CIPHER"`
	RequiredShares int              `json:"requiredShares" env:"REQUIRED_SHARES"`
	NumShares      int              `json:"numShares" env:"NUM_SHARES"`
	GroupsPerLine  int              `json:"groupsPerLine" env:"GROUPS_PER_LINE"`
}

// Default returns the built-in settings: a standard single share backup.
func Default() Config {
	standard := constants.Presets[0]
	return Config{
		KDF:            backup.DefaultKDFParams(),
		Cipher:         backup.SuiteAES256GCM.String(),
		RequiredShares: standard.RequiredShares,
		NumShares:      standard.NumShares,
		GroupsPerLine:  constants.DefaultGroupsPerLine,
	}
}

// DefaultPath returns the location of the configuration file when none is given.
func DefaultPath() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory location: %v", err)
	}
	return filepath.Join(cfgDir, DefaultConfigName), nil
}

// Load reads the configuration file at path on top of the defaults and applies
// environment overrides. A missing file is not an error; an empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		yamlBytes, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			glog.V(1).Infof("No config file at %s, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %v", err)
		default:
			if err := yaml.UnmarshalStrict(yamlBytes, &cfg); err != nil {
				return nil, fmt.Errorf("%w: failed to parse config file %s: %v", backup.ErrInvalidConfig, path, err)
			}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("%w: failed to parse environment: %v", backup.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the settings describe a backup that can be created.
func (c *Config) Validate() error {
	if c.GroupsPerLine < 1 {
		return fmt.Errorf("%w: groupsPerLine must be at least 1, got %d", backup.ErrInvalidConfig, c.GroupsPerLine)
	}
	bc, err := c.BackupConfig()
	if err != nil {
		return err
	}
	return bc.Validate()
}

// BackupConfig returns the engine configuration described by c.
func (c *Config) BackupConfig() (backup.Config, error) {
	suite, err := backup.ParseCipherSuite(c.Cipher)
	if err != nil {
		return backup.Config{}, err
	}
	return backup.Config{
		RequiredShares: c.RequiredShares,
		NumShares:      c.NumShares,
		KDF:            c.KDF,
		Suite:          suite,
	}, nil
}
