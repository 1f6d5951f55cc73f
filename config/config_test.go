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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperbacked/hyperbacked/backup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, backup.DefaultKDFParams(), cfg.KDF)
	assert.Equal(t, "aes256-gcm", cfg.Cipher)
	assert.Equal(t, 1, cfg.RequiredShares)
	assert.Equal(t, 1, cfg.NumShares)
	assert.Equal(t, 8, cfg.GroupsPerLine)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
requiredShares: 3
numShares: 5
cipher: xchacha20-poly1305
kdf:
  memoryKiB: 131072
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.RequiredShares)
	assert.Equal(t, 5, cfg.NumShares)
	assert.Equal(t, "xchacha20-poly1305", cfg.Cipher)
	assert.Equal(t, uint32(131072), cfg.KDF.MemoryKiB)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, backup.DefaultKDFParams().Time, cfg.KDF.Time)
	assert.Equal(t, backup.DefaultKDFParams().Threads, cfg.KDF.Threads)
	assert.Equal(t, 8, cfg.GroupsPerLine)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected func(*Config)
	}{
		{
			name: "share scheme override",
			envVars: map[string]string{
				"HYPERBACKED_REQUIRED_SHARES": "4",
				"HYPERBACKED_NUM_SHARES":      "7",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, 4, cfg.RequiredShares)
				assert.Equal(t, 7, cfg.NumShares)
			},
		},
		{
			name: "kdf config override",
			envVars: map[string]string{
				"HYPERBACKED_KDF_TIME":       "5",
				"HYPERBACKED_KDF_MEMORY_KIB": "32768",
				"HYPERBACKED_KDF_THREADS":    "2",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, uint32(5), cfg.KDF.Time)
				assert.Equal(t, uint32(32768), cfg.KDF.MemoryKiB)
				assert.Equal(t, uint8(2), cfg.KDF.Threads)
			},
		},
		{
			name: "cipher and layout override",
			envVars: map[string]string{
				"HYPERBACKED_CIPHER":          "xchacha20-poly1305",
				"HYPERBACKED_GROUPS_PER_LINE": "4",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, "xchacha20-poly1305", cfg.Cipher)
				assert.Equal(t, 4, cfg.GroupsPerLine)
			},
		},
		{
			name: "unprefixed variables are ignored",
			envVars: map[string]string{
				"NUM_SHARES": "9",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, 1, cfg.NumShares)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load("")
			require.NoError(t, err)
			tt.expected(cfg)
		})
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "requiredShares: 2\nnumShares: 3\ngroupsPerLine: 6\n")
	t.Setenv("HYPERBACKED_NUM_SHARES", "4")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.RequiredShares)
	assert.Equal(t, 4, cfg.NumShares)
	assert.Equal(t, 6, cfg.GroupsPerLine)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		envVars map[string]string
	}{
		{name: "malformed yaml", content: "requiredShares: [3"},
		{name: "unknown field", content: "threshold: 3\n"},
		{name: "wrong type", content: "numShares: many\n"},
		{name: "required above total", content: "requiredShares: 4\nnumShares: 3\n"},
		{name: "one of many", content: "requiredShares: 1\nnumShares: 3\n"},
		{name: "unknown cipher", content: "cipher: rot13\n"},
		{name: "zero groups per line", content: "groupsPerLine: 0\n"},
		{name: "kdf memory too low", content: "kdf:\n  memoryKiB: 4\n"},
		{name: "bad env value", envVars: map[string]string{"HYPERBACKED_NUM_SHARES": "lots"}},
		{name: "env breaks scheme", envVars: map[string]string{"HYPERBACKED_REQUIRED_SHARES": "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			path := ""
			if tt.content != "" {
				path = writeConfig(t, tt.content)
			}

			cfg, err := Load(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, backup.ErrInvalidConfig)
			assert.Nil(t, cfg)
		})
	}
}

func TestBackupConfig(t *testing.T) {
	cfg := Default()
	cfg.RequiredShares = 3
	cfg.NumShares = 5
	cfg.Cipher = "xchacha20-poly1305"

	bc, err := cfg.BackupConfig()
	require.NoError(t, err)
	assert.Equal(t, backup.Config{
		RequiredShares: 3,
		NumShares:      5,
		KDF:            backup.DefaultKDFParams(),
		Suite:          backup.SuiteXChaCha20Poly1305,
	}, bc)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigName, filepath.Base(path))
	assert.True(t, filepath.IsAbs(path))
}
