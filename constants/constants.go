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

// Package constants contains values shared by the backup engine, the configuration
// layer and the command line tool.
package constants

// MaxShares is the largest number of shares in one backup: GF(2^8) has 255 non-zero
// points to use as share coordinates.
const MaxShares = 255

// ShareFormatVersion is written into every share and checked when shares are read.
const ShareFormatVersion = 1

// PayloadFormatVersion is the first byte of every packed encrypted payload.
const PayloadFormatVersion = 1

// ShareTextPrefix starts every printable share.
const ShareTextPrefix = "HB1"

// ShareTextGroupSize is the number of characters per group in a printable share.
const ShareTextGroupSize = 5

// DefaultGroupsPerLine controls line wrapping of printed shares.
const DefaultGroupsPerLine = 8

// Default Argon2id parameters.
const (
	DefaultKDFTime      uint32 = 3
	DefaultKDFMemoryKiB uint32 = 64 * 1024
	DefaultKDFThreads   uint8  = 4
)

// Upper bounds on the Argon2id parameters a payload may ask for. Restore derives the
// key before the tag can be checked, so these limit the work a forged share can cause.
const (
	MaxKDFTime      uint32 = 64
	MaxKDFMemoryKiB uint32 = 1024 * 1024 // 1 GiB
)

// SaltBytes is the size of the random KDF salt.
const SaltBytes = 16

// KeyBytes is the size of the derived symmetric key.
const KeyBytes = 32

// Preset is a named share scheme offered by the command line tool.
type Preset struct {
	Name           string
	RequiredShares int
	NumShares      int
}

// Presets lists the schemes offered when no explicit counts are given. "standard" is
// a single share holding the whole encrypted payload.
var Presets = []Preset{
	{Name: "standard", RequiredShares: 1, NumShares: 1},
	{Name: "2of3", RequiredShares: 2, NumShares: 3},
	{Name: "3of5", RequiredShares: 3, NumShares: 5},
	{Name: "4of7", RequiredShares: 4, NumShares: 7},
}

// LookupPreset returns the preset with the given name.
func LookupPreset(name string) (Preset, bool) {
	for _, p := range Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
