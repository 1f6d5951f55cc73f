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

// Package testutil contains utilities for unit tests.
package testutil

import (
	"testing"

	"github.com/hyperbacked/hyperbacked/backup"
)

var (
	// FastKDFParams are the cheapest Argon2id parameters Validate accepts. Tests use
	// them so that a derivation does not cost 64 MiB and several passes.
	FastKDFParams = backup.KDFParams{Time: 1, MemoryKiB: 8, Threads: 1}

	// TestPassphrase is a passphrase for testing only.
	TestPassphrase = "correct horse battery staple"
	// TestWrongPassphrase differs from TestPassphrase in a single character.
	TestWrongPassphrase = "correct horse battery stapler"
)

// FastConfig returns a required-of-num configuration using FastKDFParams.
func FastConfig(required, num int) backup.Config {
	return backup.Config{
		RequiredShares: required,
		NumShares:      num,
		KDF:            FastKDFParams,
		Suite:          backup.SuiteAES256GCM,
	}
}

// TestSecrets returns n distinct secrets of different lengths, all protected by
// TestPassphrase.
func TestSecrets(n int) []backup.Secret {
	out := make([]backup.Secret, n)
	for i := range out {
		value := make([]byte, 10+7*i)
		for j := range value {
			value[j] = byte(i*31 + j)
		}
		out[i] = backup.Secret{Value: value, Passphrase: TestPassphrase}
	}
	return out
}

// CreateBackup creates a backup or fails the test.
func CreateBackup(t *testing.T, batch []backup.Secret, cfg backup.Config) *backup.Backup {
	t.Helper()
	b, err := backup.CreateBackup(batch, cfg)
	if err != nil {
		t.Fatalf("CreateBackup(%d secrets, %d of %d) failed: %v", len(batch), cfg.RequiredShares, cfg.NumShares, err)
	}
	return b
}

// Combinations returns every k element subset of {0, ..., n-1} in lexicographic order.
func Combinations(n, k int) [][]int {
	var out [][]int
	var rec func(start int, cur []int)
	rec = func(start int, cur []int) {
		if len(cur) == k {
			out = append(out, append([]int(nil), cur...))
			return
		}
		for i := start; i < n; i++ {
			rec(i+1, append(cur, i))
		}
	}
	rec(0, nil)
	return out
}
