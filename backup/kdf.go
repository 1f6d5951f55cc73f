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

// Passphrase based key derivation.

package backup

import (
	"fmt"

	"github.com/google/tink/go/subtle/random"
	"github.com/hyperbacked/hyperbacked/constants"
	"golang.org/x/crypto/argon2"
)

// KDFParams are the Argon2id cost parameters. They are stored in every encrypted
// payload, so a backup can be restored whatever the current defaults are.
type KDFParams struct {
	Time      uint32 `json:"time" env:"TIME"`
	MemoryKiB uint32 `json:"memoryKiB" env:"MEMORY_KIB"`
	Threads   uint8  `json:"threads" env:"THREADS"`
}

// DefaultKDFParams returns the parameters used when none are configured.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Time:      constants.DefaultKDFTime,
		MemoryKiB: constants.DefaultKDFMemoryKiB,
		Threads:   constants.DefaultKDFThreads,
	}
}

// Validate checks p against what Argon2 accepts and against MaxKDFTime and
// MaxKDFMemoryKiB.
func (p KDFParams) Validate() error {
	if p.Time < 1 {
		return fmt.Errorf("%w: KDF time must be at least 1", ErrInvalidConfig)
	}
	if p.Time > constants.MaxKDFTime {
		return fmt.Errorf("%w: KDF time %d exceeds %d", ErrInvalidConfig, p.Time, constants.MaxKDFTime)
	}
	if p.Threads < 1 {
		return fmt.Errorf("%w: KDF threads must be at least 1", ErrInvalidConfig)
	}
	if p.MemoryKiB < 8*uint32(p.Threads) {
		return fmt.Errorf("%w: KDF memory must be at least %d KiB for %d threads", ErrInvalidConfig, 8*uint32(p.Threads), p.Threads)
	}
	if p.MemoryKiB > constants.MaxKDFMemoryKiB {
		return fmt.Errorf("%w: KDF memory %d KiB exceeds %d KiB", ErrInvalidConfig, p.MemoryKiB, constants.MaxKDFMemoryKiB)
	}
	return nil
}

// DeriveKey derives a KeyBytes long key from passphrase with Argon2id. A nil salt is
// replaced by a fresh random one; the salt actually used is returned.
func DeriveKey(passphrase string, salt []byte, params KDFParams) (key, usedSalt []byte, err error) {
	if passphrase == "" {
		return nil, nil, fmt.Errorf("%w: passphrase must not be empty", ErrEmptyInput)
	}
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}
	if salt == nil {
		salt = random.GetRandomBytes(constants.SaltBytes)
	}
	if len(salt) == 0 {
		return nil, nil, fmt.Errorf("%w: salt must not be empty", ErrInvalidConfig)
	}
	key = argon2.IDKey([]byte(passphrase), salt, params.Time, params.MemoryKiB, params.Threads, constants.KeyBytes)
	return key, salt, nil
}
