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

// Package backup encrypts secrets under passphrases and splits the ciphertexts into
// shares, any RequiredShares of which restore the secrets when the passphrase is known.
package backup

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/hyperbacked/hyperbacked/backup/internal/secret_sharing/secrets"
	"github.com/hyperbacked/hyperbacked/backup/internal/secret_sharing/shamir"
	"github.com/hyperbacked/hyperbacked/backup/shares"
	"github.com/hyperbacked/hyperbacked/constants"
)

// Secret is a value to protect together with the passphrase protecting it.
type Secret struct {
	Value      []byte
	Passphrase string
}

// Config describes the share scheme of a backup and how payloads are encrypted. A zero
// KDF or Suite selects the defaults.
type Config struct {
	RequiredShares int
	NumShares      int
	KDF            KDFParams
	Suite          CipherSuite
}

// DefaultConfig returns a configuration for a required-of-num scheme with default
// encryption parameters.
func DefaultConfig(required, num int) Config {
	return Config{
		RequiredShares: required,
		NumShares:      num,
		KDF:            DefaultKDFParams(),
		Suite:          SuiteAES256GCM,
	}
}

func (c Config) withDefaults() Config {
	if c.KDF == (KDFParams{}) {
		c.KDF = DefaultKDFParams()
	}
	if c.Suite == 0 {
		c.Suite = SuiteAES256GCM
	}
	return c
}

// Validate accepts 2 <= RequiredShares <= NumShares <= 255, or a single share that
// holds the whole payload (1 of 1).
func (c Config) Validate() error {
	c = c.withDefaults()
	switch {
	case c.RequiredShares == 1 && c.NumShares == 1:
	case c.RequiredShares < 2:
		return fmt.Errorf("%w: at least 2 shares must be required unless the backup has a single share, got %d of %d", ErrInvalidConfig, c.RequiredShares, c.NumShares)
	case c.RequiredShares > c.NumShares:
		return fmt.Errorf("%w: %d shares required but only %d produced", ErrInvalidConfig, c.RequiredShares, c.NumShares)
	case c.NumShares > constants.MaxShares:
		return fmt.Errorf("%w: at most %d shares are supported, got %d", ErrInvalidConfig, constants.MaxShares, c.NumShares)
	}
	if c.Suite.NonceSize() == 0 {
		return fmt.Errorf("%w: unknown cipher suite %v", ErrInvalidConfig, c.Suite)
	}
	return c.KDF.Validate()
}

// Backup is the result of CreateBackup. Shares[i] has number i+1.
type Backup struct {
	ID             uuid.UUID
	RequiredShares int
	NumShares      int
	Shares         []shares.Share
}

// Share returns the share with the given number.
func (b *Backup) Share(number int) (shares.Share, bool) {
	for _, s := range b.Shares {
		if s.Number == number {
			return s, true
		}
	}
	return shares.Share{}, false
}

// CreateBackup encrypts every secret under its passphrase and splits the result into
// cfg.NumShares shares. Share i bundles fragment i of every secret, in input order.
func CreateBackup(batch []Secret, cfg Config) (*Backup, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	if len(batch) == 0 {
		return nil, fmt.Errorf("%w: no secrets to back up", ErrEmptyInput)
	}
	for i, s := range batch {
		if len(s.Value) == 0 {
			return nil, fmt.Errorf("%w: secret %d is empty", ErrEmptyInput, i)
		}
		if s.Passphrase == "" {
			return nil, fmt.Errorf("%w: secret %d has no passphrase", ErrEmptyInput, i)
		}
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate backup ID: %v", err)
	}

	out := make([]shares.Share, cfg.NumShares)
	for i := range out {
		out[i] = shares.Share{
			Version:        constants.ShareFormatVersion,
			BackupID:       id,
			Number:         i + 1,
			RequiredShares: cfg.RequiredShares,
			NumShares:      cfg.NumShares,
			Fragments:      make([][]byte, len(batch)),
		}
	}

	for i, s := range batch {
		payload, err := sealPayload(s.Value, s.Passphrase, cfg.Suite, cfg.KDF)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt secret %d: %w", i, err)
		}
		packed, err := payload.Pack()
		if err != nil {
			return nil, fmt.Errorf("failed to pack secret %d: %w", i, err)
		}
		glog.V(2).Infof("Secret %d: packed payload is %d bytes", i, len(packed))

		if cfg.NumShares == 1 {
			out[0].Fragments[i] = packed
			continue
		}
		split, err := shamir.SplitSecret(secrets.Metadata{NumShares: cfg.NumShares, Threshold: cfg.RequiredShares}, packed)
		if err != nil {
			return nil, fmt.Errorf("failed to split secret %d: %w", i, err)
		}
		for j, share := range split.Shares {
			out[j].Fragments[i] = share.Value
		}
	}

	glog.V(1).Infof("Created backup %v: %d secret(s), %d of %d shares", id, len(batch), cfg.RequiredShares, cfg.NumShares)
	return &Backup{
		ID:             id,
		RequiredShares: cfg.RequiredShares,
		NumShares:      cfg.NumShares,
		Shares:         out,
	}, nil
}

// RestoreBackup recovers every secret of a backup from at least RequiredShares of its
// shares, using one passphrase for all of them.
func RestoreBackup(list []shares.Share, passphrase string) ([][]byte, error) {
	return RestoreBackupWithPassphrases(list, []string{passphrase})
}

// RestoreBackupWithPassphrases recovers every secret of a backup. passphrases holds one
// passphrase per secret in creation order, or a single passphrase used for all. The
// secrets are returned in creation order; if any of them fails, none is returned.
func RestoreBackupWithPassphrases(list []shares.Share, passphrases []string) ([][]byte, error) {
	collected, err := shares.Collect(list)
	if err != nil {
		return nil, err
	}
	ref := collected[0]
	numSecrets := len(ref.Fragments)

	switch len(passphrases) {
	case 0:
		return nil, fmt.Errorf("%w: no passphrase given", ErrEmptyInput)
	case 1:
		one := passphrases[0]
		passphrases = make([]string, numSecrets)
		for i := range passphrases {
			passphrases[i] = one
		}
	case numSecrets:
	default:
		return nil, fmt.Errorf("%w: got %d passphrases for %d secrets", ErrEmptyInput, len(passphrases), numSecrets)
	}
	for i, p := range passphrases {
		if p == "" {
			return nil, fmt.Errorf("%w: passphrase for secret %d is empty", ErrEmptyInput, i)
		}
	}

	glog.V(1).Infof("Restoring backup %v from %d of %d shares (%d required)", ref.BackupID, len(collected), ref.NumShares, ref.RequiredShares)

	out := make([][]byte, 0, numSecrets)
	for i := 0; i < numSecrets; i++ {
		value, err := restoreSecret(collected, i, passphrases[i])
		if err != nil {
			for _, v := range out {
				clear(v)
			}
			return nil, fmt.Errorf("failed to restore secret %d: %w", i, err)
		}
		out = append(out, value)
	}
	return out, nil
}

func restoreSecret(collected []shares.Share, index int, passphrase string) ([]byte, error) {
	ref := collected[0]

	var packed []byte
	if ref.NumShares == 1 {
		packed = ref.Fragments[index]
	} else {
		split := secrets.Split{
			Metadata:  secrets.Metadata{NumShares: ref.NumShares, Threshold: ref.RequiredShares},
			Shares:    make([]secrets.Share, len(collected)),
			SecretLen: len(ref.Fragments[index]),
		}
		for j, s := range collected {
			split.Shares[j] = secrets.Share{Value: s.Fragments[index], X: s.Number}
		}
		var err error
		if packed, err = shamir.Reconstruct(split); err != nil {
			return nil, err
		}
	}

	payload, err := UnpackPayload(packed)
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("Secret %d: %v payload, %d bytes of ciphertext", index, payload.Suite, len(payload.Ciphertext))
	return payload.open(passphrase)
}
