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

package backup_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hyperbacked/hyperbacked/backup"
	"github.com/hyperbacked/hyperbacked/backup/internal/secret_sharing/secrets"
	"github.com/hyperbacked/hyperbacked/backup/internal/secret_sharing/shamir"
	"github.com/hyperbacked/hyperbacked/backup/shares"
	"github.com/hyperbacked/hyperbacked/backup/testutil"
	"github.com/hyperbacked/hyperbacked/constants"
)

// standardPayload returns the packed payload held by the only share of a 1 of 1 backup.
func standardPayload(t *testing.T, suite backup.CipherSuite) (*backup.Backup, []byte) {
	t.Helper()
	cfg := testutil.FastConfig(1, 1)
	cfg.Suite = suite
	b := testutil.CreateBackup(t, testutil.TestSecrets(1), cfg)
	return b, b.Shares[0].Fragments[0]
}

func TestUnpackPayload(t *testing.T) {
	for _, suite := range suites {
		t.Run(suite.String(), func(t *testing.T) {
			_, packed := standardPayload(t, suite)

			p, err := backup.UnpackPayload(packed)
			if err != nil {
				t.Fatalf("UnpackPayload failed: %v", err)
			}
			if p.Version != constants.PayloadFormatVersion || p.Suite != suite {
				t.Errorf("UnpackPayload returned version %d suite %v, want %d %v", p.Version, p.Suite, constants.PayloadFormatVersion, suite)
			}
			if diff := cmp.Diff(testutil.FastKDFParams, p.KDF); diff != "" {
				t.Errorf("stored KDF parameters differ (-want +got):\n%s", diff)
			}
			if len(p.Salt) != constants.SaltBytes || len(p.Nonce) != suite.NonceSize() || len(p.Tag) != suite.TagSize() {
				t.Errorf("UnpackPayload returned salt %d nonce %d tag %d bytes", len(p.Salt), len(p.Nonce), len(p.Tag))
			}
			if want := len(testutil.TestSecrets(1)[0].Value); len(p.Ciphertext) != want {
				t.Errorf("ciphertext has %d bytes, want %d", len(p.Ciphertext), want)
			}

			repacked, err := p.Pack()
			if err != nil {
				t.Fatalf("Pack failed: %v", err)
			}
			if !bytes.Equal(repacked, packed) {
				t.Errorf("Pack(UnpackPayload(x)) != x:\n got %x\nwant %x", repacked, packed)
			}
		})
	}
}

func TestUnpackPayloadFailures(t *testing.T) {
	_, packed := standardPayload(t, backup.SuiteAES256GCM)

	withByte := func(offset int, v byte) []byte {
		out := bytes.Clone(packed)
		out[offset] = v
		return out
	}

	withUint32 := func(offset int, v uint32) []byte {
		out := bytes.Clone(packed)
		binary.LittleEndian.PutUint32(out[offset:], v)
		return out
	}

	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"shorter than header", packed[:5]},
		{"truncated", packed[:20]},
		{"unknown version", withByte(0, 9)},
		{"unknown suite", withByte(1, 9)},
		{"zero KDF time", withByte(2, 0)},
		{"zero threads", withByte(10, 0)},
		{"zero salt length", withByte(11, 0)},
		{"KDF time above limit", withUint32(2, constants.MaxKDFTime+1)},
		{"huge KDF time", withUint32(2, 1<<30)},
		{"KDF memory above limit", withUint32(6, constants.MaxKDFMemoryKiB+1)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := backup.UnpackPayload(tc.data); !errors.Is(err, backup.ErrAuthenticationFailure) {
				t.Errorf("UnpackPayload returned %v, want ErrAuthenticationFailure", err)
			}
		})
	}
}

// Every part of the payload, header included, is covered by the authentication tag.
func TestTamperedPayloadIsRejected(t *testing.T) {
	b, packed := standardPayload(t, backup.SuiteAES256GCM)

	offsets := map[string]int{
		"version":     0,
		"suite":       1,
		"KDF time":    2,
		"threads":     10,
		"salt length": 11,
		"salt":        12,
		"nonce":       12 + constants.SaltBytes,
		"ciphertext":  12 + constants.SaltBytes + backup.SuiteAES256GCM.NonceSize(),
		"tag":         len(packed) - 1,
	}
	for name, offset := range offsets {
		t.Run(name, func(t *testing.T) {
			tampered := b.Shares[0]
			tampered.Fragments = [][]byte{bytes.Clone(packed)}
			tampered.Fragments[0][offset] ^= 0x02

			got, err := backup.RestoreBackup([]shares.Share{tampered}, testutil.TestPassphrase)
			if !errors.Is(err, backup.ErrAuthenticationFailure) {
				t.Errorf("RestoreBackup with tampered %s returned %v, want ErrAuthenticationFailure", name, err)
			}
			if got != nil {
				t.Errorf("RestoreBackup with tampered %s returned secrets", name)
			}
		})
	}
}

// A shareholder who knows enough shares can rewrite the header and split the payload
// again. Restore must refuse the forged KDF cost before deriving a key.
func TestRestoreRejectsForgedKDFCost(t *testing.T) {
	b := testutil.CreateBackup(t, testutil.TestSecrets(1), testutil.FastConfig(2, 3))

	split := secrets.Split{
		Metadata:  secrets.Metadata{NumShares: 3, Threshold: 2},
		SecretLen: len(b.Shares[0].Fragments[0]),
	}
	for _, s := range b.Shares[:2] {
		split.Shares = append(split.Shares, secrets.Share{Value: s.Fragments[0], X: s.Number})
	}
	packed, err := shamir.Reconstruct(split)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}

	testCases := []struct {
		name   string
		offset int
		value  uint32
	}{
		{"time", 2, 1 << 30},
		{"memory", 6, 1 << 31},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			forgedPayload := bytes.Clone(packed)
			binary.LittleEndian.PutUint32(forgedPayload[tc.offset:], tc.value)
			resplit, err := shamir.SplitSecret(split.Metadata, forgedPayload)
			if err != nil {
				t.Fatalf("SplitSecret failed: %v", err)
			}

			forged := make([]shares.Share, 2)
			for i := range forged {
				forged[i] = b.Shares[i]
				forged[i].Fragments = [][]byte{resplit.Shares[i].Value}
			}

			start := time.Now()
			got, err := backup.RestoreBackup(forged, testutil.TestPassphrase)
			if !errors.Is(err, backup.ErrAuthenticationFailure) {
				t.Errorf("RestoreBackup with forged KDF %s returned %v, want ErrAuthenticationFailure", tc.name, err)
			}
			if got != nil {
				t.Errorf("RestoreBackup with forged KDF %s returned secrets", tc.name)
			}
			if elapsed := time.Since(start); elapsed > 5*time.Second {
				t.Errorf("RestoreBackup with forged KDF %s took %v", tc.name, elapsed)
			}
		})
	}
}
