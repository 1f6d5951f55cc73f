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
	"errors"
	"testing"

	"github.com/hyperbacked/hyperbacked/backup"
	"github.com/hyperbacked/hyperbacked/constants"
)

var suites = []backup.CipherSuite{backup.SuiteAES256GCM, backup.SuiteXChaCha20Poly1305}

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, constants.KeyBytes)
}

func TestEncryptAndDecrypt(t *testing.T) {
	testPT := []byte("Plaintext for testing only.")
	testAAD := []byte("AAD for testing only.")

	for _, suite := range suites {
		t.Run(suite.String(), func(t *testing.T) {
			nonce, ciphertext, tag, err := backup.Encrypt(suite, testKey(), testPT, testAAD)
			if err != nil {
				t.Fatalf("Encrypt failed with error %v", err)
			}
			if len(nonce) != suite.NonceSize() {
				t.Errorf("nonce has %d bytes, want %d", len(nonce), suite.NonceSize())
			}
			if len(tag) != suite.TagSize() {
				t.Errorf("tag has %d bytes, want %d", len(tag), suite.TagSize())
			}
			if len(ciphertext) != len(testPT) {
				t.Errorf("ciphertext has %d bytes, want %d", len(ciphertext), len(testPT))
			}

			plaintext, err := backup.Decrypt(suite, testKey(), nonce, ciphertext, tag, testAAD)
			if err != nil {
				t.Fatalf("Decrypt failed with error %v", err)
			}
			if !bytes.Equal(plaintext, testPT) {
				t.Errorf("Encrypt and Decrypt workflow does not restore original plaintext. Got %q, want %q", plaintext, testPT)
			}
		})
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	for _, suite := range suites {
		t.Run(suite.String(), func(t *testing.T) {
			nonce1, ct1, _, err := backup.Encrypt(suite, testKey(), []byte("same plaintext"), nil)
			if err != nil {
				t.Fatalf("Encrypt failed with error %v", err)
			}
			nonce2, ct2, _, err := backup.Encrypt(suite, testKey(), []byte("same plaintext"), nil)
			if err != nil {
				t.Fatalf("Encrypt failed with error %v", err)
			}
			if bytes.Equal(nonce1, nonce2) || bytes.Equal(ct1, ct2) {
				t.Error("two encryptions of the same plaintext produced the same nonce or ciphertext")
			}
		})
	}
}

func TestDecryptFailures(t *testing.T) {
	testPT := []byte("Plaintext for testing only.")
	testAAD := []byte("AAD for testing only.")

	for _, suite := range suites {
		nonce, ciphertext, tag, err := backup.Encrypt(suite, testKey(), testPT, testAAD)
		if err != nil {
			t.Fatalf("Encrypt failed with error %v", err)
		}
		flip := func(b []byte) []byte {
			out := bytes.Clone(b)
			out[len(out)/2] ^= 0x01
			return out
		}
		otherKey := flip(testKey())

		testCases := []struct {
			name                string
			key, n, ct, tg, aad []byte
		}{
			{"wrong key", otherKey, nonce, ciphertext, tag, testAAD},
			{"nonmatching AAD", testKey(), nonce, ciphertext, tag, []byte("AAD for decrypt testing only.")},
			{"modified nonce", testKey(), flip(nonce), ciphertext, tag, testAAD},
			{"modified ciphertext", testKey(), nonce, flip(ciphertext), tag, testAAD},
			{"modified tag", testKey(), nonce, ciphertext, flip(tag), testAAD},
			{"short nonce", testKey(), nonce[1:], ciphertext, tag, testAAD},
			{"short tag", testKey(), nonce, ciphertext, tag[1:], testAAD},
		}
		for _, tc := range testCases {
			t.Run(suite.String()+"/"+tc.name, func(t *testing.T) {
				plaintext, err := backup.Decrypt(suite, tc.key, tc.n, tc.ct, tc.tg, tc.aad)
				if !errors.Is(err, backup.ErrAuthenticationFailure) {
					t.Errorf("Decrypt returned error %v, want ErrAuthenticationFailure", err)
				}
				if plaintext != nil {
					t.Errorf("Decrypt returned plaintext %q alongside an error", plaintext)
				}
			})
		}
	}
}

func TestParseCipherSuite(t *testing.T) {
	for _, suite := range suites {
		got, err := backup.ParseCipherSuite(suite.String())
		if err != nil {
			t.Fatalf("ParseCipherSuite(%q) failed: %v", suite.String(), err)
		}
		if got != suite {
			t.Errorf("ParseCipherSuite(%q) = %v, want %v", suite.String(), got, suite)
		}
	}

	if got, err := backup.ParseCipherSuite("AES256-GCM"); err != nil || got != backup.SuiteAES256GCM {
		t.Errorf("ParseCipherSuite is not case insensitive: got %v, %v", got, err)
	}
	if _, err := backup.ParseCipherSuite("rot13"); !errors.Is(err, backup.ErrInvalidConfig) {
		t.Errorf("ParseCipherSuite(rot13) returned %v, want ErrInvalidConfig", err)
	}
}

func TestEncryptRejectsUnknownSuite(t *testing.T) {
	if _, _, _, err := backup.Encrypt(backup.CipherSuite(99), testKey(), []byte("x"), nil); !errors.Is(err, backup.ErrInvalidConfig) {
		t.Errorf("Encrypt with unknown suite returned %v, want ErrInvalidConfig", err)
	}
}
