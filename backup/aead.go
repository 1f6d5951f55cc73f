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

// Utility functions for AEAD encryption and decryption.

package backup

import (
	"fmt"
	"strings"

	"github.com/google/tink/go/aead/subtle"
	"golang.org/x/crypto/chacha20poly1305"
)

// CipherSuite selects the AEAD used for a payload. Its value is stored in the payload
// header, so existing values must never change.
type CipherSuite uint8

const (
	// SuiteAES256GCM is AES-256 in GCM mode with a 12 byte nonce.
	SuiteAES256GCM CipherSuite = 1
	// SuiteXChaCha20Poly1305 is XChaCha20-Poly1305 with a 24 byte nonce.
	SuiteXChaCha20Poly1305 CipherSuite = 2
)

var suiteNames = map[CipherSuite]string{
	SuiteAES256GCM:         "aes256-gcm",
	SuiteXChaCha20Poly1305: "xchacha20-poly1305",
}

func (s CipherSuite) String() string {
	if name, ok := suiteNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CipherSuite(%d)", uint8(s))
}

// ParseCipherSuite returns the suite with the given name, as printed by String.
func ParseCipherSuite(name string) (CipherSuite, error) {
	for suite, n := range suiteNames {
		if strings.EqualFold(n, name) {
			return suite, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown cipher suite %q", ErrInvalidConfig, name)
}

// NonceSize returns the nonce length of the suite, or 0 for unknown suites.
func (s CipherSuite) NonceSize() int {
	switch s {
	case SuiteAES256GCM:
		return subtle.AESGCMIVSize
	case SuiteXChaCha20Poly1305:
		return chacha20poly1305.NonceSizeX
	}
	return 0
}

// TagSize returns the authentication tag length of the suite, or 0 for unknown suites.
func (s CipherSuite) TagSize() int {
	switch s {
	case SuiteAES256GCM:
		return subtle.AESGCMTagSize
	case SuiteXChaCha20Poly1305:
		return chacha20poly1305.Overhead
	}
	return 0
}

type aeadCipher interface {
	Encrypt(plaintext, aad []byte) ([]byte, error)
	Decrypt(ciphertext, aad []byte) ([]byte, error)
}

func newCipher(suite CipherSuite, key []byte) (aeadCipher, error) {
	switch suite {
	case SuiteAES256GCM:
		c, err := subtle.NewAESGCM(key)
		if err != nil {
			return nil, fmt.Errorf("unable to create new cipher: %v", err)
		}
		return c, nil
	case SuiteXChaCha20Poly1305:
		c, err := subtle.NewXChaCha20Poly1305(key)
		if err != nil {
			return nil, fmt.Errorf("unable to create new cipher: %v", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: unknown cipher suite %v", ErrInvalidConfig, suite)
}

// Encrypt seals plaintext under key with a fresh random nonce, authenticating aad as
// well. The nonce, ciphertext and tag are returned separately.
func Encrypt(suite CipherSuite, key, plaintext, aad []byte) (nonce, ciphertext, tag []byte, err error) {
	cipher, err := newCipher(suite, key)
	if err != nil {
		return nil, nil, nil, err
	}

	// Tink lays the output out as nonce || ciphertext || tag.
	sealed, err := cipher.Encrypt(plaintext, aad)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encryption failed: %v", err)
	}
	ns, ts := suite.NonceSize(), suite.TagSize()
	if len(sealed) < ns+ts {
		return nil, nil, nil, fmt.Errorf("encryption returned %d bytes, want at least %d", len(sealed), ns+ts)
	}

	nonce = sealed[:ns:ns]
	ciphertext = sealed[ns : len(sealed)-ts : len(sealed)-ts]
	tag = sealed[len(sealed)-ts:]
	return nonce, ciphertext, tag, nil
}

// Decrypt opens a ciphertext produced by Encrypt. Any authentication problem, including
// a wrong key, modified aad or malformed nonce and tag, yields ErrAuthenticationFailure.
func Decrypt(suite CipherSuite, key, nonce, ciphertext, tag, aad []byte) ([]byte, error) {
	cipher, err := newCipher(suite, key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != suite.NonceSize() || len(tag) != suite.TagSize() {
		return nil, fmt.Errorf("%w: nonce or tag has the wrong size for %v", ErrAuthenticationFailure, suite)
	}

	sealed := make([]byte, 0, len(nonce)+len(ciphertext)+len(tag))
	sealed = append(sealed, nonce...)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := cipher.Decrypt(sealed, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailure, err)
	}
	return plaintext, nil
}
