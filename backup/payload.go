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

// Packing of encrypted payloads.
//
// A packed payload is a concatenation of a fixed 12 byte header, the KDF salt,
// the AEAD nonce, the ciphertext and the authentication tag, with no padding.
//
// Payload Header (12 bytes, little endian):
// - format version (1 byte)
// - cipher suite (1 byte)
// - Argon2id time (4 bytes)
// - Argon2id memory in KiB (4 bytes)
// - Argon2id threads (1 byte)
// - salt length (1 byte)
//
// The header followed by the salt is the associated data of the AEAD, so no
// field of it can be changed without failing authentication.

package backup

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hyperbacked/hyperbacked/constants"
)

type payloadHeader struct {
	Version   uint8
	Suite     uint8
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	SaltLen   uint8
}

const payloadHeaderBytes = 12

// EncryptedPayload is one secret after encryption, together with everything except the
// passphrase that is needed to decrypt it.
type EncryptedPayload struct {
	Version    uint8
	Suite      CipherSuite
	KDF        KDFParams
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
	Tag        []byte
}

// associatedData returns the bytes authenticated along with the ciphertext.
func (p *EncryptedPayload) associatedData() ([]byte, error) {
	if len(p.Salt) > 255 {
		return nil, fmt.Errorf("salt of %d bytes is too long", len(p.Salt))
	}
	header := payloadHeader{
		Version:   p.Version,
		Suite:     uint8(p.Suite),
		Time:      p.KDF.Time,
		MemoryKiB: p.KDF.MemoryKiB,
		Threads:   p.KDF.Threads,
		SaltLen:   uint8(len(p.Salt)),
	}

	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write payload header: %v", err)
	}
	buf.Write(p.Salt)
	return buf.Bytes(), nil
}

// Pack serializes the payload.
func (p *EncryptedPayload) Pack() ([]byte, error) {
	aad, err := p.associatedData()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(aad)+len(p.Nonce)+len(p.Ciphertext)+len(p.Tag))
	out = append(out, aad...)
	out = append(out, p.Nonce...)
	out = append(out, p.Ciphertext...)
	out = append(out, p.Tag...)
	return out, nil
}

// UnpackPayload parses a packed payload. Because the payload comes out of secret
// sharing, where shares of another backup interpolate to noise, anything that does
// not parse is reported as ErrAuthenticationFailure.
func UnpackPayload(data []byte) (*EncryptedPayload, error) {
	if len(data) < payloadHeaderBytes {
		return nil, fmt.Errorf("%w: payload of %d bytes is shorter than its header", ErrAuthenticationFailure, len(data))
	}

	var header payloadHeader
	if err := binary.Read(bytes.NewReader(data[:payloadHeaderBytes]), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: failed to read payload header: %v", ErrAuthenticationFailure, err)
	}
	if header.Version != constants.PayloadFormatVersion {
		return nil, fmt.Errorf("%w: unknown payload version %d", ErrAuthenticationFailure, header.Version)
	}

	suite := CipherSuite(header.Suite)
	ns, ts := suite.NonceSize(), suite.TagSize()
	if ns == 0 {
		return nil, fmt.Errorf("%w: unknown cipher suite %d", ErrAuthenticationFailure, header.Suite)
	}
	kdf := KDFParams{Time: header.Time, MemoryKiB: header.MemoryKiB, Threads: header.Threads}
	if err := kdf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: stored KDF parameters rejected: %v", ErrAuthenticationFailure, err)
	}

	saltLen := int(header.SaltLen)
	if saltLen == 0 || len(data) < payloadHeaderBytes+saltLen+ns+ts {
		return nil, fmt.Errorf("%w: payload of %d bytes is truncated", ErrAuthenticationFailure, len(data))
	}

	rest := data[payloadHeaderBytes:]
	p := &EncryptedPayload{
		Version: header.Version,
		Suite:   suite,
		KDF:     kdf,
		Salt:    bytes.Clone(rest[:saltLen]),
	}
	rest = rest[saltLen:]
	p.Nonce = bytes.Clone(rest[:ns])
	rest = rest[ns:]
	p.Ciphertext = bytes.Clone(rest[:len(rest)-ts])
	p.Tag = bytes.Clone(rest[len(rest)-ts:])
	return p, nil
}

// sealPayload derives a key for passphrase with a fresh salt and encrypts value.
func sealPayload(value []byte, passphrase string, suite CipherSuite, kdf KDFParams) (*EncryptedPayload, error) {
	key, salt, err := DeriveKey(passphrase, nil, kdf)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	p := &EncryptedPayload{
		Version: constants.PayloadFormatVersion,
		Suite:   suite,
		KDF:     kdf,
		Salt:    salt,
	}
	aad, err := p.associatedData()
	if err != nil {
		return nil, err
	}
	p.Nonce, p.Ciphertext, p.Tag, err = Encrypt(suite, key, value, aad)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// open decrypts the payload with a key derived from passphrase and the stored salt.
func (p *EncryptedPayload) open(passphrase string) ([]byte, error) {
	key, _, err := DeriveKey(passphrase, p.Salt, p.KDF)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	aad, err := p.associatedData()
	if err != nil {
		return nil, err
	}
	return Decrypt(p.Suite, key, p.Nonce, p.Ciphertext, p.Tag, aad)
}
