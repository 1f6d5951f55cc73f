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

// Package shares defines a backup share, its binary layout and the consistency checks
// run over a set of shares before any reconstruction.
//
// The binary layout uses the protobuf wire format so that new fields can be added
// without breaking older readers:
//
//	1: format version  (varint)
//	2: backup id       (bytes, 16)
//	3: share number    (varint, 1..total)
//	4: required shares (varint)
//	5: total shares    (varint)
//	6: fragment        (bytes, repeated, one per secret in input order)
package shares

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/hyperbacked/hyperbacked/backup/internal/errs"
	"github.com/hyperbacked/hyperbacked/constants"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldVersion   protowire.Number = 1
	fieldBackupID  protowire.Number = 2
	fieldNumber    protowire.Number = 3
	fieldRequired  protowire.Number = 4
	fieldNumShares protowire.Number = 5
	fieldFragment  protowire.Number = 6
)

// Share is one distributable piece of a backup. Fragment i holds this share's
// coordinate for secret i.
type Share struct {
	Version        int
	BackupID       uuid.UUID
	Number         int
	RequiredShares int
	NumShares      int
	Fragments      [][]byte
}

// Marshal returns the binary layout of s.
func Marshal(s Share) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Version))
	b = protowire.AppendTag(b, fieldBackupID, protowire.BytesType)
	b = protowire.AppendBytes(b, s.BackupID[:])
	b = protowire.AppendTag(b, fieldNumber, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Number))
	b = protowire.AppendTag(b, fieldRequired, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.RequiredShares))
	b = protowire.AppendTag(b, fieldNumShares, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.NumShares))
	for _, f := range s.Fragments {
		b = protowire.AppendTag(b, fieldFragment, protowire.BytesType)
		b = protowire.AppendBytes(b, f)
	}
	return b
}

// Unmarshal parses the binary layout produced by Marshal and validates the result.
// Unknown fields are skipped.
func Unmarshal(b []byte) (Share, error) {
	var s Share
	var haveID bool
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Share{}, fmt.Errorf("%w: %v", errs.EncodingFailure, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && (num == fieldVersion || num == fieldNumber || num == fieldRequired || num == fieldNumShares):
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Share{}, fmt.Errorf("%w: field %d: %v", errs.EncodingFailure, num, protowire.ParseError(n))
			}
			b = b[n:]
			if v > constants.MaxShares {
				return Share{}, fmt.Errorf("%w: field %d value %d out of range", errs.EncodingFailure, num, v)
			}
			switch num {
			case fieldVersion:
				s.Version = int(v)
			case fieldNumber:
				s.Number = int(v)
			case fieldRequired:
				s.RequiredShares = int(v)
			case fieldNumShares:
				s.NumShares = int(v)
			}
		case typ == protowire.BytesType && (num == fieldBackupID || num == fieldFragment):
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Share{}, fmt.Errorf("%w: field %d: %v", errs.EncodingFailure, num, protowire.ParseError(n))
			}
			b = b[n:]
			if num == fieldBackupID {
				id, err := uuid.FromBytes(v)
				if err != nil {
					return Share{}, fmt.Errorf("%w: backup id: %v", errs.EncodingFailure, err)
				}
				s.BackupID = id
				haveID = true
				continue
			}
			s.Fragments = append(s.Fragments, bytes.Clone(v))
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Share{}, fmt.Errorf("%w: field %d: %v", errs.EncodingFailure, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if !haveID {
		return Share{}, fmt.Errorf("%w: missing backup id", errs.EncodingFailure)
	}
	if err := s.Validate(); err != nil {
		return Share{}, err
	}
	return s, nil
}

// Validate checks the invariants a single share must satisfy on its own.
func (s Share) Validate() error {
	if s.Version != constants.ShareFormatVersion {
		return fmt.Errorf("%w: unsupported share format version %d", errs.EncodingFailure, s.Version)
	}
	if s.RequiredShares < 1 || s.NumShares > constants.MaxShares || s.RequiredShares > s.NumShares {
		return fmt.Errorf("%w: invalid scheme %d of %d", errs.InconsistentShares, s.RequiredShares, s.NumShares)
	}
	if s.RequiredShares == 1 && s.NumShares != 1 {
		return fmt.Errorf("%w: invalid scheme %d of %d", errs.InconsistentShares, s.RequiredShares, s.NumShares)
	}
	if s.Number < 1 || s.Number > s.NumShares {
		return fmt.Errorf("%w: share number %d outside 1..%d", errs.InconsistentShares, s.Number, s.NumShares)
	}
	if len(s.Fragments) == 0 {
		return fmt.Errorf("%w: share %d carries no secrets", errs.InconsistentShares, s.Number)
	}
	for i, f := range s.Fragments {
		if len(f) == 0 {
			return fmt.Errorf("%w: share %d has an empty fragment for secret %d", errs.InconsistentShares, s.Number, i)
		}
	}
	return nil
}

// Equal reports whether s and o are the same share.
func (s Share) Equal(o Share) bool {
	return bytes.Equal(Marshal(s), Marshal(o))
}

// String describes the share without revealing fragment contents.
func (s Share) String() string {
	return fmt.Sprintf("share %d of %d (%d required), backup %s, %d secret(s)", s.Number, s.NumShares, s.RequiredShares, s.BackupID, len(s.Fragments))
}

// Collect validates that list describes a single backup and returns its distinct
// shares ordered by number. Exact duplicates are dropped. It fails with
// InconsistentShares when shares disagree and with InsufficientShares when fewer than
// RequiredShares distinct shares remain.
func Collect(list []Share) ([]Share, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: no shares provided", errs.InsufficientShares)
	}
	ref := list[0]
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	byNumber := make(map[int]Share, len(list))
	for _, s := range list {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if err := compatible(ref, s); err != nil {
			return nil, err
		}
		if prev, ok := byNumber[s.Number]; ok {
			if !prev.Equal(s) {
				return nil, fmt.Errorf("%w: two different shares numbered %d", errs.InconsistentShares, s.Number)
			}
			continue
		}
		byNumber[s.Number] = s
	}

	if len(byNumber) < ref.RequiredShares {
		return nil, fmt.Errorf("%w: need %d distinct shares, got %d", errs.InsufficientShares, ref.RequiredShares, len(byNumber))
	}

	out := make([]Share, 0, len(byNumber))
	for _, s := range byNumber {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func compatible(ref, s Share) error {
	switch {
	case s.Version != ref.Version:
		return fmt.Errorf("%w: share %d has format version %d, share %d has %d", errs.InconsistentShares, s.Number, s.Version, ref.Number, ref.Version)
	case s.BackupID != ref.BackupID:
		return fmt.Errorf("%w: share %d belongs to backup %s, share %d to %s", errs.InconsistentShares, s.Number, s.BackupID, ref.Number, ref.BackupID)
	case s.RequiredShares != ref.RequiredShares || s.NumShares != ref.NumShares:
		return fmt.Errorf("%w: share %d is %d of %d, share %d is %d of %d", errs.InconsistentShares, s.Number, s.RequiredShares, s.NumShares, ref.Number, ref.RequiredShares, ref.NumShares)
	case len(s.Fragments) != len(ref.Fragments):
		return fmt.Errorf("%w: share %d carries %d secrets, share %d carries %d", errs.InconsistentShares, s.Number, len(s.Fragments), ref.Number, len(ref.Fragments))
	}
	for i := range s.Fragments {
		if len(s.Fragments[i]) != len(ref.Fragments[i]) {
			return fmt.Errorf("%w: secret %d has length %d in share %d and %d in share %d", errs.InconsistentShares, i, len(s.Fragments[i]), s.Number, len(ref.Fragments[i]), ref.Number)
		}
	}
	return nil
}
