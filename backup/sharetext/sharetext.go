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

// Package sharetext converts shares to and from a printable text form meant to be
// typed back in by hand.
//
// A printed share is the prefix "HB1" followed by the unpadded RFC 4648 base32 encoding
// of the binary share and its CRC-32C, in groups of five characters:
//
//	HB1 AEAQE BAEWI ...
//
// Decoding ignores case, whitespace and dashes, and reads the digits 0, 1 and 8 as the
// letters O, I and B they are commonly mistaken for. Any single mistyped character is
// caught by the checksum.
package sharetext

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
	"unicode"

	"github.com/hyperbacked/hyperbacked/backup/internal/errs"
	"github.com/hyperbacked/hyperbacked/backup/shares"
	"github.com/hyperbacked/hyperbacked/constants"
	"github.com/multiformats/go-base32"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

var lookalikes = strings.NewReplacer("0", "O", "1", "I", "8", "B")

// Encode returns the printable form of s on a single line.
func Encode(s shares.Share) string {
	return strings.Join(groups(s), " ")
}

// Lines returns the printable form of s wrapped to groupsPerLine groups per line.
func Lines(s shares.Share, groupsPerLine int) []string {
	if groupsPerLine < 1 {
		groupsPerLine = constants.DefaultGroupsPerLine
	}
	g := groups(s)
	var lines []string
	for len(g) > 0 {
		n := min(groupsPerLine, len(g))
		lines = append(lines, strings.Join(g[:n], " "))
		g = g[n:]
	}
	return lines
}

func groups(s shares.Share) []string {
	body := shares.Marshal(s)
	body = binary.BigEndian.AppendUint32(body, crc32.Checksum(body, castagnoli))
	text := base32.RawStdEncoding.EncodeToString(body)

	out := []string{constants.ShareTextPrefix}
	for len(text) > 0 {
		n := min(constants.ShareTextGroupSize, len(text))
		out = append(out, text[:n])
		text = text[n:]
	}
	return out
}

// Decode parses a printed share, verifying its checksum. All failures wrap
// EncodingFailure, except scheme violations reported by shares.Unmarshal.
func Decode(text string) (shares.Share, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return unicode.ToUpper(r)
	}, text)

	body, ok := strings.CutPrefix(compact, constants.ShareTextPrefix)
	if !ok {
		return shares.Share{}, fmt.Errorf("%w: missing %q prefix", errs.EncodingFailure, constants.ShareTextPrefix)
	}
	raw, err := base32.RawStdEncoding.DecodeString(lookalikes.Replace(body))
	if err != nil {
		return shares.Share{}, fmt.Errorf("%w: %v", errs.EncodingFailure, err)
	}
	if len(raw) <= crc32.Size {
		return shares.Share{}, fmt.Errorf("%w: share text too short", errs.EncodingFailure)
	}
	payload, sum := raw[:len(raw)-crc32.Size], raw[len(raw)-crc32.Size:]
	if got, want := crc32.Checksum(payload, castagnoli), binary.BigEndian.Uint32(sum); got != want {
		return shares.Share{}, fmt.Errorf("%w: checksum mismatch, the share was probably mistyped", errs.EncodingFailure)
	}
	return shares.Unmarshal(payload)
}
