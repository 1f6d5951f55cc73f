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

// Package secrets contains the types exchanged with the shamir package. A dealer passes
// a secret and its Metadata to shamir.SplitSecret and gets back a Split holding the
// Metadata, the shares and the secret length.
package secrets

// Metadata describes a threshold scheme.
type Metadata struct {
	NumShares int
	Threshold int
}

// Split is a secret split into shares, with what is needed to reconstruct it.
type Split struct {
	Metadata Metadata
	Shares   []Share
	// Length of the original secret in bytes.
	SecretLen int
}

// Share is one evaluation point of every per-byte polynomial. Value[i] is the
// polynomial for byte i evaluated at X.
type Share struct {
	Value []byte
	X     int
}
