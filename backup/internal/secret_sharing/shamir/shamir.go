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

// Package shamir performs t-of-n [Shamir Secret Sharing] on arbitrary-size secrets over
// GF(2^8). Each byte of the secret is the constant term of its own random polynomial of
// degree t-1, so any t shares determine every byte through Lagrange interpolation and
// any t-1 shares are statistically independent of the secret.
//
// The scheme assumes a trusted dealer and a passive adversary. Reconstruct does not
// detect bogus or corrupted shares; callers authenticate the result separately.
//
// [Shamir Secret Sharing]: https://web.mit.edu/6.857/OldStuff/Fall03/ref/Shamir-HowToShareAsecrets.pdf
package shamir

import (
	"fmt"

	"github.com/hyperbacked/hyperbacked/backup/internal/errs"
	"github.com/hyperbacked/hyperbacked/backup/internal/secret_sharing/gf256"
	"github.com/hyperbacked/hyperbacked/backup/internal/secret_sharing/secrets"
)

// MaxShares is the number of distinct non-zero x coordinates in GF(2^8).
const MaxShares = 255

// SplitSecret splits secret into metadata.NumShares shares, any metadata.Threshold of
// which reconstruct it. Share i is evaluated at x = i+1.
func SplitSecret(metadata secrets.Metadata, secret []byte) (secrets.Split, error) {
	if err := validateSplitInput(metadata, secret); err != nil {
		return secrets.Split{}, err
	}
	threshold := metadata.Threshold
	numShares := metadata.NumShares

	shares := make([]secrets.Share, numShares)
	for i := range shares {
		shares[i].X = i + 1
		shares[i].Value = make([]byte, len(secret))
	}

	// shares[0].Value = [ F1(1), F2(1), ..., FL(1) ]
	// shares[1].Value = [ F1(2), F2(2), ..., FL(2) ]
	// where Fk(x) = secret[k] + R_1 * x + ... + R_{t-1} * x^(t-1)
	coefficients := make([]gf256.Element, threshold)
	for k, b := range secret {
		random, err := gf256.Random(threshold - 1)
		if err != nil {
			return secrets.Split{}, err
		}
		coefficients[0] = gf256.Element(b)
		copy(coefficients[1:], random)
		for i := range shares {
			shares[i].Value[k] = byte(gf256.Evaluate(coefficients, gf256.Element(shares[i].X)))
		}
	}
	clear(coefficients)

	return secrets.Split{
		Metadata:  metadata,
		Shares:    shares,
		SecretLen: len(secret),
	}, nil
}

// Reconstruct recovers the secret from at least Threshold shares of split. Shares may be
// in any order; only the first Threshold are used.
func Reconstruct(split secrets.Split) ([]byte, error) {
	if err := validateReconstructInput(split); err != nil {
		return nil, err
	}
	shares := split.Shares[:split.Metadata.Threshold]

	xs := make([]gf256.Element, len(shares))
	for i, s := range shares {
		xs[i] = gf256.Element(s.X)
	}
	// The basis values depend only on the x coordinates, so they are shared by every byte.
	basis, err := lagrangeBasisAtZero(xs)
	if err != nil {
		return nil, err
	}

	out := make([]byte, split.SecretLen)
	for k := range out {
		var sum gf256.Element
		for i, s := range shares {
			sum = sum.Add(gf256.Element(s.Value[k]).Mul(basis[i]))
		}
		out[k] = byte(sum)
	}
	return out, nil
}

// lagrangeBasisAtZero returns L_i(0) = ∏_{j≠i} x[j] / (x[j] - x[i]) for every i.
func lagrangeBasisAtZero(xs []gf256.Element) ([]gf256.Element, error) {
	out := make([]gf256.Element, len(xs))
	for i := range xs {
		num, den := gf256.Element(1), gf256.Element(1)
		for j := range xs {
			if i == j {
				continue
			}
			if xs[i] == xs[j] {
				return nil, fmt.Errorf("%w: duplicate x coordinate %d", errs.InconsistentShares, xs[i])
			}
			num = num.Mul(xs[j])
			den = den.Mul(xs[j].Sub(xs[i]))
		}
		l, err := num.Div(den)
		if err != nil {
			return nil, err
		}
		out[i] = l
	}
	return out, nil
}

func validateSplitInput(metadata secrets.Metadata, secret []byte) error {
	if len(secret) == 0 {
		return fmt.Errorf("%w: secret must not be empty", errs.EmptyInput)
	}
	if metadata.Threshold < 2 {
		return fmt.Errorf("%w: threshold must be at least 2, got %d", errs.InvalidConfig, metadata.Threshold)
	}
	if metadata.Threshold > metadata.NumShares {
		return fmt.Errorf("%w: threshold %d larger than numShares %d", errs.InvalidConfig, metadata.Threshold, metadata.NumShares)
	}
	if metadata.NumShares > MaxShares {
		return fmt.Errorf("%w: numShares must be at most %d, got %d", errs.InvalidConfig, MaxShares, metadata.NumShares)
	}
	return nil
}

func validateReconstructInput(split secrets.Split) error {
	md := split.Metadata
	if md.Threshold < 2 || md.NumShares < md.Threshold || md.NumShares > MaxShares {
		return fmt.Errorf("%w: threshold %d of %d shares", errs.InvalidConfig, md.Threshold, md.NumShares)
	}
	if len(split.Shares) < md.Threshold {
		return fmt.Errorf("%w: need at least %d, got %d", errs.InsufficientShares, md.Threshold, len(split.Shares))
	}
	seen := make(map[int]bool, len(split.Shares))
	for _, s := range split.Shares {
		if s.X < 1 || s.X > MaxShares {
			return fmt.Errorf("%w: invalid x coordinate %d", errs.InconsistentShares, s.X)
		}
		if seen[s.X] {
			return fmt.Errorf("%w: duplicate x coordinate %d", errs.InconsistentShares, s.X)
		}
		seen[s.X] = true
		if len(s.Value) != split.SecretLen {
			return fmt.Errorf("%w: share %d has length %d, want %d", errs.InconsistentShares, s.X, len(s.Value), split.SecretLen)
		}
	}
	return nil
}
