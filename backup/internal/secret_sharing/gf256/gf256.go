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

// Package gf256 implements arithmetic in the finite field GF(2^8), reduced by the AES
// polynomial x^8 + x^4 + x^3 + x + 1. Every byte is exactly one field element.
package gf256

import (
	"crypto/rand"
	"fmt"
)

// Element is an element of GF(2^8).
type Element byte

// reduction term of x^8 + x^4 + x^3 + x + 1 once the x^8 bit has been shifted out.
const irreduciblePolynomial = 0x1B

// Add returns e + a. Addition and subtraction are both XOR in characteristic 2.
func (e Element) Add(a Element) Element {
	return e ^ a
}

// Sub returns e - a.
func (e Element) Sub(a Element) Element {
	return e ^ a
}

// Mul returns e * a.
func (e Element) Mul(a Element) Element {
	// No lookup tables and no data-dependent branches: the share bytes and
	// coefficients are secret, so timing must not depend on them.
	x := byte(e)
	y := byte(a)

	var product byte
	for i := 7; i >= 0; i-- {
		// All ones when the top bit of product is set, zero otherwise.
		mod := -(product >> 7) & irreduciblePolynomial
		// y when bit i of x is set, zero otherwise.
		term := -((x >> i) & 1) & y
		product = term ^ mod ^ (product << 1)
	}
	return Element(product)
}

// Inverse returns the multiplicative inverse of e, e^254.
func (e Element) Inverse() (Element, error) {
	if e == 0 {
		return 0, fmt.Errorf("gf256: zero has no inverse")
	}
	// Addition chain for 254; see https://crypto.stackexchange.com/a/40140
	b := e.Mul(e) // e^2
	c := e.Mul(b) // e^3
	b = c.Mul(c)  // e^6
	b = b.Mul(b)  // e^12
	c = b.Mul(c)  // e^15
	b = b.Mul(b)  // e^24
	b = b.Mul(b)  // e^48
	b = b.Mul(c)  // e^63
	b = b.Mul(b)  // e^126
	b = e.Mul(b)  // e^127
	b = b.Mul(b)  // e^254
	return b, nil
}

// Div returns e / a.
func (e Element) Div(a Element) (Element, error) {
	inv, err := a.Inverse()
	if err != nil {
		return 0, err
	}
	return e.Mul(inv), nil
}

// Random fills a slice of n uniformly random elements, zero included.
func Random(n int) ([]Element, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("rand.Read failed: %v", err)
	}
	out := make([]Element, n)
	for i, v := range b {
		out[i] = Element(v)
	}
	clear(b)
	return out, nil
}

// Evaluate returns p(x) for p(x) = coefficients[0] + coefficients[1]*x + ... using
// Horner's rule.
func Evaluate(coefficients []Element, x Element) Element {
	var sum Element
	for i := len(coefficients) - 1; i >= 0; i-- {
		sum = sum.Mul(x).Add(coefficients[i])
	}
	return sum
}
