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

package backup

import "github.com/hyperbacked/hyperbacked/backup/internal/errs"

// Errors returned by this package and its subpackages. Test for them with errors.Is.
var (
	// ErrInvalidConfig: share counts or KDF parameters out of range.
	ErrInvalidConfig = errs.InvalidConfig
	// ErrEmptyInput: empty secret value, empty passphrase or no secrets at all.
	ErrEmptyInput = errs.EmptyInput
	// ErrInsufficientShares: fewer distinct shares than the backup requires.
	ErrInsufficientShares = errs.InsufficientShares
	// ErrInconsistentShares: shares disagree on scheme, backup or payload length.
	ErrInconsistentShares = errs.InconsistentShares
	// ErrAuthenticationFailure: wrong passphrase, or tampered or foreign shares.
	ErrAuthenticationFailure = errs.AuthenticationFailure
	// ErrEncodingFailure: a printed share could not be decoded.
	ErrEncodingFailure = errs.EncodingFailure
)
