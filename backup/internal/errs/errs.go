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

// Package errs holds the error values shared by the backup packages. Package backup
// re-exports them; callers should use those names.
package errs

import "errors"

var (
	// InvalidConfig reports share counts or KDF parameters out of range.
	InvalidConfig = errors.New("invalid backup configuration")
	// EmptyInput reports an empty secret value or passphrase.
	EmptyInput = errors.New("empty input")
	// InsufficientShares reports fewer distinct shares than the threshold.
	InsufficientShares = errors.New("insufficient shares")
	// InconsistentShares reports shares that disagree on the scheme or belong to different backups.
	InconsistentShares = errors.New("inconsistent shares")
	// AuthenticationFailure reports a payload that failed AEAD verification.
	AuthenticationFailure = errors.New("authentication failure")
	// EncodingFailure reports a share encoding that could not be decoded.
	EncodingFailure = errors.New("share encoding failure")
)
