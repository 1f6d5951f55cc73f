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

// Package sharesheet renders shares as printable YAML documents and reads them back.
//
// A sheet repeats the share metadata in plain words for the person holding it; the
// share text lines are authoritative and the metadata is checked against them.
package sharesheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperbacked/hyperbacked/backup/internal/errs"
	"github.com/hyperbacked/hyperbacked/backup/shares"
	"github.com/hyperbacked/hyperbacked/backup/sharetext"
	"sigs.k8s.io/yaml"
)

const header = "# Hyperbacked share sheet. Keep it safe; it is useless on its own.\n"

// Sheet is the printable form of one share.
type Sheet struct {
	Label    string    `json:"label,omitempty"`
	Share    int       `json:"share"`
	Of       int       `json:"of"`
	Required int       `json:"required"`
	BackupID string    `json:"backupId"`
	Created  time.Time `json:"created"`
	Lines    []string  `json:"lines"`
}

// New returns the sheet for s.
func New(s shares.Share, label string, groupsPerLine int, created time.Time) Sheet {
	return Sheet{
		Label:    label,
		Share:    s.Number,
		Of:       s.NumShares,
		Required: s.RequiredShares,
		BackupID: s.BackupID.String(),
		Created:  created.UTC().Truncate(time.Second),
		Lines:    sharetext.Lines(s, groupsPerLine),
	}
}

// Render returns the YAML document for the sheet.
func (sh Sheet) Render() ([]byte, error) {
	b, err := yaml.Marshal(sh)
	if err != nil {
		return nil, fmt.Errorf("failed to render share sheet: %v", err)
	}
	return append([]byte(header), b...), nil
}

// Parse reads a sheet produced by Render and decodes its share. It fails with
// ErrEncodingFailure when the metadata does not match the share text.
func Parse(data []byte) (shares.Share, *Sheet, error) {
	sh := &Sheet{}
	if err := yaml.UnmarshalStrict(data, sh); err != nil {
		return shares.Share{}, nil, fmt.Errorf("%w: not a share sheet: %v", errs.EncodingFailure, err)
	}
	if len(sh.Lines) == 0 {
		return shares.Share{}, nil, fmt.Errorf("%w: share sheet has no share text", errs.EncodingFailure)
	}

	s, err := sharetext.Decode(strings.Join(sh.Lines, " "))
	if err != nil {
		return shares.Share{}, nil, err
	}
	if sh.Share != s.Number || sh.Of != s.NumShares || sh.Required != s.RequiredShares || sh.BackupID != s.BackupID.String() {
		return shares.Share{}, nil, fmt.Errorf("%w: sheet says share %d of %d (%d required) of backup %s, share text says %v",
			errs.EncodingFailure, sh.Share, sh.Of, sh.Required, sh.BackupID, s)
	}
	return s, sh, nil
}

// Read accepts either a share sheet or bare share text, as typed in from paper.
func Read(data []byte) (shares.Share, error) {
	s, _, err := Parse(data)
	if err == nil {
		return s, nil
	}
	text := string(data)
	if !strings.Contains(strings.ToUpper(text), "LINES:") {
		return sharetext.Decode(text)
	}
	return shares.Share{}, err
}
