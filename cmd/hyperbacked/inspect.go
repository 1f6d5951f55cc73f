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

package main

import (
	"context"
	"fmt"

	"flag"
	"github.com/alecthomas/colour"
	"github.com/google/subcommands"
	"github.com/hyperbacked/hyperbacked/backup/shares"
	"github.com/hyperbacked/hyperbacked/backup/sharesheet"
)

// inspectCmd checks share files without needing the passphrase.
type inspectCmd struct{}

func (*inspectCmd) Name() string { return "inspect" }
func (*inspectCmd) Synopsis() string {
	return "verifies share checksums and reports whether the shares suffice to restore"
}
func (*inspectCmd) Usage() string {
	return `Usage: hyperbacked inspect <share_file>...

Example:
  $ hyperbacked inspect share-1.yaml share-3.txt
   - share-1.yaml: share 1 of 5 (3 required), backup ..., 1 secret(s)
   - share-3.txt: share 3 of 5 (3 required), backup ..., 1 secret(s)
  insufficient shares: need 3 distinct shares, got 2
`
}
func (*inspectCmd) SetFlags(*flag.FlagSet) {}

func (*inspectCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 {
		fmt.Println("Not enough arguments (expected share files)")
		return subcommands.ExitUsageError
	}

	var decoded []shares.Share
	failed := false
	for _, name := range f.Args() {
		data, err := readInput(name)
		if err == nil {
			var s shares.Share
			if s, err = sharesheet.Read(data); err == nil {
				colour.Printf("^2 - %v: %v^R\n", name, s)
				decoded = append(decoded, s)
				continue
			}
		}
		colour.Printf("^1 - %v: %v^R\n", name, err)
		failed = true
	}

	if len(decoded) > 0 {
		collected, err := shares.Collect(decoded)
		switch {
		case err == nil:
			colour.Printf("^2%d distinct share(s) of backup %v, enough to restore.^R\n", len(collected), collected[0].BackupID)
		default:
			colour.Printf("^1%v^R\n", err)
			failed = true
		}
	}

	if failed {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
