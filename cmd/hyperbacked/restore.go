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
	"os"

	"flag"
	glog "github.com/golang/glog"
	"github.com/google/subcommands"
	"github.com/hyperbacked/hyperbacked/backup"
	"github.com/hyperbacked/hyperbacked/backup/shares"
	"github.com/hyperbacked/hyperbacked/backup/sharesheet"
)

// restoreCmd handles CLI options for the restore command.
type restoreCmd struct {
	passphraseFiles stringList
	outDir          string
	quiet           bool
}

func (*restoreCmd) Name() string { return "restore" }
func (*restoreCmd) Synopsis() string {
	return "recovers secrets from enough shares and the passphrase"
}
func (*restoreCmd) Usage() string {
	return `Usage: hyperbacked restore --passphrase-file=<file>... [--out-dir=<dir>] <share_file>...

Share files may be sheets written by create or plain text typed in from paper.

Examples:
  Restore a single secret to stdout:
    $ hyperbacked restore --passphrase-file=pass.txt share-1.yaml share-4.yaml share-5.yaml > seed.txt

  Restore several secrets, each with its own passphrase, into a directory:
    $ hyperbacked restore --passphrase-file=p1.txt --passphrase-file=p2.txt --out-dir=restored share-2.yaml share-3.txt
    Wrote restored/secret-1
    Wrote restored/secret-2

Flags:
`
}
func (r *restoreCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&r.passphraseFiles, "passphrase-file", "File whose first line is the passphrase, - for stdin. Once for all secrets or once per secret.")
	f.StringVar(&r.outDir, "out-dir", "-", "Directory for secret-<i> files, - to write a single secret to stdout.")
	f.BoolVar(&r.quiet, "quiet", false, "Suppress informational output.")
}

// readShares reads every named file as a share sheet or share text.
func readShares(names []string) ([]shares.Share, error) {
	out := make([]shares.Share, 0, len(names))
	for _, name := range names {
		data, err := readInput(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read share: %v", err)
		}
		s, err := sharesheet.Read(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *restoreCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 {
		glog.Errorf("Not enough arguments (expected share files)")
		return subcommands.ExitUsageError
	}

	list, err := readShares(f.Args())
	if err != nil {
		glog.Errorf("Failed to decode share: %v", err)
		return subcommands.ExitFailure
	}
	passphrases, err := readPassphrases(r.passphraseFiles)
	if err != nil {
		glog.Errorf("%v", err)
		return subcommands.ExitFailure
	}

	values, err := backup.RestoreBackupWithPassphrases(list, passphrases)
	if err != nil {
		glog.Errorf("Failed to restore backup: %v", err)
		return subcommands.ExitFailure
	}
	defer func() {
		for _, v := range values {
			clear(v)
		}
	}()

	if r.outDir == "-" {
		if len(values) != 1 {
			glog.Errorf("Backup holds %d secrets, use --out-dir to write them to files", len(values))
			return subcommands.ExitUsageError
		}
		if _, err := os.Stdout.Write(values[0]); err != nil {
			glog.Errorf("Failed to write secret: %v", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	files := make([]outputFile, len(values))
	for i, v := range values {
		files[i] = outputFile{name: fmt.Sprintf("secret-%d", i+1), data: v}
	}
	written, err := writeAll(r.outDir, files)
	if err != nil {
		glog.Errorf("Failed to write secrets: %v", err)
		return subcommands.ExitFailure
	}
	if !r.quiet {
		for _, path := range written {
			fmt.Fprintln(os.Stderr, "Wrote", path)
		}
	}
	return subcommands.ExitSuccess
}
