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
	"slices"
	"strings"
	"time"

	"flag"
	glog "github.com/golang/glog"
	"github.com/google/subcommands"
	"github.com/hyperbacked/hyperbacked/backup"
	"github.com/hyperbacked/hyperbacked/backup/sharesheet"
	"github.com/hyperbacked/hyperbacked/config"
	"github.com/hyperbacked/hyperbacked/constants"
)

// createCmd handles CLI options for the create command.
type createCmd struct {
	configFile      string
	preset          string
	required        int
	numShares       int
	label           string
	passphraseFiles stringList
	cipher          string
	outDir          string
	quiet           bool
}

func (*createCmd) Name() string { return "create" }
func (*createCmd) Synopsis() string {
	return "encrypts secrets under a passphrase and splits them into shares"
}
func (*createCmd) Usage() string {
	return fmt.Sprintf(`Usage: hyperbacked create [--config-file=<config_file>] [--preset=<name> | --required=<n> --shares=<m>] [--label=<label>] --passphrase-file=<file>... [--out-dir=<dir>] <secret_file>...

Examples:
  Back up a seed phrase into 5 share sheets, any 3 of which restore it, using %s for configuration:
    $ hyperbacked create --preset=3of5 --passphrase-file=pass.txt --label="Family vault" seed.txt
    Wrote ./share-1.yaml
    ...

  Back up two secrets, each under its own passphrase:
    $ hyperbacked create --required=2 --shares=3 --passphrase-file=p1.txt --passphrase-file=p2.txt s1.txt s2.txt

  Read the secret from stdin and print the shares instead of writing sheets:
    $ hyperbacked create --preset=2of3 --passphrase-file=pass.txt --out-dir=- - < seed.txt

Flags:
`, defaultConfigPath())
	// The flags are automatically printed after the returned text.
}
func (c *createCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configFile, "config-file", defaultConfigPath(), "Path to a hyperbacked YAML config file. Optional.")
	f.StringVar(&c.preset, "preset", "", "Named share scheme, see `hyperbacked presets`. Optional.")
	f.IntVar(&c.required, "required", 0, "Number of shares needed to restore. Overrides the config file.")
	f.IntVar(&c.numShares, "shares", 0, "Number of shares to produce. Overrides the config file.")
	f.StringVar(&c.label, "label", "", "Label printed on every share sheet. Optional.")
	f.Var(&c.passphraseFiles, "passphrase-file", "File whose first line is the passphrase, - for stdin. Once for all secrets or once per secret.")
	f.StringVar(&c.cipher, "cipher", "", "Cipher suite (aes256-gcm or xchacha20-poly1305). Overrides the config file.")
	f.StringVar(&c.outDir, "out-dir", ".", "Directory for share-<n>.yaml sheets, - to print share text to stdout.")
	f.BoolVar(&c.quiet, "quiet", false, "Suppress informational output.")
}

// settings merges the config file, the environment and the command line flags.
func (c *createCmd) settings() (*config.Config, error) {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return nil, err
	}

	if c.preset != "" {
		if c.required != 0 || c.numShares != 0 {
			return nil, fmt.Errorf("--preset cannot be combined with --required or --shares")
		}
		p, ok := constants.LookupPreset(c.preset)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q, see `hyperbacked presets`", c.preset)
		}
		cfg.RequiredShares, cfg.NumShares = p.RequiredShares, p.NumShares
	}
	if c.required != 0 {
		cfg.RequiredShares = c.required
	}
	if c.numShares != 0 {
		cfg.NumShares = c.numShares
	}
	if c.cipher != "" {
		cfg.Cipher = c.cipher
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *createCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 {
		glog.Errorf("Not enough arguments (expected at least one secret file)")
		return subcommands.ExitUsageError
	}
	if slices.Contains(f.Args(), "-") && slices.Contains(c.passphraseFiles, "-") {
		glog.Errorf("Secret and passphrase cannot both be read from stdin")
		return subcommands.ExitUsageError
	}

	cfg, err := c.settings()
	if err != nil {
		glog.Errorf("Invalid configuration: %v", err)
		return subcommands.ExitFailure
	}
	bc, err := cfg.BackupConfig()
	if err != nil {
		glog.Errorf("Invalid configuration: %v", err)
		return subcommands.ExitFailure
	}

	passphrases, err := readPassphrases(c.passphraseFiles)
	if err != nil {
		glog.Errorf("%v", err)
		return subcommands.ExitFailure
	}
	if len(passphrases) != 1 && len(passphrases) != f.NArg() {
		glog.Errorf("Got %d passphrase files for %d secrets (expected 1 or %d)", len(passphrases), f.NArg(), f.NArg())
		return subcommands.ExitUsageError
	}

	batch := make([]backup.Secret, f.NArg())
	for i, name := range f.Args() {
		value, err := readInput(name)
		if err != nil {
			glog.Errorf("Failed to read secret: %v", err)
			return subcommands.ExitFailure
		}
		batch[i] = backup.Secret{Value: value, Passphrase: passphrases[min(i, len(passphrases)-1)]}
	}

	b, err := backup.CreateBackup(batch, bc)
	for _, s := range batch {
		clear(s.Value)
	}
	if err != nil {
		glog.Errorf("Failed to create backup: %v", err)
		return subcommands.ExitFailure
	}

	created := time.Now()
	var files []outputFile
	for _, s := range b.Shares {
		sheet := sharesheet.New(s, c.label, cfg.GroupsPerLine, created)

		if c.outDir == "-" {
			fmt.Printf("# Share %d of %d (%d required)", sheet.Share, sheet.Of, sheet.Required)
			if c.label != "" {
				fmt.Printf(" %s", c.label)
			}
			fmt.Printf("\n%s\n\n", strings.Join(sheet.Lines, "\n"))
			continue
		}

		rendered, err := sheet.Render()
		if err != nil {
			glog.Errorf("%v", err)
			return subcommands.ExitFailure
		}
		files = append(files, outputFile{name: fmt.Sprintf("share-%d.yaml", s.Number), data: rendered})
	}

	if len(files) > 0 {
		written, err := writeAll(c.outDir, files)
		if err != nil {
			glog.Errorf("Failed to write share sheets: %v", err)
			return subcommands.ExitFailure
		}
		if !c.quiet {
			for _, path := range written {
				fmt.Fprintln(os.Stderr, "Wrote", path)
			}
		}
	}

	if !c.quiet {
		// Needed to tell shares of different backups apart.
		fmt.Fprintln(os.Stderr, "Backup ID:", b.ID)
		fmt.Fprintf(os.Stderr, "Any %d of the %d shares and the passphrase restore the backup.\n", b.RequiredShares, b.NumShares)
	}
	return subcommands.ExitSuccess
}
