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

// This binary is the main entrypoint for the hyperbacked command line tool.
package main

import (
	"context"
	"fmt"
	"os"

	"flag"
	glog "github.com/golang/glog"
	"github.com/google/subcommands"
	"github.com/hyperbacked/hyperbacked/constants"
)

// The current version, displayed via the `version` subcommand.
const hyperbackedVersion string = "0.1.0"

// presetsCmd lists the named share schemes.
type presetsCmd struct{}

func (*presetsCmd) Name() string           { return "presets" }
func (*presetsCmd) Synopsis() string       { return "lists the named share schemes accepted by --preset" }
func (*presetsCmd) Usage() string          { return "Usage: hyperbacked presets\n" }
func (*presetsCmd) SetFlags(*flag.FlagSet) {}
func (*presetsCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	for _, p := range constants.Presets {
		if p.NumShares == 1 {
			fmt.Printf("%-10s a single share holding the whole encrypted backup\n", p.Name)
			continue
		}
		fmt.Printf("%-10s any %d of %d shares restore the backup\n", p.Name, p.RequiredShares, p.NumShares)
	}
	return subcommands.ExitSuccess
}

// versionCmd handles CLI options for the version command.
type versionCmd struct{}

func (*versionCmd) Name() string           { return "version" }
func (*versionCmd) Synopsis() string       { return "prints the current version" }
func (*versionCmd) Usage() string          { return "Usage: hyperbacked version\n" }
func (*versionCmd) SetFlags(*flag.FlagSet) {}
func (*versionCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	fmt.Printf("Hyperbacked Version %s\n", hyperbackedVersion)
	return subcommands.ExitSuccess
}

func main() {
	flag.Parse()
	defer glog.Flush()

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&createCmd{}, "")
	subcommands.Register(&restoreCmd{}, "")
	subcommands.Register(&inspectCmd{}, "")
	subcommands.Register(&presetsCmd{}, "")
	subcommands.Register(&versionCmd{}, "")

	ctx := context.Background()
	status := subcommands.Execute(ctx)
	glog.Flush()
	os.Exit(int(status))
}
