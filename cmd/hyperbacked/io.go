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
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	glog "github.com/golang/glog"
	"github.com/hyperbacked/hyperbacked/config"
)

// stringList is a flag that may be given several times.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func defaultConfigPath() string {
	path, err := config.DefaultPath()
	if err != nil {
		return ""
	}
	return path
}

// readInput reads a whole file, or stdin for "-".
func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

// readPassphrase returns the first line of a file, or of stdin for "-".
func readPassphrase(name string) (string, error) {
	var r io.Reader
	if name == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(name)
		if err != nil {
			return "", fmt.Errorf("failed to open passphrase file: %v", err)
		}
		defer f.Close()
		r = f
	}

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read passphrase: %v", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("passphrase in %s is empty", name)
	}
	return line, nil
}

func readPassphrases(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no passphrase given, use --passphrase-file")
	}
	stdin := 0
	for _, name := range names {
		if name == "-" {
			stdin++
		}
	}
	if stdin > 1 {
		return nil, fmt.Errorf("only one passphrase can be read from stdin")
	}

	out := make([]string, len(names))
	for i, name := range names {
		p, err := readPassphrase(name)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// outputFile is one file written by a command.
type outputFile struct {
	name string
	data []byte
}

// writeAll writes every file into dir. Nothing is written if any target already
// exists, and files written before a failure are removed again.
func writeAll(dir string, files []outputFile) ([]string, error) {
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		_, err := os.Lstat(path)
		if err == nil {
			return nil, fmt.Errorf("%s already exists", path)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to check %s: %v", path, err)
		}
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		path, err := writeExclusive(dir, f.name, f.data)
		if err != nil {
			for _, w := range written {
				if rmErr := os.Remove(w); rmErr != nil {
					glog.Warningf("Failed to remove partial output %s: %v", w, rmErr)
				}
			}
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}

// writeExclusive creates path with owner-only permissions, refusing to overwrite.
func writeExclusive(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %v", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close %s: %v", path, err)
	}
	return path, nil
}
