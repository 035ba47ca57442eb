// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
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
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/cpg/cmd/cpg/commands"
	"github.com/walteh/cpg/pkg/transfer"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 127
	exitAborted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	cmd := NewCommand(stdout, stderr)
	cmd.SetArgs(commandArgs(argv))
	err := cmd.ExecuteContext(ctx)

	var usage *commands.UsageError
	var fatal *transfer.FatalError
	switch {
	case err == nil:
	case errors.As(err, &usage):
		fmt.Fprintln(stdout, usage.Message)
	case errors.Is(err, transfer.ErrAborted),
		errors.As(err, &fatal),
		errors.Is(err, commands.ErrIncomplete):
		// already summarized
	default:
		pterm.Error.WithWriter(stderr).Println(err.Error())
	}
	return exitCode(err)
}

// exitCode maps the command's error onto the process exit code.
func exitCode(err error) int {
	var usage *commands.UsageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &usage):
		return exitUsage
	case errors.Is(err, transfer.ErrAborted):
		return exitAborted
	default:
		return exitFailure
	}
}

// commandArgs turns argv into cobra arguments. A binary installed as mv
// (or any name containing it) or as cp runs that command directly.
func commandArgs(argv []string) []string {
	if len(argv) == 0 {
		return nil
	}
	name := strings.TrimSuffix(filepath.Base(argv[0]), filepath.Ext(argv[0]))
	args := argv[1:]

	if mode, ok := transfer.ParseMode(name); ok {
		return append([]string{mode.String()}, args...)
	}
	if strings.Contains(name, "mv") {
		return append([]string{transfer.ModeMove.String()}, args...)
	}
	return args
}
