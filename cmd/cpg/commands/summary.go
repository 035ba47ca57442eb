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

package commands

import (
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/cpg/pkg/transfer"
)

// 📊 printSummary prints the one line outcome of a run.
func printSummary(w io.Writer, res *transfer.Result, runErr error) {
	if res == nil {
		return
	}

	var fatal *transfer.FatalError
	switch {
	case errors.Is(runErr, transfer.ErrAborted):
		pterm.Warning.WithWriter(w).Printfln("Aborted after %d of %d files; nothing was removed",
			res.Copied, fileTotal(res))
	case errors.As(runErr, &fatal):
		pterm.Error.WithWriter(w).Printfln("Stopped at %s: %s", fatal.Path, fatal.Err)
	case runErr != nil:
		pterm.Error.WithWriter(w).Println(runErr.Error())
	case !res.OK():
		pterm.Warning.WithWriter(w).Printfln("%s %d of %d files (%s) in %s; %d failed, %d skipped",
			verb(res), res.Copied, fileTotal(res), humanize.Bytes(uint64(max(res.Final.BytesDone, 0))),
			res.Elapsed.Round(time.Millisecond), len(res.Failed), len(res.ScanErrors))
	default:
		pterm.Success.WithWriter(w).Printfln("%s %d files (%s) in %s",
			verb(res), res.Copied, humanize.Bytes(uint64(max(res.Final.BytesDone, 0))),
			res.Elapsed.Round(time.Millisecond))
	}
}

func verb(res *transfer.Result) string {
	if res.Mode == transfer.ModeMove && res.SourceRemoved {
		return "Moved"
	}
	return "Copied"
}

func fileTotal(res *transfer.Result) int {
	if res.Manifest == nil {
		return 0
	}
	return res.Manifest.Files
}
