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
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/cpg/cmd/cpg/opts"
	"github.com/walteh/cpg/pkg/log"
	"github.com/walteh/cpg/pkg/progress"
	"github.com/walteh/cpg/pkg/report"
	"github.com/walteh/cpg/pkg/scan"
	"github.com/walteh/cpg/pkg/transfer"
)

// 📋 NewCopyCmd creates the cp command
func NewCopyCmd(opts *opts.RootOpts) *cobra.Command {
	return newTransferCmd(opts, transfer.ModeCopy,
		"Copy files and directories with live progress",
		`Copy copies every SOURCE into DESTINATION.
It will:
1. Expand glob patterns (including **) in SOURCE
2. Count the objects and bytes to transfer
3. Create the destination directories
4. Copy each file while reporting speed and ETA`)
}

// 🚚 NewMoveCmd creates the mv command
func NewMoveCmd(opts *opts.RootOpts) *cobra.Command {
	return newTransferCmd(opts, transfer.ModeMove,
		"Move files and directories with live progress",
		`Move copies every SOURCE into DESTINATION and then removes the sources.
The sources are kept when the run is interrupted or any entry could not be
transferred.`)
}

func newTransferCmd(o *opts.RootOpts, mode transfer.Mode, short, long string) *cobra.Command {
	name := mode.String()
	return &cobra.Command{
		Use:   name + " SOURCE... DESTINATION",
		Short: short,
		Long:  long,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return NewUsageError(fmt.Sprintf("Usage: %s SOURCE... DESTINATION", name), nil)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd.Context(), o, mode, args[:len(args)-1], args[len(args)-1])
		},
	}
}

// 🏃 runTransfer expands the sources, drives the transfer and reports it.
func runTransfer(ctx context.Context, o *opts.RootOpts, mode transfer.Mode, args []string, dest string) error {
	cfg := o.Config
	if err := cfg.Validate(); err != nil {
		return NewUsageError("Invalid arguments", err)
	}

	sources, err := scan.ExpandAll(args)
	if err != nil {
		var se *scan.SourceError
		switch {
		case errors.As(err, &se) && errors.Is(err, scan.ErrNoMatch):
			return NewUsageError("No matching found: "+se.Arg, err)
		case errors.Is(err, scan.ErrInvalidSource):
			return NewUsageError("Invalid arguments", err)
		default:
			return errors.Errorf("expanding sources: %w", err)
		}
	}

	zerolog.Ctx(ctx).Debug().
		Str("mode", mode.String()).
		Strs("sources", sources).
		Str("destination", dest).
		Str("config", cfg.String()).
		Msg("starting transfer")

	logger := log.New(o.Stdout, *zerolog.Ctx(ctx))

	var bar *progress.Bar
	var render progress.RenderFunc
	if !cfg.Quiet {
		bar = progress.NewBar(o.Stdout)
		logger.SetLineHolder(bar)
		render = bar.Render
	}

	driver, err := transfer.New(transfer.Options{
		Mode:     mode,
		Interval: cfg.Interval,
		Window:   cfg.Window,
		Width:    o.Width,
		Render:   render,
	})
	if err != nil {
		return errors.Errorf("creating driver: %w", err)
	}

	res, runErr := driver.Run(log.NewContext(ctx, logger), sources, dest)
	if bar != nil {
		bar.Close()
	}

	if cfg.ReportPath != "" {
		if err := report.Write(ctx, cfg.ReportPath, report.New(res, runErr)); err != nil {
			logger.Errorf("writing report: %s", err)
		}
	}

	printSummary(o.Stdout, res, runErr)

	if runErr != nil {
		return runErr
	}
	if !res.OK() {
		return errors.Errorf("%d failed, %d skipped: %w", len(res.Failed), len(res.ScanErrors), ErrIncomplete)
	}
	return nil
}
