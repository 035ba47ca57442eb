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
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/walteh/cpg/cmd/cpg/commands"
	"github.com/walteh/cpg/cmd/cpg/opts"
	"github.com/walteh/cpg/pkg/config"
	"github.com/walteh/cpg/pkg/progress"
)

// NewCommand creates the cpg root command writing to stdout and stderr.
func NewCommand(stdout, stderr io.Writer) *cobra.Command {
	o := &opts.RootOpts{
		Config: config.Default(),
		Stdout: stdout,
		Stderr: stderr,
		Width:  progress.TerminalWidth,
	}

	rootCmd := &cobra.Command{
		Use:   "cpg",
		Short: "Copy and move files with live progress",
		Long: `cpg copies or moves files and directory trees like cp and mv while
reporting files done, bytes per second and the remaining time. Sources may be
glob patterns. Installed as cp or mv it runs that command directly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if o.Config.NoColor {
				color.NoColor = true
				pterm.DisableColor()
			}
			logger := setupLogging(o.Stderr, o.Config.Debug)
			cmd.SetContext(logger.WithContext(cmd.Context()))
			return nil
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return commands.NewUsageError("Invalid arguments", err)
	})

	addRootFlags(rootCmd, o.Config)

	rootCmd.AddCommand(
		commands.NewCopyCmd(o),
		commands.NewMoveCmd(o),
	)

	return rootCmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, cfg *config.Config) {
	cmd.PersistentFlags().DurationVar(&cfg.Interval, "interval", cfg.Interval, "progress sampling interval")
	cmd.PersistentFlags().IntVar(&cfg.Window, "window", cfg.Window, "number of samples averaged for the transfer rate")
	cmd.PersistentFlags().BoolVarP(&cfg.Debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&cfg.Quiet, "quiet", "q", false, "do not draw the progress line")
	cmd.PersistentFlags().BoolVar(&cfg.NoColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().StringVar(&cfg.ReportPath, "report", "", "write a YAML report of the run to this file")
}

// setupLogging configures zerolog based on flags
func setupLogging(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: color.NoColor}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
