// seehuhn.de/go/patchtrace - vector artwork for embroidered patches
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package cli implements the patchtrace command line tool.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"seehuhn.de/go/patchtrace"
	"seehuhn.de/go/patchtrace/internal/config"
	"seehuhn.de/go/patchtrace/internal/logger"
	"seehuhn.de/go/patchtrace/internal/metrics"
)

// Version is set at build time
var Version = "0.1.0"

// app holds the state shared by all subcommands.
type app struct {
	configFile string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
}

// NewRootCommand returns the patchtrace command with all subcommands.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "patchtrace",
		Short: "patchtrace - vector artwork for embroidered patches",
		Long: `patchtrace converts raster logos into layered SVG documents which can
be used as a starting point for embroidery digitizing.

Commands:
  vectorize - trace an image into SVG
  colors    - list the dominant colors of an image
  preview   - render a PNG mock-up of the finished patch
  proof     - write a one page PDF proof sheet
  serve     - run the HTTP API

Example:
  patchtrace vectorize logo.png -o logo.svg
  patchtrace vectorize --colors --color-count 5 logo.png
  patchtrace preview --shape rectangle logo.png -o patch.png
  patchtrace serve --config /etc/patchtrace/patchtrace.toml`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "configuration file (default: patchtrace.toml in . or /etc/patchtrace)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		a.vectorizeCommand(),
		a.colorsCommand(),
		a.previewCommand(),
		a.proofCommand(),
		a.serveCommand(),
	)
	return root
}

// Execute runs the command line tool.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "patchtrace:", err)
		return 1
	}
	return 0
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log.With(zap.String("app", cfg.App.Name))
	return nil
}

// pipeline builds a pipeline for the configured options, modified by the
// command line flags.
func (a *app) pipeline(cmd *cobra.Command, flags *optionFlags) (*patchtrace.Pipeline, error) {
	opts := a.cfg.Vectorize
	if err := flags.apply(cmd, &opts); err != nil {
		return nil, err
	}
	return patchtrace.New(opts,
		patchtrace.WithLogger(a.log),
		patchtrace.WithObserver(metrics.Observer{}))
}

// vectorizeFile runs the pipeline on the named image file, or on standard
// input for "-".
func (a *app) vectorizeFile(cmd *cobra.Command, flags *optionFlags, name string) (*patchtrace.Result, error) {
	p, err := a.pipeline(cmd, flags)
	if err != nil {
		return nil, err
	}
	data, err := readInput(cmd, name)
	if err != nil {
		return nil, err
	}

	var res *patchtrace.Result
	if flags.colors {
		res, err = p.VectorizeColors(data)
	} else {
		res, err = p.Vectorize(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	a.log.Info("vectorized",
		zap.String("input", name),
		zap.Stringer("result", res))
	return res, nil
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

// writeOutput writes data to the named file, or to the command output if
// name is empty or "-".
func writeOutput(cmd *cobra.Command, name string, data []byte) error {
	if name == "" || name == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(name, data, 0o644)
}
