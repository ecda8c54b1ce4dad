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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"seehuhn.de/go/patchtrace/internal/server"
	"seehuhn.de/go/patchtrace/internal/storage"
	"seehuhn.de/go/patchtrace/preview"
	"seehuhn.de/go/patchtrace/proof"
	"seehuhn.de/go/patchtrace/quantize"
	"seehuhn.de/go/patchtrace/raster"
)

func (a *app) vectorizeCommand() *cobra.Command {
	var (
		flags  optionFlags
		output string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "vectorize [flags] IMAGE",
		Short: "Trace an image into a layered SVG document",
		Long: `Trace a PNG, JPEG, GIF, BMP, TIFF or WebP image into SVG.

By default the image is posterized into gray levels, with a black and white
trace as fallback. With --colors, one layer is traced per dominant color.
Use "-" to read the image from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.vectorizeFile(cmd, &flags, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return err
				}
				return writeOutput(cmd, output, append(data, '\n'))
			}
			return writeOutput(cmd, output, []byte(res.Document))
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: standard output)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func (a *app) colorsCommand() *cobra.Command {
	var (
		count      int
		bucketSize int
	)
	cmd := &cobra.Command{
		Use:   "colors [flags] IMAGE",
		Short: "List the dominant colors of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			img, err := raster.DecodeLimit(data, a.cfg.Vectorize.MaxPixels)
			if err != nil {
				return err
			}
			img, err = raster.Prepare(img, a.cfg.Vectorize.MaxDimension, raster.ModeColor)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("count") {
				count = a.cfg.Vectorize.ColorCount
			}
			if !cmd.Flags().Changed("bucket-size") {
				bucketSize = a.cfg.Vectorize.BucketSize
			}

			total := img.Width * img.Height
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLOR\tMEAN\tPIXELS\tSHARE")
			for _, c := range quantize.ExtractDominantColors(img, count, bucketSize) {
				m := c.Centroid()
				fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f%%\n",
					c.Hex, quantize.Hex(m[0], m[1], m[2]), c.Count,
					100*float64(c.Count)/float64(total))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 4, "number of colors")
	cmd.Flags().IntVar(&bucketSize, "bucket-size", quantize.DefaultBucketSize, "channel quantization step")
	return cmd
}

func (a *app) previewCommand() *cobra.Command {
	var (
		flags  optionFlags
		output string
		shape  string
		size   int
		fabric string
		border string
	)
	cmd := &cobra.Command{
		Use:   "preview [flags] IMAGE",
		Short: "Render a PNG mock-up of the finished patch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := preview.DefaultOptions()
			var err error
			if opts.Shape, err = preview.ParseShape(shape); err != nil {
				return err
			}
			opts.Size = size
			if fabric != "" {
				if opts.Fabric, err = preview.ParseHex(fabric); err != nil {
					return fmt.Errorf("--fabric: %w", err)
				}
			}
			if border != "" {
				if opts.Border, err = preview.ParseHex(border); err != nil {
					return fmt.Errorf("--border: %w", err)
				}
			}

			res, err := a.vectorizeFile(cmd, &flags, args[0])
			if err != nil {
				return err
			}
			buf := &bytes.Buffer{}
			if err := preview.WritePNG(buf, res.Vector, opts); err != nil {
				return err
			}
			return writeOutput(cmd, output, buf.Bytes())
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PNG file")
	cmd.Flags().StringVar(&shape, "shape", "round", "patch shape: round or rectangle")
	cmd.Flags().IntVar(&size, "size", preview.DefaultOptions().Size, "preview width in pixels")
	cmd.Flags().StringVar(&fabric, "fabric", "", "fabric color as #rrggbb")
	cmd.Flags().StringVar(&border, "border", "", "border color as #rrggbb")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func (a *app) proofCommand() *cobra.Command {
	var (
		flags  optionFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "proof [flags] IMAGE",
		Short: "Write a one page PDF proof with the artwork and its thread colors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.vectorizeFile(cmd, &flags, args[0])
			if err != nil {
				return err
			}
			if err := proof.WriteFile(output, res.Vector); err != nil {
				return err
			}
			a.log.Info("proof written", zap.String("file", output))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF file")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func (a *app) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.HTTP.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := storage.New(ctx, &a.cfg.Storage, a.cfg.HTTP.MaxBodySize, a.log)
			if err != nil {
				return err
			}
			srv := server.New(a.cfg, store, a.log)
			err = srv.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}
