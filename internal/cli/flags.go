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
	"fmt"

	"github.com/spf13/cobra"

	"seehuhn.de/go/patchtrace"
	"seehuhn.de/go/patchtrace/trace"
)

// optionFlags are the tracing flags shared by all commands which vectorize
// an image. Flags override the configuration only when given explicitly.
type optionFlags struct {
	colors bool

	levels         int
	threshold      int
	turnPolicy     string
	minFeatureSize int
	noCurves       bool
	tolerance      float64
	alphaMax       float64
	colorCount     int
	colorDistance  float64
	maxDimension   int
	maxPixels      int
}

func (f *optionFlags) register(cmd *cobra.Command) {
	d := patchtrace.DefaultOptions()
	fs := cmd.Flags()
	fs.BoolVar(&f.colors, "colors", false, "trace one layer per dominant color")
	fs.IntVar(&f.levels, "levels", d.Levels, "number of gray levels for the posterized trace (2-6)")
	fs.IntVar(&f.threshold, "threshold", d.Threshold, "luminance threshold of the simple trace")
	fs.StringVar(&f.turnPolicy, "turn-policy", d.TurnPolicy.String(), "how ambiguous pixel corners are resolved")
	fs.IntVar(&f.minFeatureSize, "min-feature-size", d.MinFeatureSize, "suppress regions smaller than this many pixels")
	fs.BoolVar(&f.noCurves, "no-curve-optimization", false, "do not join adjacent curve segments")
	fs.Float64Var(&f.tolerance, "tolerance", d.OptimizationTolerance, "curve optimization tolerance in pixels")
	fs.Float64Var(&f.alphaMax, "alpha-max", d.AlphaMax, "corner threshold; 0 gives polygons")
	fs.IntVar(&f.colorCount, "color-count", d.ColorCount, "number of dominant colors")
	fs.Float64Var(&f.colorDistance, "color-distance", d.ColorDistanceThreshold, "RGB distance selecting the pixels of a color layer")
	fs.IntVar(&f.maxDimension, "max-dimension", d.MaxDimension, "downscale images whose longer side exceeds this")
	fs.IntVar(&f.maxPixels, "max-pixels", d.MaxPixels, "reject images with more pixels than this")
}

func (f *optionFlags) apply(cmd *cobra.Command, o *patchtrace.Options) error {
	fs := cmd.Flags()
	if fs.Changed("levels") {
		o.Levels = f.levels
	}
	if fs.Changed("threshold") {
		o.Threshold = f.threshold
	}
	if fs.Changed("turn-policy") {
		tp, err := trace.ParseTurnPolicy(f.turnPolicy)
		if err != nil {
			return fmt.Errorf("--turn-policy: %w", err)
		}
		o.TurnPolicy = tp
	}
	if fs.Changed("min-feature-size") {
		o.MinFeatureSize = f.minFeatureSize
	}
	if f.noCurves {
		o.CurveOptimization = false
	}
	if fs.Changed("tolerance") {
		o.OptimizationTolerance = f.tolerance
	}
	if fs.Changed("alpha-max") {
		o.AlphaMax = f.alphaMax
	}
	if fs.Changed("color-count") {
		o.ColorCount = f.colorCount
	}
	if fs.Changed("color-distance") {
		o.ColorDistanceThreshold = f.colorDistance
	}
	if fs.Changed("max-dimension") {
		o.MaxDimension = f.maxDimension
	}
	if fs.Changed("max-pixels") {
		o.MaxPixels = f.maxPixels
	}
	return nil
}
