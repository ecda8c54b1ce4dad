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

// Package compose builds multi-color vector documents: one traced layer per
// dominant color of an image.
package compose

import (
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"seehuhn.de/go/patchtrace/quantize"
	"seehuhn.de/go/patchtrace/raster"
	"seehuhn.de/go/patchtrace/trace"
	"seehuhn.de/go/patchtrace/vector"
)

// DefaultDistanceThreshold is the default maximal RGB distance between a
// pixel and a dominant color.
const DefaultDistanceThreshold = 40

// ErrNoLayers is returned when no color produced a layer and no fallback is
// configured.
var ErrNoLayers = errors.New("no color layer could be traced")

// Composer traces one layer per dominant color.
//
// A Composer holds no mutable state and can be used concurrently, provided
// the Tracer can.
type Composer struct {
	Tracer trace.Tracer
	Params trace.Params

	// DistanceThreshold selects the pixels of a color layer: pixels whose
	// Euclidean RGB distance to the color is strictly smaller are included.
	DistanceThreshold float64

	// MinLayers is the number of layers a composition must have. If fewer
	// layers are retained, Fallback is used instead. Values below 1 are
	// treated as 1.
	MinLayers int

	// Fallback produces the document used when the color layers are
	// insufficient.
	Fallback func(img *raster.Image) (*vector.Document, error)

	Logger *zap.Logger
}

// Composition is the result of Compose.
type Composition struct {
	Document *vector.Document

	// Colors lists the hex colors of the layers. It is nil if the
	// fallback was used.
	Colors []string

	// Fallback is set if the document was produced by Composer.Fallback.
	Fallback bool
}

// Compose traces one layer per color and stacks the layers in the order of
// colors. Colors whose mask is empty, or whose tracing fails, contribute no
// layer.
func (c *Composer) Compose(colors []quantize.DominantColor, img *raster.Image) (*Composition, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return nil, raster.ErrEmptyImage
	}
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}
	tracer := c.Tracer
	if tracer == nil {
		tracer = trace.Outliner{}
	}
	threshold := c.DistanceThreshold
	if threshold <= 0 {
		threshold = DefaultDistanceThreshold
	}

	traced := make([]*vector.Layer, len(colors))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, col := range colors {
		g.Go(func() error {
			mask := Mask(img, col.Centroid(), threshold)
			if mask.IsEmpty() {
				log.Debug("color layer has no pixels", zap.String("color", col.Hex))
				return nil
			}
			pd, err := tracer.Bitmap(mask, c.Params)
			if err != nil {
				log.Warn("dropping color layer", zap.String("color", col.Hex), zap.Error(err))
				return nil
			}
			if len(pd.Cmds) == 0 {
				log.Debug("color layer has no contours", zap.String("color", col.Hex))
				return nil
			}
			traced[i] = &vector.Layer{Color: col.Hex, Index: i, Path: pd}
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	var layers []vector.Layer
	var hexes []string
	for _, l := range traced {
		if l != nil {
			layers = append(layers, *l)
			hexes = append(hexes, l.Color)
		}
	}

	if len(layers) < max(c.MinLayers, 1) {
		log.Info("too few color layers, using fallback",
			zap.Int("retained", len(layers)),
			zap.Int("colors", len(colors)))
		if c.Fallback == nil {
			return nil, ErrNoLayers
		}
		doc, err := c.Fallback(img)
		if err != nil {
			return nil, fmt.Errorf("compose fallback: %w", err)
		}
		return &Composition{Document: doc, Fallback: true}, nil
	}

	return &Composition{
		Document: vector.NewDocument(img.Width, img.Height, layers),
		Colors:   hexes,
	}, nil
}

// Mask returns the pixels of img whose Euclidean RGB distance to color is
// strictly less than threshold.
func Mask(img *raster.Image, color [3]uint8, threshold float64) *raster.Bitmap {
	bm := raster.NewBitmap(img.Width, img.Height)
	t2 := threshold * threshold
	for y := range img.Height {
		for x := range img.Width {
			r, g, b := img.RGB(x, y)
			dr := float64(int(r) - int(color[0]))
			dg := float64(int(g) - int(color[1]))
			db := float64(int(b) - int(color[2]))
			bm.Bits[y*img.Width+x] = dr*dr+dg*dg+db*db < t2
		}
	}
	return bm
}
