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

// Package trace converts binary masks and grayscale images into closed
// vector outlines.
//
// A mask is first decomposed into pixel boundaries, which are then
// straightened into polygons. The polygons are smoothed into Bézier curves
// with sharp corners where the polygon turns abruptly, and finally runs of
// curves are joined into longer curves where this is possible within a
// given tolerance.
package trace

import (
	"errors"
	"fmt"

	"seehuhn.de/go/geom/path"

	"seehuhn.de/go/patchtrace/quantize"
	"seehuhn.de/go/patchtrace/raster"
	"seehuhn.de/go/patchtrace/vector"
)

// Tracer is the interface of the tracing engine used by the vectorization
// pipeline. Implementations must be safe for concurrent use.
type Tracer interface {
	// Posterize reduces img to the given number of gray levels and traces
	// one layer per level, lightest first. If no level yields a usable
	// contour, a *TraceError is returned.
	Posterize(img *raster.Image, levels int, p Params) ([]vector.Layer, error)

	// Simple traces the pixels darker than p.Threshold as a single layer.
	Simple(img *raster.Image, p Params) (vector.Layer, error)

	// Bitmap traces the set pixels of a mask.
	Bitmap(bm *raster.Bitmap, p Params) (*path.Data, error)
}

// Range of supported posterization levels.
const (
	MinLevels = 2
	MaxLevels = 6
)

// Outliner is the standard Tracer. The zero value is ready to use.
type Outliner struct{}

var _ Tracer = Outliner{}

// Bitmap implements the Tracer interface. A mask without set pixels gives an
// empty path.
func (Outliner) Bitmap(bm *raster.Bitmap, p Params) (*path.Data, error) {
	if err := p.Validate(); err != nil {
		return nil, &TraceError{Mode: ModeBitmap, Err: err}
	}
	if bm == nil || bm.Width <= 0 || bm.Height <= 0 {
		return nil, &TraceError{Mode: ModeBitmap, Err: errors.New("empty mask")}
	}
	return traceMask(bm, p), nil
}

func traceMask(bm *raster.Bitmap, p Params) *path.Data {
	b := vector.NewBuilder()
	for _, o := range decompose(bm, p.TurnPolicy, p.MinFeatureSize) {
		poly := polygon(&o, bm.Height)
		segs := smooth(poly, p.AlphaMax)
		if p.CurveOptimization {
			segs = optimize(segs, p.OptimizationTolerance)
		}
		emit(b, segs)
	}
	return b.Path()
}

// Simple implements the Tracer interface. The result always consists of
// exactly one black layer, which is empty if no pixel is darker than the
// threshold.
func (Outliner) Simple(img *raster.Image, p Params) (vector.Layer, error) {
	if err := p.Validate(); err != nil {
		return vector.Layer{}, &TraceError{Mode: ModeSimple, Err: err}
	}
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return vector.Layer{}, &TraceError{Mode: ModeSimple, Err: raster.ErrEmptyImage}
	}

	mask := raster.Threshold(img, p.Threshold)
	return vector.Layer{
		Color: "#000000",
		Path:  traceMask(mask, p),
	}, nil
}

// Posterize implements the Tracer interface.
//
// Level k of n covers all pixels darker than 256*k/(n+1). Levels which are
// empty, which cover the whole image, or which cover the same pixels as the
// next darker level are skipped, as are levels where all regions are
// smaller than p.MinFeatureSize. Each layer is filled with the mean gray
// value of the pixels it adds to the next darker level.
func (Outliner) Posterize(img *raster.Image, levels int, p Params) ([]vector.Layer, error) {
	if err := p.Validate(); err != nil {
		return nil, &TraceError{Mode: ModePosterized, Err: err}
	}
	if levels < MinLevels || levels > MaxLevels {
		return nil, &TraceError{
			Mode: ModePosterized,
			Err:  fmt.Errorf("levels %d out of range [%d, %d]", levels, MinLevels, MaxLevels),
		}
	}
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return nil, &TraceError{Mode: ModePosterized, Err: raster.ErrEmptyImage}
	}

	gray := img
	if !img.IsGray() {
		gray = img.Gray()
	}

	// masks[k] holds the pixels darker than the k-th threshold; masks[0]
	// is empty.
	masks := make([]*raster.Bitmap, levels+1)
	masks[0] = raster.NewBitmap(gray.Width, gray.Height)
	for k := 1; k <= levels; k++ {
		masks[k] = raster.Threshold(gray, LevelThreshold(k, levels))
	}

	var layers []vector.Layer
	for k := levels; k >= 1; k-- {
		m := masks[k]
		if m.IsEmpty() || m.IsFull() || m.Equal(masks[k-1]) {
			continue
		}
		pd := traceMask(m, p)
		if len(pd.Cmds) == 0 {
			continue
		}
		tone := bandMean(gray, m, masks[k-1])
		layers = append(layers, vector.Layer{
			Color: quantize.Hex(tone, tone, tone),
			Index: k,
			Path:  pd,
		})
	}
	if len(layers) == 0 {
		return nil, &TraceError{Mode: ModePosterized, Err: ErrNoContour}
	}
	return layers, nil
}

// LevelThreshold returns the luminance threshold of level k out of n.
func LevelThreshold(k, n int) int {
	return 256 * k / (n + 1)
}

// bandMean returns the mean luminance of the pixels in m but not in inner.
func bandMean(gray *raster.Image, m, inner *raster.Bitmap) uint8 {
	sum, n := 0, 0
	for i, set := range m.Bits {
		if set && !inner.Bits[i] {
			sum += int(gray.Pix[i])
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return uint8((sum + n/2) / n)
}
