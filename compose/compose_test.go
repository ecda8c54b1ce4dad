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

package compose

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"seehuhn.de/go/geom/path"

	"seehuhn.de/go/patchtrace/internal/logos"
	"seehuhn.de/go/patchtrace/quantize"
	"seehuhn.de/go/patchtrace/raster"
	"seehuhn.de/go/patchtrace/trace"
	"seehuhn.de/go/patchtrace/vector"
)

func newComposer(t *testing.T) *Composer {
	return &Composer{
		Tracer:            trace.Outliner{},
		Params:            trace.DefaultParams(),
		DistanceThreshold: DefaultDistanceThreshold,
		Logger:            zaptest.NewLogger(t),
	}
}

func TestThreeRegions(t *testing.T) {
	img := logos.ThreeRegions(60, 40)
	colors := quantize.ExtractDominantColors(img, 5, quantize.DefaultBucketSize)
	require.Len(t, colors, 3)

	comp, err := newComposer(t).Compose(colors, img)
	require.NoError(t, err)
	assert.False(t, comp.Fallback)
	assert.Equal(t, []string{"#ff0000", "#00ff00", "#0000ff"}, comp.Colors)

	doc := comp.Document
	require.Len(t, doc.Layers, 3)
	for i, l := range doc.Layers {
		assert.Equal(t, vector.LayerID(i), l.ID)
		assert.Equal(t, comp.Colors[i], l.Color)
		assert.Equal(t, 1, l.Subpaths())
	}
	assert.Contains(t, doc.SVG(), `data-color="#00ff00"`)
}

func TestMaskIsStrict(t *testing.T) {
	img := raster.NewRGB(3, 1, 100, 100, 100)
	img.Set(1, 0, 139, 100, 100) // distance 39
	img.Set(2, 0, 140, 100, 100) // distance 40

	bm := Mask(img, [3]uint8{100, 100, 100}, 40)
	assert.Equal(t, []bool{true, true, false}, bm.Bits)

	// every selected pixel is within the threshold, every other one is not
	noise := logos.Noise(20, 20, 11)
	center := [3]uint8{128, 64, 200}
	bm = Mask(noise, center, 90)
	for y := range noise.Height {
		for x := range noise.Width {
			r, g, b := noise.RGB(x, y)
			dr, dg, db := int(r)-128, int(g)-64, int(b)-200
			within := dr*dr+dg*dg+db*db < 90*90
			assert.Equal(t, within, bm.Get(x, y))
		}
	}
}

func TestFallback(t *testing.T) {
	img := raster.NewRGB(10, 10, 255, 255, 255)
	colors := []quantize.DominantColor{{Hex: "#000000", Count: 1}}

	fallbackDoc := vector.NewDocument(10, 10, []vector.Layer{{Color: "#000000", Path: &path.Data{}}})
	var calls atomic.Int32
	c := newComposer(t)
	c.Fallback = func(*raster.Image) (*vector.Document, error) {
		calls.Add(1)
		return fallbackDoc, nil
	}

	comp, err := c.Compose(colors, img)
	require.NoError(t, err)
	assert.True(t, comp.Fallback)
	assert.Nil(t, comp.Colors)
	assert.Same(t, fallbackDoc, comp.Document)
	assert.Equal(t, int32(1), calls.Load())

	c.Fallback = nil
	_, err = c.Compose(colors, img)
	assert.ErrorIs(t, err, ErrNoLayers)
}

func TestMinLayers(t *testing.T) {
	img := logos.ThreeRegions(60, 40)
	colors := quantize.ExtractDominantColors(img, 5, quantize.DefaultBucketSize)

	c := newComposer(t)
	c.MinLayers = 4
	c.Fallback = func(img *raster.Image) (*vector.Document, error) {
		return vector.NewDocument(img.Width, img.Height, nil), nil
	}
	comp, err := c.Compose(colors, img)
	require.NoError(t, err)
	assert.True(t, comp.Fallback)
}

// flakyTracer fails for masks with more than limit pixels.
type flakyTracer struct {
	trace.Outliner
	limit int
}

func (f flakyTracer) Bitmap(bm *raster.Bitmap, p trace.Params) (*path.Data, error) {
	if bm.Count() > f.limit {
		return nil, &trace.TraceError{Mode: trace.ModeBitmap, Err: errors.New("too large")}
	}
	return f.Outliner.Bitmap(bm, p)
}

func TestTraceErrorsDropLayer(t *testing.T) {
	img := logos.ThreeRegions(60, 40)
	colors := quantize.ExtractDominantColors(img, 5, quantize.DefaultBucketSize)

	c := newComposer(t)
	c.Tracer = flakyTracer{limit: 1000}
	comp, err := c.Compose(colors, img)
	require.NoError(t, err)
	assert.Equal(t, []string{"#00ff00", "#0000ff"}, comp.Colors)
	assert.Equal(t, 1, comp.Document.Layers[0].Index, "index keeps the color rank")
}

func TestDeterministic(t *testing.T) {
	img := logos.Noise(48, 48, 5)
	colors := quantize.ExtractDominantColors(img, 6, quantize.DefaultBucketSize)

	c := newComposer(t)
	c.Fallback = func(img *raster.Image) (*vector.Document, error) {
		return vector.NewDocument(img.Width, img.Height, nil), nil
	}
	first, err := c.Compose(colors, img)
	require.NoError(t, err)
	for range 5 {
		again, err := c.Compose(colors, img)
		require.NoError(t, err)
		assert.Equal(t, first.Document.SVG(), again.Document.SVG())
	}
}
