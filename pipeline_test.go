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

package patchtrace

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"seehuhn.de/go/geom/path"

	"seehuhn.de/go/patchtrace/internal/logos"
	"seehuhn.de/go/patchtrace/raster"
	"seehuhn.de/go/patchtrace/trace"
	"seehuhn.de/go/patchtrace/vector"
)

func newPipeline(t *testing.T, opts Options, options ...Option) *Pipeline {
	t.Helper()
	options = append([]Option{WithLogger(zaptest.NewLogger(t))}, options...)
	p, err := New(opts, options...)
	require.NoError(t, err)
	return p
}

func TestTwoToneLogo(t *testing.T) {
	data := logos.PNG(logos.TwoTone(512, 512))
	p := newPipeline(t, DefaultOptions())

	res, err := p.Vectorize(data)
	require.NoError(t, err)
	assert.Equal(t, StrategyPosterized, res.Strategy)
	assert.GreaterOrEqual(t, res.LayerCount, 1)
	assert.LessOrEqual(t, res.LayerCount, 4)
	assert.Nil(t, res.Colors)
	for _, l := range res.Vector.Layers {
		assert.False(t, l.IsEmpty(), l.ID)
	}
	assert.True(t, strings.HasPrefix(res.Document, "<?xml"))
	assert.Equal(t, res.LayerCount, strings.Count(res.Document, "<g "))
}

func TestUniformGrayFallsBack(t *testing.T) {
	data := logos.PNG(raster.NewGray(10, 10, 128))

	obs := &recorder{}
	p := newPipeline(t, DefaultOptions(), WithObserver(obs))
	res, err := p.Vectorize(data)
	require.NoError(t, err)
	assert.Equal(t, StrategySimple, res.Strategy)
	assert.Equal(t, 1, res.LayerCount)
	assert.Nil(t, res.Colors)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []string{"posterized->simple"}, obs.fallbacks)
	assert.Equal(t, []Strategy{StrategySimple}, obs.done)
}

func TestSinglePixel(t *testing.T) {
	data := logos.PNG(raster.NewRGB(1, 1, 200, 10, 10))
	p := newPipeline(t, DefaultOptions())

	res, err := p.Vectorize(data)
	require.NoError(t, err)
	assert.Equal(t, StrategySimple, res.Strategy)
	assert.Equal(t, 1, res.LayerCount)
}

func TestDeterministic(t *testing.T) {
	data := logos.PNG(logos.TwoTone(200, 160))
	p := newPipeline(t, DefaultOptions())

	first, err := p.Vectorize(data)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.Vectorize(data)
			if err == nil {
				results[i] = res
			}
		}()
	}
	wg.Wait()

	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, first.Document, res.Document)
	}
}

func TestDecodeError(t *testing.T) {
	p := newPipeline(t, DefaultOptions())

	_, err := p.Vectorize([]byte("definitely not an image"))
	var de *raster.DecodeError
	assert.ErrorAs(t, err, &de)

	_, err = p.VectorizeColors(nil)
	assert.ErrorAs(t, err, &de)
}

func TestPixelLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxPixels = 20 * 20
	p := newPipeline(t, opts)

	_, err := p.Vectorize(logos.PNG(logos.TwoTone(20, 20)))
	require.NoError(t, err)

	data := logos.PNG(logos.TwoTone(21, 20))
	var de *raster.DecodeError
	_, err = p.Vectorize(data)
	assert.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, raster.ErrTooManyPixels)

	_, err = p.VectorizeColors(data)
	assert.ErrorIs(t, err, raster.ErrTooManyPixels)
}

// stubTracer fails or succeeds on request.
type stubTracer struct {
	posterizeErr error
	posterize    []vector.Layer
	simpleErr    error
}

func (s stubTracer) Posterize(*raster.Image, int, trace.Params) ([]vector.Layer, error) {
	return s.posterize, s.posterizeErr
}

func (s stubTracer) Simple(*raster.Image, trace.Params) (vector.Layer, error) {
	if s.simpleErr != nil {
		return vector.Layer{}, s.simpleErr
	}
	return vector.Layer{Color: "#000000", Path: &path.Data{}}, nil
}

func (s stubTracer) Bitmap(*raster.Bitmap, trace.Params) (*path.Data, error) {
	return nil, errors.New("not implemented")
}

func TestBothStrategiesFail(t *testing.T) {
	errPosterize := &trace.TraceError{Mode: trace.ModePosterized, Err: trace.ErrNoContour}
	errSimple := errors.New("simple broke")
	p := newPipeline(t, DefaultOptions(), WithTracer(stubTracer{
		posterizeErr: errPosterize,
		simpleErr:    errSimple,
	}))

	_, err := p.Vectorize(logos.PNG(logos.TwoTone(32, 32)))
	var ve *VectorizationError
	require.ErrorAs(t, err, &ve)
	assert.ErrorIs(t, err, trace.ErrNoContour)
	assert.ErrorIs(t, err, errSimple)
	assert.Same(t, errPosterize, ve.Posterized)
}

func TestEmptyPosterizedLayersFallBack(t *testing.T) {
	p := newPipeline(t, DefaultOptions(), WithTracer(stubTracer{
		posterize: []vector.Layer{{Color: "#333333", Path: &path.Data{}}},
	}))

	res, err := p.Vectorize(logos.PNG(logos.TwoTone(32, 32)))
	require.NoError(t, err)
	assert.Equal(t, StrategySimple, res.Strategy)
	assert.Equal(t, 1, res.LayerCount)
}

func TestThreeColorRegions(t *testing.T) {
	opts := DefaultOptions()
	opts.ColorCount = 5
	p := newPipeline(t, opts)

	res, err := p.VectorizeColors(logos.PNG(logos.ThreeRegions(90, 60)))
	require.NoError(t, err)
	assert.Equal(t, StrategyComposed, res.Strategy)
	assert.Equal(t, []string{"#ff0000", "#00ff00", "#0000ff"}, res.Colors)
	assert.Equal(t, 3, res.LayerCount)
}

func TestColorFallback(t *testing.T) {
	opts := DefaultOptions()
	opts.MinColorLayers = 2
	p := newPipeline(t, opts)

	res, err := p.VectorizeColors(logos.PNG(raster.NewGray(10, 10, 128)))
	require.NoError(t, err)
	assert.Equal(t, StrategySimple, res.Strategy)
	assert.Equal(t, 1, res.LayerCount)
	assert.Nil(t, res.Colors)

	buf, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(buf), "colors")
	assert.Contains(t, string(buf), `"layerCount":1`)
}

func TestTraceDefault(t *testing.T) {
	p := newPipeline(t, DefaultOptions())

	res, err := p.TraceDefault(logos.TwoTone(64, 64))
	require.NoError(t, err)
	assert.Equal(t, StrategyPosterized, res.Strategy)

	_, err = p.TraceDefault(raster.NewImage(0, 0, 3))
	var de *raster.DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestOptions(t *testing.T) {
	opts := DefaultOptions()
	require.NoError(t, opts.Validate())

	for name, mutate := range map[string]func(*Options){
		"levels":    func(o *Options) { o.Levels = 7 },
		"threshold": func(o *Options) { o.Threshold = 256 },
		"colors":    func(o *Options) { o.ColorCount = 0 },
		"distance":  func(o *Options) { o.ColorDistanceThreshold = 0 },
		"policy":    func(o *Options) { o.TurnPolicy = 9 },
		"bucket":    func(o *Options) { o.BucketSize = 0 },
		"pixels":    func(o *Options) { o.MaxPixels = 0 },
	} {
		o := DefaultOptions()
		mutate(&o)
		err := o.Validate()
		assert.ErrorIs(t, err, ErrInvalidOptions, name)

		_, err = New(o)
		assert.ErrorIs(t, err, ErrInvalidOptions, name)
	}

	var o Options
	require.NoError(t, json.Unmarshal([]byte(`{"levels":3,"turnPolicy":"black"}`), &o))
	assert.Equal(t, 3, o.Levels)
	assert.Equal(t, trace.TurnBlack, o.TurnPolicy)
}

type recorder struct {
	mu        sync.Mutex
	fallbacks []string
	done      []Strategy
}

func (r *recorder) Fallback(from, to Strategy, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, string(from)+"->"+string(to))
}

func (r *recorder) Done(strategy Strategy, _ int, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = append(r.done, strategy)
}
