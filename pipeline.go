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

// Package patchtrace converts raster logos into layered SVG documents for
// embroidery digitizing.
//
// A Pipeline first tries a posterized trace, which gives one layer per gray
// level. If this yields nothing usable, a simple black and white trace is
// used instead. Only if both fail is an error returned. The multi-color
// variant traces one layer per dominant color of the image, and uses the
// same two strategies when the colors do not give enough layers.
package patchtrace

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"seehuhn.de/go/patchtrace/compose"
	"seehuhn.de/go/patchtrace/quantize"
	"seehuhn.de/go/patchtrace/raster"
	"seehuhn.de/go/patchtrace/trace"
	"seehuhn.de/go/patchtrace/vector"
)

// Strategy names the method which produced a result.
type Strategy string

const (
	StrategyPosterized Strategy = "posterized"
	StrategySimple     Strategy = "simple"
	StrategyComposed   Strategy = "composed"
)

// Result is the outcome of a successful vectorization.
type Result struct {
	// Document is the SVG markup.
	Document string `json:"document"`

	// LayerCount is the number of layers in Document.
	LayerCount int `json:"layerCount"`

	// Colors lists the layer colors of a multi-color composition. It is
	// nil for all other results.
	Colors []string `json:"colors,omitempty"`

	Strategy Strategy `json:"strategy"`

	Vector *vector.Document `json:"-"`
}

// Observer is notified about pipeline runs.
type Observer interface {
	// Fallback is called when a strategy failed and the next one is tried.
	Fallback(from, to Strategy, reason error)

	// Done is called once per run. On failure, strategy is empty.
	Done(strategy Strategy, layers int, elapsed time.Duration, err error)
}

// Pipeline vectorizes images. A Pipeline is safe for concurrent use.
type Pipeline struct {
	opts   Options
	params trace.Params
	tracer trace.Tracer
	log    *zap.Logger
	obs    Observer
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithTracer replaces the tracing engine.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithObserver registers an observer for pipeline outcomes.
func WithObserver(obs Observer) Option {
	return func(p *Pipeline) { p.obs = obs }
}

// New returns a pipeline for the given options.
func New(opts Options, options ...Option) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		opts:   opts,
		params: opts.TraceParams(),
		tracer: trace.Outliner{},
		log:    zap.NewNop(),
	}
	for _, opt := range options {
		opt(p)
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	return p, nil
}

// Options returns the options of the pipeline.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Vectorize decodes an image and traces it into a layered document.
//
// Decoding errors are returned as *raster.DecodeError. If both tracing
// strategies fail, a *VectorizationError is returned.
func (p *Pipeline) Vectorize(data []byte) (*Result, error) {
	start := time.Now()
	img, err := raster.DecodeLimit(data, p.opts.MaxPixels)
	if err != nil {
		p.finish(start, nil, err)
		return nil, err
	}
	res, err := p.run(img)
	p.finish(start, res, err)
	return res, err
}

// TraceDefault traces an already decoded image, using the posterized trace
// with the simple trace as fallback.
func (p *Pipeline) TraceDefault(img *raster.Image) (*Result, error) {
	start := time.Now()
	res, err := p.run(img)
	p.finish(start, res, err)
	return res, err
}

// VectorizeColors decodes an image and traces one layer per dominant color.
// If fewer than MinColorLayers colors give a layer, the result of the
// default trace is returned instead, with Colors set to nil.
func (p *Pipeline) VectorizeColors(data []byte) (*Result, error) {
	start := time.Now()
	res, err := p.vectorizeColors(data)
	p.finish(start, res, err)
	return res, err
}

func (p *Pipeline) vectorizeColors(data []byte) (*Result, error) {
	img, err := raster.DecodeLimit(data, p.opts.MaxPixels)
	if err != nil {
		return nil, err
	}
	prepared, err := raster.Prepare(img, p.opts.MaxDimension, raster.ModeColor)
	if err != nil {
		return nil, err
	}

	colors := quantize.ExtractDominantColors(prepared, p.opts.ColorCount, p.opts.BucketSize)
	p.log.Debug("dominant colors",
		zap.Strings("colors", quantize.Hexes(colors)),
		zap.Stringer("image", prepared))

	var fallback *Result
	c := &compose.Composer{
		Tracer:            p.tracer,
		Params:            p.params,
		DistanceThreshold: p.opts.ColorDistanceThreshold,
		MinLayers:         p.opts.MinColorLayers,
		Logger:            p.log,
		Fallback: func(img *raster.Image) (*vector.Document, error) {
			p.notifyFallback(StrategyComposed, StrategyPosterized, errors.New("too few color layers"))
			res, err := p.runPrepared(img.Gray())
			if err != nil {
				return nil, err
			}
			fallback = res
			return res.Vector, nil
		},
	}
	comp, err := c.Compose(colors, prepared)
	if err != nil {
		var verr *VectorizationError
		if errors.As(err, &verr) {
			return nil, verr
		}
		return nil, err
	}
	if comp.Fallback {
		return fallback, nil
	}
	return newResult(comp.Document, StrategyComposed, comp.Colors), nil
}

// state is a step of the default trace.
type state int

const (
	stateStart state = iota
	statePreprocessed
	stateTracedPosterized
	stateTracedSimple
	stateComposed
	statePreprocessFailed
	stateFailed
)

var stateNames = [...]string{
	stateStart:            "start",
	statePreprocessed:     "preprocessed",
	stateTracedPosterized: "traced-posterized",
	stateTracedSimple:     "traced-simple",
	stateComposed:         "composed",
	statePreprocessFailed: "preprocess-failed",
	stateFailed:           "failed",
}

func (s state) String() string {
	return stateNames[s]
}

// outcomeKind tags the variants of outcome.
type outcomeKind int

const (
	outcomePosterized outcomeKind = iota
	outcomeSimple
	outcomeFailed
)

// outcome is the result of one tracing stage.
type outcome struct {
	kind   outcomeKind
	layers []vector.Layer
	reason error // for outcomeFailed
}

func (p *Pipeline) run(img *raster.Image) (*Result, error) {
	prepared, err := raster.Prepare(img, p.opts.MaxDimension, raster.ModeGray)
	if err != nil {
		p.log.Debug("pipeline transition",
			zap.Stringer("from", stateStart),
			zap.Stringer("to", statePreprocessFailed),
			zap.Error(err))
		return nil, err
	}
	p.log.Debug("pipeline transition",
		zap.Stringer("from", stateStart),
		zap.Stringer("to", statePreprocessed),
		zap.Stringer("image", prepared))
	return p.runPrepared(prepared)
}

// runPrepared executes the default trace on a preprocessed grayscale image.
func (p *Pipeline) runPrepared(img *raster.Image) (*Result, error) {
	st := statePreprocessed
	var posterizedErr error
	var out outcome
	for {
		var next state
		switch st {
		case statePreprocessed:
			out = p.posterize(img)
			if out.kind != outcomeFailed {
				next = stateTracedPosterized
				break
			}
			posterizedErr = out.reason
			p.log.Warn("posterized trace failed, falling back to simple trace", zap.Error(out.reason))
			p.notifyFallback(StrategyPosterized, StrategySimple, out.reason)
			out = p.simple(img)
			if out.kind == outcomeFailed {
				next = stateFailed
			} else {
				next = stateTracedSimple
			}

		case stateTracedPosterized, stateTracedSimple:
			next = stateComposed

		case stateComposed:
			doc := vector.NewDocument(img.Width, img.Height, out.layers)
			strategy := StrategyPosterized
			if out.kind == outcomeSimple {
				strategy = StrategySimple
			}
			return newResult(doc, strategy, nil), nil

		case stateFailed:
			return nil, &VectorizationError{Posterized: posterizedErr, Simple: out.reason}
		}
		p.log.Debug("pipeline transition", zap.Stringer("from", st), zap.Stringer("to", next))
		st = next
	}
}

func (p *Pipeline) posterize(img *raster.Image) outcome {
	layers, err := p.tracer.Posterize(img, p.opts.Levels, p.params)
	if err != nil {
		return outcome{kind: outcomeFailed, reason: err}
	}
	var usable []vector.Layer
	for _, l := range layers {
		if !l.IsEmpty() {
			usable = append(usable, l)
		}
	}
	if len(usable) == 0 {
		return outcome{
			kind:   outcomeFailed,
			reason: &trace.TraceError{Mode: trace.ModePosterized, Err: trace.ErrNoContour},
		}
	}
	return outcome{kind: outcomePosterized, layers: usable}
}

func (p *Pipeline) simple(img *raster.Image) outcome {
	layer, err := p.tracer.Simple(img, p.params)
	if err != nil {
		return outcome{kind: outcomeFailed, reason: err}
	}
	return outcome{kind: outcomeSimple, layers: []vector.Layer{layer}}
}

func newResult(doc *vector.Document, strategy Strategy, colors []string) *Result {
	return &Result{
		Document:   doc.SVG(),
		LayerCount: len(doc.Layers),
		Colors:     colors,
		Strategy:   strategy,
		Vector:     doc,
	}
}

func (p *Pipeline) notifyFallback(from, to Strategy, reason error) {
	if p.obs != nil {
		p.obs.Fallback(from, to, reason)
	}
}

func (p *Pipeline) finish(start time.Time, res *Result, err error) {
	elapsed := time.Since(start)
	if err != nil {
		p.log.Info("vectorization failed", zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		p.log.Debug("vectorization done",
			zap.String("strategy", string(res.Strategy)),
			zap.Int("layers", res.LayerCount),
			zap.Duration("elapsed", elapsed))
	}
	if p.obs == nil {
		return
	}
	if err != nil {
		p.obs.Done("", 0, elapsed, err)
		return
	}
	p.obs.Done(res.Strategy, res.LayerCount, elapsed, nil)
}

// String implements fmt.Stringer for log output.
func (r *Result) String() string {
	return fmt.Sprintf("%s result with %d layers", r.Strategy, r.LayerCount)
}
