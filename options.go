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
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"seehuhn.de/go/patchtrace/quantize"
	"seehuhn.de/go/patchtrace/trace"
)

// ErrInvalidOptions is wrapped by all option validation errors.
var ErrInvalidOptions = errors.New("invalid options")

var validate = validator.New()

// DefaultMaxPixels is the default pixel limit for decoded images.
const DefaultMaxPixels = 25_000_000

// Options configures a Pipeline. The zero value is not valid; start from
// DefaultOptions.
type Options struct {
	// Levels is the number of gray levels for posterized tracing.
	Levels int `json:"levels" mapstructure:"levels" validate:"min=2,max=6"`

	// Threshold is the luminance threshold of the simple fallback trace.
	Threshold int `json:"threshold" mapstructure:"threshold" validate:"min=0,max=255"`

	TurnPolicy trace.TurnPolicy `json:"turnPolicy" mapstructure:"turn_policy" validate:"gte=0,lte=6"`

	// MinFeatureSize is the area, in pixels, below which regions are
	// suppressed.
	MinFeatureSize int `json:"minFeatureSize" mapstructure:"min_feature_size" validate:"min=0"`

	CurveOptimization     bool    `json:"curveOptimization" mapstructure:"curve_optimization"`
	OptimizationTolerance float64 `json:"optimizationTolerance" mapstructure:"optimization_tolerance" validate:"gte=0,lte=10"`

	// AlphaMax is the corner threshold; 0 traces polygons.
	AlphaMax float64 `json:"alphaMax" mapstructure:"alpha_max" validate:"gte=0,lte=1.3334"`

	// ColorCount is the number of dominant colors used by VectorizeColors.
	ColorCount int `json:"colorCount" mapstructure:"color_count" validate:"min=1,max=16"`

	// ColorDistanceThreshold is the RGB distance which selects the pixels
	// of a color layer.
	ColorDistanceThreshold float64 `json:"colorDistanceThreshold" mapstructure:"color_distance_threshold" validate:"gt=0,lte=442"`

	// MaxDimension bounds the longer image side before tracing.
	MaxDimension int `json:"maxDimension" mapstructure:"max_dimension" validate:"min=16,max=8192"`

	// MaxPixels bounds the pixel count of decoded images. Larger images
	// are rejected before their pixel data is decoded.
	MaxPixels int `json:"maxPixels" mapstructure:"max_pixels" validate:"min=1"`

	// BucketSize is the channel granularity of color quantization.
	BucketSize int `json:"bucketSize" mapstructure:"bucket_size" validate:"min=1,max=256"`

	// MinColorLayers is the number of color layers a multi-color result
	// must have; with fewer layers the default trace is used instead.
	MinColorLayers int `json:"minColorLayers" mapstructure:"min_color_layers" validate:"min=1"`
}

// DefaultOptions returns the standard settings.
func DefaultOptions() Options {
	tp := trace.DefaultParams()
	return Options{
		Levels:                 4,
		Threshold:              tp.Threshold,
		TurnPolicy:             tp.TurnPolicy,
		MinFeatureSize:         tp.MinFeatureSize,
		CurveOptimization:      tp.CurveOptimization,
		OptimizationTolerance:  tp.OptimizationTolerance,
		AlphaMax:               tp.AlphaMax,
		ColorCount:             4,
		ColorDistanceThreshold: 40,
		MaxDimension:           1024,
		MaxPixels:              DefaultMaxPixels,
		BucketSize:             quantize.DefaultBucketSize,
		MinColorLayers:         1,
	}
}

// Validate checks all fields. The returned error wraps ErrInvalidOptions.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on %q (value %v)",
				ErrInvalidOptions, fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

// TraceParams returns the tracing parameters selected by o.
func (o *Options) TraceParams() trace.Params {
	return trace.Params{
		Threshold:             o.Threshold,
		TurnPolicy:            o.TurnPolicy,
		MinFeatureSize:        o.MinFeatureSize,
		CurveOptimization:     o.CurveOptimization,
		OptimizationTolerance: o.OptimizationTolerance,
		AlphaMax:              o.AlphaMax,
	}
}
