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

package trace

import (
	"errors"
	"fmt"
	"strings"
)

// TurnPolicy decides which way a boundary turns at an ambiguous pixel
// corner, where two set pixels touch only diagonally.
type TurnPolicy int

const (
	// TurnMinority connects the color which is rarer in the neighborhood.
	TurnMinority TurnPolicy = iota
	// TurnMajority connects the color which is more common in the
	// neighborhood.
	TurnMajority
	// TurnBlack always connects set pixels.
	TurnBlack
	// TurnWhite always connects unset pixels.
	TurnWhite
	// TurnLeft always turns left.
	TurnLeft
	// TurnRight always turns right.
	TurnRight
	// TurnRandom chooses by a hash of the corner position. The choice is
	// deterministic.
	TurnRandom
)

var turnPolicyNames = [...]string{
	TurnMinority: "minority",
	TurnMajority: "majority",
	TurnBlack:    "black",
	TurnWhite:    "white",
	TurnLeft:     "left",
	TurnRight:    "right",
	TurnRandom:   "random",
}

func (tp TurnPolicy) String() string {
	if tp >= 0 && int(tp) < len(turnPolicyNames) {
		return turnPolicyNames[tp]
	}
	return fmt.Sprintf("TurnPolicy(%d)", int(tp))
}

// ParseTurnPolicy converts a policy name (case insensitive) to a
// TurnPolicy. The empty string selects TurnMinority.
func ParseTurnPolicy(s string) (TurnPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TurnMinority, nil
	}
	for i, name := range turnPolicyNames {
		if name == s {
			return TurnPolicy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown turn policy %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (tp TurnPolicy) MarshalText() ([]byte, error) {
	if tp < 0 || int(tp) >= len(turnPolicyNames) {
		return nil, fmt.Errorf("invalid turn policy %d", int(tp))
	}
	return []byte(tp.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (tp *TurnPolicy) UnmarshalText(text []byte) error {
	p, err := ParseTurnPolicy(string(text))
	if err != nil {
		return err
	}
	*tp = p
	return nil
}

// Params controls the tracing algorithm.
type Params struct {
	// Threshold separates dark from light pixels in simple mode: pixels
	// with luminance strictly below Threshold are traced. Range 0-255.
	Threshold int

	// TurnPolicy resolves ambiguous boundary corners.
	TurnPolicy TurnPolicy

	// MinFeatureSize suppresses regions whose area, in pixels, is smaller
	// than this value.
	MinFeatureSize int

	// CurveOptimization enables joining adjacent curve segments into
	// longer Bézier curves.
	CurveOptimization bool

	// OptimizationTolerance is the maximal deviation, in pixels, which a
	// joined curve may have from the curves it replaces.
	OptimizationTolerance float64

	// AlphaMax controls corner detection. Vertices whose smoothness
	// exceeds AlphaMax become sharp corners; zero gives a polygon, values
	// above 4/3 give no corners at all.
	AlphaMax float64
}

// DefaultParams returns the standard tracing parameters.
func DefaultParams() Params {
	return Params{
		Threshold:             128,
		TurnPolicy:            TurnMinority,
		MinFeatureSize:        2,
		CurveOptimization:     true,
		OptimizationTolerance: 0.2,
		AlphaMax:              1.0,
	}
}

// Validate checks that all parameters are in range.
func (p Params) Validate() error {
	switch {
	case p.Threshold < 0 || p.Threshold > 255:
		return fmt.Errorf("threshold %d out of range [0, 255]", p.Threshold)
	case p.TurnPolicy < 0 || int(p.TurnPolicy) >= len(turnPolicyNames):
		return fmt.Errorf("invalid turn policy %d", int(p.TurnPolicy))
	case p.MinFeatureSize < 0:
		return fmt.Errorf("negative minimum feature size %d", p.MinFeatureSize)
	case p.OptimizationTolerance < 0:
		return fmt.Errorf("negative optimization tolerance %g", p.OptimizationTolerance)
	case p.AlphaMax < 0:
		return fmt.Errorf("negative alpha max %g", p.AlphaMax)
	}
	return nil
}

// Mode names the tracing strategy which produced an error.
type Mode string

const (
	ModePosterized Mode = "posterized"
	ModeSimple     Mode = "simple"
	ModeBitmap     Mode = "bitmap"
)

// ErrNoContour is wrapped by a TraceError when an image contains no
// contour which could be traced.
var ErrNoContour = errors.New("no contour found")

// TraceError reports that a tracing strategy failed. Inside the
// vectorization pipeline a TraceError triggers the next fallback.
type TraceError struct {
	Mode Mode
	Err  error
}

func (e *TraceError) Error() string {
	return fmt.Sprintf("%s trace: %v", e.Mode, e.Err)
}

func (e *TraceError) Unwrap() error {
	return e.Err
}
