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

// Package logos generates synthetic artwork for tests and benchmarks.
package logos

import (
	"bytes"
	"image/png"
	"math"

	"seehuhn.de/go/patchtrace/raster"
)

// TwoTone draws a black logo on a white background: a filled disc with a
// square hole, next to a solid bar.
func TwoTone(w, h int) *raster.Image {
	img := raster.NewRGB(w, h, 255, 255, 255)
	cx, cy := float64(w)*0.35, float64(h)*0.5
	r := float64(min(w, h)) * 0.3
	hole := r * 0.35
	for y := range h {
		for x := range w {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			inDisc := math.Hypot(fx-cx, fy-cy) < r
			inHole := math.Abs(fx-cx) < hole && math.Abs(fy-cy) < hole
			inBar := fx > float64(w)*0.75 && fx < float64(w)*0.9 && fy > float64(h)*0.15 && fy < float64(h)*0.85
			if (inDisc && !inHole) || inBar {
				img.Set(x, y, 0, 0, 0)
			}
		}
	}
	return img
}

// Ring draws a black annulus centered in a white w×h image.
func Ring(w, h int, outer, inner float64) *raster.Image {
	img := raster.NewRGB(w, h, 255, 255, 255)
	cx, cy := float64(w)/2, float64(h)/2
	for y := range h {
		for x := range w {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			if d < outer && d >= inner {
				img.Set(x, y, 0, 0, 0)
			}
		}
	}
	return img
}

// ThreeRegions splits the image into three solid vertical stripes: red over
// the left half, green over the next third of the width, blue over the rest.
func ThreeRegions(w, h int) *raster.Image {
	img := raster.NewRGB(w, h, 0, 0, 255)
	for y := range h {
		for x := range w {
			switch {
			case x < w/2:
				img.Set(x, y, 255, 0, 0)
			case x < w/2+w/3:
				img.Set(x, y, 0, 255, 0)
			}
		}
	}
	return img
}

// Gradient is a horizontal gray ramp from black to white.
func Gradient(w, h int) *raster.Image {
	img := raster.NewImage(w, h, 3)
	for y := range h {
		for x := range w {
			v := uint8(x * 255 / max(1, w-1))
			img.Set(x, y, v, v, v)
		}
	}
	return img
}

// Noise fills an image with deterministic pseudo-random colors.
func Noise(w, h int, seed uint32) *raster.Image {
	img := raster.NewImage(w, h, 3)
	s := seed
	for i := range img.Pix {
		s = s*1664525 + 1013904223
		img.Pix[i] = byte(s >> 24)
	}
	return img
}

// PNG encodes an image as PNG.
func PNG(img *raster.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img.ToImage()); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
