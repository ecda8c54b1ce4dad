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

package raster

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Mode selects the color space of a prepared image.
type Mode int

const (
	// ModeGray converts the image to a single luminance channel.
	ModeGray Mode = iota
	// ModeColor keeps the three RGB channels.
	ModeColor
)

func (m Mode) String() string {
	switch m {
	case ModeGray:
		return "grayscale"
	case ModeColor:
		return "color"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Histogram stretch limits, as fractions of the pixel count.
const (
	normalizeLow  = 0.01
	normalizeHigh = 0.99
)

// Prepare normalizes an image for tracing.
//
// The image is scaled down so that neither side exceeds maxDim, keeping the
// aspect ratio; images are never enlarged. The luminance histogram is then
// stretched so that the 1st and 99th percentiles map to 0 and 255. Finally,
// in ModeGray the result is converted to a single channel.
//
// Prepare does not modify img.
func Prepare(img *Image, maxDim int, mode Mode) (*Image, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return nil, &DecodeError{Err: ErrEmptyImage}
	}
	if maxDim <= 0 {
		return nil, fmt.Errorf("invalid maximum dimension %d", maxDim)
	}

	out := Resize(img, maxDim)
	out = Normalize(out)
	if mode == ModeGray {
		out = out.Gray()
	}
	return out, nil
}

// FitInside returns the size of a w×h image scaled to fit into a
// maxDim×maxDim box. The size is never larger than the original and never
// smaller than 1×1.
func FitInside(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w >= h {
		nh := max(1, (h*maxDim+w/2)/w)
		return maxDim, min(nh, h)
	}
	nw := max(1, (w*maxDim+h/2)/h)
	return min(nw, w), maxDim
}

// Resize scales img to fit inside a maxDim×maxDim box using Catmull-Rom
// interpolation. If no scaling is needed, img itself is returned.
func Resize(img *Image, maxDim int) *Image {
	w, h := FitInside(img.Width, img.Height, maxDim)
	if w == img.Width && h == img.Height {
		return img
	}

	src := img.ToImage()
	rect := image.Rect(0, 0, w, h)
	if img.Channels == 1 {
		dst := image.NewGray(rect)
		draw.CatmullRom.Scale(dst, rect, src, src.Bounds(), draw.Src, nil)
		out := NewImage(w, h, 1)
		for y := range h {
			copy(out.Pix[y*w:(y+1)*w], dst.Pix[y*dst.Stride:])
		}
		return out
	}

	dst := image.NewRGBA(rect)
	draw.CatmullRom.Scale(dst, rect, src, src.Bounds(), draw.Src, nil)
	out := NewImage(w, h, 3)
	for y := range h {
		row := dst.Pix[y*dst.Stride:]
		for x := range w {
			out.Set(x, y, row[4*x], row[4*x+1], row[4*x+2])
		}
	}
	return out
}

// Normalize stretches the luminance histogram of img so that the darkest and
// brightest percentile map to 0 and 255. The same linear map is applied to
// every channel. Images with a flat histogram are returned unchanged.
func Normalize(img *Image) *Image {
	var hist [256]int
	n := img.Width * img.Height
	for y := range img.Height {
		for x := range img.Width {
			hist[img.Luma(x, y)]++
		}
	}

	lo, hi := percentile(&hist, n, normalizeLow), percentile(&hist, n, normalizeHigh)
	if hi <= lo || (lo == 0 && hi == 255) {
		return img
	}

	var lut [256]byte
	for v := range 256 {
		s := (v - lo) * 255 / (hi - lo)
		lut[v] = byte(max(0, min(255, s)))
	}

	out := NewImage(img.Width, img.Height, img.Channels)
	for i, v := range img.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

// percentile returns the smallest value v such that more than frac of the
// n pixels counted in hist are less than or equal to v.
func percentile(hist *[256]int, n int, frac float64) int {
	limit := int(frac * float64(n))
	sum := 0
	for v, c := range hist {
		sum += c
		if sum > limit {
			return v
		}
	}
	return 255
}
