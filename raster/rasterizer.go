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
	"cmp"
	"image"
	"image/color"
	"math"
	"slices"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// FillRule determines which points are inside a path.
type FillRule int

const (
	NonZero FillRule = iota
	EvenOdd
)

// line is a non-horizontal path segment in device coordinates.
type line struct {
	x0, y0 float64
	x1, y1 float64
	dxdy   float64 // (x1-x0)/(y1-y0)
}

// Rasterizer computes anti-aliased pixel coverage for filled paths. Traced
// layers are rendered with it for patch previews and to compare a tracing
// result against its source mask.
//
// Buffers are kept between calls, so one Rasterizer should be reused for
// many paths. A Rasterizer is not safe for concurrent use.
type Rasterizer struct {
	// CTM maps path coordinates to device pixels. Must be non-singular.
	CTM matrix.Matrix

	// Clip limits the output to this integer-aligned device rectangle.
	Clip rect.Rect

	// Flatness is the maximal distance, in device pixels, between a curve
	// and the line segments which replace it.
	Flatness float64

	// bufferedArea is the largest bounding box area (in pixels) which is
	// rendered using whole-box buffers. Larger paths are scanned row by row
	// with an active line list.
	bufferedArea int

	lines      []line
	active     []int
	cover      []float32 // signed vertical extent per pixel; becomes the output
	area       []float32 // cover weighted by horizontal position in the pixel
	rowTouched []bool

	bboxEmpty                  bool
	bxMin, bxMax, byMin, byMax float64
}

// NewRasterizer returns a Rasterizer for the given clip rectangle, with the
// identity transformation.
func NewRasterizer(clip rect.Rect) *Rasterizer {
	return &Rasterizer{
		CTM:          matrix.Identity,
		Clip:         clip,
		Flatness:     defaultFlatness,
		bufferedArea: bufferedAreaLimit,
	}
}

// Reset prepares the rasterizer for a new canvas, keeping its buffers.
func (r *Rasterizer) Reset(clip rect.Rect) {
	r.CTM = matrix.Identity
	r.Clip = clip
	r.Flatness = defaultFlatness
	r.bufferedArea = bufferedAreaLimit
}

// Fill rasterizes p with the given fill rule. The emit callback receives the
// coverage of one pixel row at a time, starting at column xMin; the slice is
// only valid during the call. Rows without coverage are skipped.
func (r *Rasterizer) Fill(p *path.Data, rule FillRule, emit func(y, xMin int, coverage []float32)) {
	xMin, xMax, yMin, yMax, ok := r.buildLines(p)
	if !ok {
		return
	}
	if (xMax-xMin)*(yMax-yMin) < r.bufferedArea {
		r.fillBuffered(xMin, xMax, yMin, yMax, rule, emit)
	} else {
		r.fillScanning(xMin, xMax, yMin, yMax, rule, emit)
	}
}

// Mask rasterizes p and returns the pixels which are at least half covered.
// The mask has the size of the clip rectangle.
func (r *Rasterizer) Mask(p *path.Data, rule FillRule) *Bitmap {
	w, h := int(r.Clip.URx-r.Clip.LLx), int(r.Clip.URy-r.Clip.LLy)
	x0, y0 := int(r.Clip.LLx), int(r.Clip.LLy)
	bm := NewBitmap(w, h)
	r.Fill(p, rule, func(y, xMin int, coverage []float32) {
		row := (y - y0) * w
		for i, c := range coverage {
			if c >= 0.5 {
				bm.Bits[row+xMin-x0+i] = true
			}
		}
	})
	return bm
}

// Paint composites p onto dst in the color c, using the coverage as alpha.
func (r *Rasterizer) Paint(dst *image.RGBA, p *path.Data, rule FillRule, c color.RGBA) {
	b := dst.Bounds()
	r.Fill(p, rule, func(y, xMin int, coverage []float32) {
		if y < b.Min.Y || y >= b.Max.Y {
			return
		}
		for i, cov := range coverage {
			x := xMin + i
			if x < b.Min.X || x >= b.Max.X || cov <= 0 {
				continue
			}
			off := dst.PixOffset(x, y)
			px := dst.Pix[off : off+4 : off+4]
			a := float32(c.A) / 255 * cov
			px[0] = blend(px[0], c.R, a)
			px[1] = blend(px[1], c.G, a)
			px[2] = blend(px[2], c.B, a)
			px[3] = blend(px[3], 255, a)
		}
	})
}

func blend(dst, src uint8, a float32) uint8 {
	return uint8(float32(dst)*(1-a) + float32(src)*a + 0.5)
}

// toDevice applies the CTM to a point.
func (r *Rasterizer) toDevice(p vec.Vec2) (float64, float64) {
	m := r.CTM
	return m[0]*p.X + m[2]*p.Y + m[4], m[1]*p.X + m[3]*p.Y + m[5]
}

// linearLength returns the device-space length of a user-space vector,
// ignoring the translation part of the CTM.
func (r *Rasterizer) linearLength(v vec.Vec2) float64 {
	m := r.CTM
	return math.Hypot(m[0]*v.X+m[2]*v.Y, m[1]*v.X+m[3]*v.Y)
}

// buildLines flattens p into r.lines and returns the device bounding box of
// the lines, clamped to the clip rectangle.
func (r *Rasterizer) buildLines(p *path.Data) (xMin, xMax, yMin, yMax int, ok bool) {
	r.lines = r.lines[:0]
	r.bboxEmpty = true

	var cur, start vec.Vec2
	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			cur = p.Coords[k]
			start = cur
			k++
		case path.CmdLineTo:
			r.addLine(cur, p.Coords[k])
			cur = p.Coords[k]
			k++
		case path.CmdQuadTo:
			r.flattenQuad(cur, p.Coords[k], p.Coords[k+1], r.addLine)
			cur = p.Coords[k+1]
			k += 2
		case path.CmdCubeTo:
			r.flattenCube(cur, p.Coords[k], p.Coords[k+1], p.Coords[k+2], r.addLine)
			cur = p.Coords[k+2]
			k += 3
		case path.CmdClose:
			if cur != start {
				r.addLine(cur, start)
			}
			cur = start
		}
	}
	if len(r.lines) == 0 {
		return 0, 0, 0, 0, false
	}

	xMin = max(int(math.Floor(r.bxMin)), int(r.Clip.LLx))
	xMax = min(int(math.Floor(r.bxMax))+1, int(r.Clip.URx))
	yMin = max(int(math.Floor(r.byMin)), int(r.Clip.LLy))
	yMax = min(int(math.Floor(r.byMax))+1, int(r.Clip.URy))
	if xMin >= xMax || yMin >= yMax {
		return 0, 0, 0, 0, false
	}
	return xMin, xMax, yMin, yMax, true
}

// flattenQuad replaces a quadratic Bézier curve by line segments.
func (r *Rasterizer) flattenQuad(p0, p1, p2 vec.Vec2, emit func(a, b vec.Vec2)) {
	dev := r.linearLength(p0.Sub(p1.Mul(2)).Add(p2).Mul(0.25))
	n := 1
	if dev > r.Flatness {
		n = int(math.Ceil(math.Sqrt(dev / r.Flatness)))
	}
	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		pt := p0.Mul(s * s).Add(p1.Mul(2 * s * t)).Add(p2.Mul(t * t))
		emit(prev, pt)
		prev = pt
	}
}

// flattenCube replaces a cubic Bézier curve by line segments. The number of
// segments follows Wang's formula.
func (r *Rasterizer) flattenCube(p0, p1, p2, p3 vec.Vec2, emit func(a, b vec.Vec2)) {
	d := max(
		r.linearLength(p0.Sub(p1.Mul(2)).Add(p2)),
		r.linearLength(p1.Sub(p2.Mul(2)).Add(p3)),
	)
	n := 1
	if d > 0 {
		if f := math.Sqrt(3 * d / (4 * r.Flatness)); f > 1 {
			n = int(math.Ceil(f))
		}
	}
	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		pt := p0.Mul(s * s * s).Add(p1.Mul(3 * s * s * t)).Add(p2.Mul(3 * s * t * t)).Add(p3.Mul(t * t * t))
		emit(prev, pt)
		prev = pt
	}
}

// addLine transforms a segment to device space and records it, unless it is
// horizontal.
func (r *Rasterizer) addLine(a, b vec.Vec2) {
	x0, y0 := r.toDevice(a)
	x1, y1 := r.toDevice(b)
	dy := y1 - y0
	if math.Abs(dy) < horizontalLimit {
		return
	}
	r.lines = append(r.lines, line{x0: x0, y0: y0, x1: x1, y1: y1, dxdy: (x1 - x0) / dy})

	if r.bboxEmpty {
		r.bxMin, r.bxMax = min(x0, x1), max(x0, x1)
		r.byMin, r.byMax = min(y0, y1), max(y0, y1)
		r.bboxEmpty = false
		return
	}
	r.bxMin = min(r.bxMin, x0, x1)
	r.bxMax = max(r.bxMax, x0, x1)
	r.byMin = min(r.byMin, y0, y1)
	r.byMax = max(r.byMax, y0, y1)
}

// Each line crossing a pixel adds two quantities:
//
//	cover = ±(vertical extent inside the pixel)   (+ for downward lines)
//	area  = cover * (1 - xFrac)                   (xFrac: mean x position in the pixel)
//
// Integrating a row left to right, the signed coverage of pixel i is
// area[i] plus the sum of cover[j] for all j < i. Lines left of the row
// window are accumulated into the first pixel.

// accumulate adds the part of l inside scanline y to cover and area, which
// are indexed by x - xLo for xLo <= x < xHi.
func accumulate(l *line, y int, cover, area []float32, xLo, xHi int) {
	top := max(float64(y), min(l.y0, l.y1))
	bot := min(float64(y+1), max(l.y0, l.y1))
	if bot <= top {
		return
	}
	sign := float32(1)
	if l.y1 < l.y0 {
		sign = -1
	}

	xa := l.x0 + l.dxdy*(top-l.y0)
	xb := l.x0 + l.dxdy*(bot-l.y0)
	left, right := min(xa, xb), max(xa, xb)
	pl, pr := int(math.Floor(left)), int(math.Floor(right))

	switch {
	case pr < xLo:
		c := sign * float32(bot-top)
		cover[0] += c
		area[0] += c
		return
	case pl >= xHi:
		return
	case pl == pr:
		addSpan(l, top, bot, sign, pl, cover, area, xLo, xHi)
		return
	}

	// the line crosses several pixel columns within this row
	dydx := 1 / l.dxdy
	for px := pl; px <= pr; px++ {
		ya := l.y0 + dydx*(float64(px)-l.x0)
		yb := l.y0 + dydx*(float64(px+1)-l.x0)
		lo := max(min(ya, yb), top)
		hi := min(max(ya, yb), bot)
		if hi <= lo {
			continue
		}
		addSpan(l, lo, hi, sign, px, cover, area, xLo, xHi)
	}
}

// addSpan adds the part of l between heights top and bot, which lies
// inside pixel column px.
func addSpan(l *line, top, bot float64, sign float32, px int, cover, area []float32, xLo, xHi int) {
	c := sign * float32(bot-top)
	if px < xLo {
		cover[0] += c
		area[0] += c
		return
	}
	if px >= xHi {
		return
	}
	xMid := l.x0 + l.dxdy*((top+bot)/2-l.y0)
	i := px - xLo
	cover[i] += c
	area[i] += c * float32(1-(xMid-float64(px)))
}

// integrate turns the accumulated cover and area of one row into coverage
// values in [0, 1], stored in cover.
func integrate(cover, area []float32, rule FillRule) {
	var acc float32
	for i := range cover {
		raw := acc + area[i]
		acc += cover[i]
		if raw < 0 {
			raw = -raw
		}
		if rule == NonZero {
			cover[i] = min(raw, 1)
		} else {
			m := raw - 2*float32(int(raw/2))
			d := 1 - m
			if d < 0 {
				d = -d
			}
			cover[i] = 1 - d
		}
	}
}

// trimZeros strips zero coverage at both ends of a row.
func trimZeros(coverage []float32) ([]float32, int) {
	lo, hi := 0, len(coverage)
	for lo < hi && coverage[lo] == 0 {
		lo++
	}
	for hi > lo && coverage[hi-1] == 0 {
		hi--
	}
	if lo == hi {
		return nil, 0
	}
	return coverage[lo:hi], lo
}

// fillBuffered accumulates all lines into buffers covering the whole
// bounding box, then integrates the rows which were touched.
func (r *Rasterizer) fillBuffered(xMin, xMax, yMin, yMax int, rule FillRule, emit func(y, xMin int, coverage []float32)) {
	w, h := xMax-xMin, yMax-yMin
	r.cover = slices.Grow(r.cover[:0], w*h)[:w*h]
	r.area = slices.Grow(r.area[:0], w*h)[:w*h]
	r.rowTouched = slices.Grow(r.rowTouched[:0], h)[:h]
	clear(r.cover)
	clear(r.area)
	clear(r.rowTouched)

	for i := range r.lines {
		l := &r.lines[i]
		lo := max(int(math.Floor(min(l.y0, l.y1))), yMin)
		hi := min(int(math.Floor(max(l.y0, l.y1)))+1, yMax)
		for y := lo; y < hi; y++ {
			row := y - yMin
			off := row * w
			accumulate(l, y, r.cover[off:off+w], r.area[off:off+w], xMin, xMax)
			r.rowTouched[row] = true
		}
	}

	for row := range h {
		if !r.rowTouched[row] {
			continue
		}
		off := row * w
		cov := r.cover[off : off+w]
		integrate(cov, r.area[off:off+w], rule)
		if out, dx := trimZeros(cov); out != nil {
			emit(yMin+row, xMin+dx, out)
		}
	}
}

// fillScanning processes one scanline at a time, keeping a list of the
// lines which intersect the current row.
func (r *Rasterizer) fillScanning(xMin, xMax, yMin, yMax int, rule FillRule, emit func(y, xMin int, coverage []float32)) {
	w := xMax - xMin
	r.cover = slices.Grow(r.cover[:0], w)[:w]
	r.area = slices.Grow(r.area[:0], w)[:w]

	slices.SortFunc(r.lines, func(a, b line) int {
		return cmp.Compare(min(a.y0, a.y1), min(b.y0, b.y1))
	})
	r.active = r.active[:0]
	next := 0

	for y := yMin; y < yMax; y++ {
		yf := float64(y)
		for next < len(r.lines) && min(r.lines[next].y0, r.lines[next].y1) < yf+1 {
			r.active = append(r.active, next)
			next++
		}
		if len(r.active) == 0 {
			continue
		}

		clear(r.cover)
		clear(r.area)
		touched := false
		for i := 0; i < len(r.active); {
			l := &r.lines[r.active[i]]
			if max(l.y0, l.y1) <= yf {
				r.active[i] = r.active[len(r.active)-1]
				r.active = r.active[:len(r.active)-1]
				continue
			}
			accumulate(l, y, r.cover, r.area, xMin, xMax)
			touched = true
			i++
		}
		if !touched {
			continue
		}

		integrate(r.cover, r.area, rule)
		if out, dx := trimZeros(r.cover); out != nil {
			emit(y, xMin+dx, out)
		}
	}
}

const (
	// defaultFlatness is the default curve tolerance in device pixels.
	defaultFlatness = 0.25

	// horizontalLimit is the smallest vertical extent of a line which
	// contributes coverage.
	horizontalLimit = 1e-10

	// bufferedAreaLimit selects between fillBuffered and fillScanning.
	bufferedAreaLimit = 65536
)
