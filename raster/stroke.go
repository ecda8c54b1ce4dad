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
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// zeroLength is the length below which stroke segments are dropped.
const zeroLength = 1e-9

// StrokeStyle describes a stroked line. Lines have butt caps and bevel
// joins.
type StrokeStyle struct {
	Width float64

	// Dash alternates "on" and "off" lengths, starting with "on". A pattern
	// with an odd number of entries is used twice, so that its second
	// repetition starts with "off". An empty pattern gives a solid line.
	Dash      []float64
	DashPhase float64
}

// strokeSegment is a line segment in path coordinates.
type strokeSegment struct {
	A, B vec.Vec2 // endpoints
	T    vec.Vec2 // unit tangent (A→B direction)
	N    vec.Vec2 // unit normal (90° CCW from T)
}

func newStrokeSegment(a, b vec.Vec2) (strokeSegment, bool) {
	d := b.Sub(a)
	l := d.Length()
	if l < zeroLength {
		return strokeSegment{}, false
	}
	t := d.Mul(1 / l)
	return strokeSegment{A: a, B: b, T: t, N: vec.Vec2{X: -t.Y, Y: t.X}}, true
}

// StrokeOutline returns the area covered by stroking p, as a path which must
// be filled using the NonZero rule. Curves are flattened using the CTM and
// Flatness of r; the result is in path coordinates.
func (r *Rasterizer) StrokeOutline(p *path.Data, style StrokeStyle) *path.Data {
	out := &path.Data{}
	d := style.Width / 2
	if d <= 0 {
		return out
	}

	subpaths, closed := r.flattenSubpaths(p)
	for i, segs := range subpaths {
		if len(style.Dash) > 0 {
			for _, piece := range dashSegments(segs, closed[i], style.Dash, style.DashPhase) {
				appendOpenOutline(out, piece, d)
			}
		} else if closed[i] {
			appendClosedOutline(out, segs, d)
		} else {
			appendOpenOutline(out, segs, d)
		}
	}
	return out
}

// flattenSubpaths replaces p by one list of line segments per subpath.
// Subpaths without any non-degenerate segment are omitted.
func (r *Rasterizer) flattenSubpaths(p *path.Data) ([][]strokeSegment, []bool) {
	var subpaths [][]strokeSegment
	var closed []bool

	var cur []strokeSegment
	add := func(a, b vec.Vec2) {
		if seg, ok := newStrokeSegment(a, b); ok {
			cur = append(cur, seg)
		}
	}
	finish := func(isClosed bool) {
		if len(cur) > 0 {
			subpaths = append(subpaths, cur)
			closed = append(closed, isClosed)
		}
		cur = nil
	}

	var pt, start vec.Vec2
	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			finish(false)
			pt = p.Coords[k]
			start = pt
			k++
		case path.CmdLineTo:
			add(pt, p.Coords[k])
			pt = p.Coords[k]
			k++
		case path.CmdQuadTo:
			r.flattenQuad(pt, p.Coords[k], p.Coords[k+1], add)
			pt = p.Coords[k+1]
			k += 2
		case path.CmdCubeTo:
			r.flattenCube(pt, p.Coords[k], p.Coords[k+1], p.Coords[k+2], add)
			pt = p.Coords[k+2]
			k += 3
		case path.CmdClose:
			add(pt, start)
			finish(true)
			pt = start
		}
	}
	finish(false)
	return subpaths, closed
}

// appendOpenOutline adds the outline of an open polyline to out: the +N side
// forward, then the -N side backward. The ends are butt caps and the
// offset lines at each corner are connected by a bevel.
func appendOpenOutline(out *path.Data, segs []strokeSegment, d float64) {
	if len(segs) == 0 {
		return
	}
	out.MoveTo(segs[0].A.Add(segs[0].N.Mul(d)))
	out.LineTo(segs[0].B.Add(segs[0].N.Mul(d)))
	for _, seg := range segs[1:] {
		out.LineTo(seg.A.Add(seg.N.Mul(d)))
		out.LineTo(seg.B.Add(seg.N.Mul(d)))
	}
	for i := len(segs) - 1; i >= 0; i-- {
		seg := segs[i]
		out.LineTo(seg.B.Sub(seg.N.Mul(d)))
		out.LineTo(seg.A.Sub(seg.N.Mul(d)))
	}
	out.Close()
}

// appendClosedOutline adds the outline of a closed polygon to out, as two
// loops of opposite orientation.
func appendClosedOutline(out *path.Data, segs []strokeSegment, d float64) {
	out.MoveTo(segs[0].A.Add(segs[0].N.Mul(d)))
	out.LineTo(segs[0].B.Add(segs[0].N.Mul(d)))
	for _, seg := range segs[1:] {
		out.LineTo(seg.A.Add(seg.N.Mul(d)))
		out.LineTo(seg.B.Add(seg.N.Mul(d)))
	}
	out.Close()

	last := segs[len(segs)-1]
	out.MoveTo(last.B.Sub(last.N.Mul(d)))
	out.LineTo(last.A.Sub(last.N.Mul(d)))
	for i := len(segs) - 2; i >= 0; i-- {
		seg := segs[i]
		out.LineTo(seg.B.Sub(seg.N.Mul(d)))
		out.LineTo(seg.A.Sub(seg.N.Mul(d)))
	}
	out.Close()
}

// dashSegments splits a polyline into its "on" pieces. For closed
// polylines which start and end inside a dash, the last and first pieces are
// joined.
func dashSegments(segs []strokeSegment, closed bool, dash []float64, phase float64) [][]strokeSegment {
	pattern := dash
	if len(pattern)%2 == 1 {
		pattern = append(append([]float64{}, dash...), dash...)
	}
	total := 0.0
	for _, l := range pattern {
		total += max(l, 0)
	}
	if total <= 0 {
		return [][]strokeSegment{segs}
	}

	phase = math.Mod(phase, total)
	if phase < 0 {
		phase += total
	}
	idx := 0
	for phase >= max(pattern[idx], 0) {
		phase -= max(pattern[idx], 0)
		idx = (idx + 1) % len(pattern)
	}
	remaining := pattern[idx] - phase
	on := idx%2 == 0
	startedOn := on

	var pieces [][]strokeSegment
	var cur []strokeSegment
	for _, seg := range segs {
		a := seg.A
		for {
			left := seg.B.Sub(a).Length()
			if remaining >= left {
				if on && left >= zeroLength {
					cur = append(cur, strokeSegment{A: a, B: seg.B, T: seg.T, N: seg.N})
				}
				remaining -= left
				break
			}

			split := a.Add(seg.T.Mul(remaining))
			if on {
				if remaining >= zeroLength {
					cur = append(cur, strokeSegment{A: a, B: split, T: seg.T, N: seg.N})
				}
				if len(cur) > 0 {
					pieces = append(pieces, cur)
					cur = nil
				}
			}
			a = split
			idx = (idx + 1) % len(pattern)
			remaining = max(pattern[idx], 0)
			on = idx%2 == 0
		}
	}
	if len(cur) > 0 {
		if closed && startedOn && len(pieces) > 0 {
			pieces[0] = append(cur, pieces[0]...)
		} else {
			pieces = append(pieces, cur)
		}
	}
	return pieces
}
