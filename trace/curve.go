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
	"math"

	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/patchtrace/vector"
)

// segment is one piece of a smoothed outline. Segment j runs from the
// midpoint of polygon edge j-1 to the midpoint of edge j, either as a
// Bézier curve or as two straight lines through the polygon vertex.
type segment struct {
	corner bool
	vertex vec.Vec2 // the polygon vertex, for corners
	c1, c2 vec.Vec2 // control points, for curves
	end    vec.Vec2

	turn float64 // signed turning angle at the vertex
}

const (
	minAlpha = 0.55
	maxAlpha = 1.0

	// maxJoinAngle limits the total turning of a joined curve.
	maxJoinAngle = 179 * math.Pi / 180

	samplesPerSegment = 8
	fitSamples        = 64
)

// smooth converts a closed polygon into a sequence of curve and corner
// segments. Vertices with smoothness above alphaMax become corners.
func smooth(v []vec.Vec2, alphaMax float64) []segment {
	m := len(v)
	segs := make([]segment, m)
	for j := range m {
		i, k := (j+m-1)%m, (j+1)%m
		s := &segs[j]
		s.end = midpoint(v[j], v[k])

		in, out := v[j].Sub(v[i]), v[k].Sub(v[j])
		s.turn = math.Atan2(cross(in, out), dot(in, out))

		var alpha float64
		denom := math.Abs(v[k].X-v[i].X) + math.Abs(v[k].Y-v[i].Y)
		if denom != 0 {
			dd := math.Abs(cross(in, v[k].Sub(v[i]))) / denom
			if dd > 1 {
				alpha = 1 - 1/dd
			}
			alpha /= 0.75
		} else {
			alpha = 4.0 / 3.0
		}

		if alpha >= alphaMax {
			s.corner = true
			s.vertex = v[j]
			continue
		}
		alpha = math.Max(minAlpha, math.Min(maxAlpha, alpha))
		lambda := 0.5 + 0.5*alpha
		s.c1 = v[i].Add(v[j].Sub(v[i]).Mul(lambda))
		s.c2 = v[k].Add(v[j].Sub(v[k]).Mul(lambda))
	}
	return segs
}

// optimize joins runs of adjacent curve segments into single Bézier curves,
// as long as the joined curve stays within tol of the original ones.
func optimize(segs []segment, tol float64) []segment {
	m := len(segs)
	if m < 2 {
		return segs
	}

	// start after a corner, so that runs are not cut at an arbitrary place
	first := 0
	for i, s := range segs {
		if s.corner {
			first = (i + 1) % m
			break
		}
	}
	rot := make([]segment, 0, m)
	rot = append(rot, segs[first:]...)
	rot = append(rot, segs[:first]...)

	start := func(i int) vec.Vec2 {
		return rot[(i+m-1)%m].end
	}

	var res []segment
	for i := 0; i < m; {
		if rot[i].corner {
			res = append(res, rot[i])
			i++
			continue
		}

		best := rot[i]
		total := math.Abs(rot[i].turn)
		j := i
		for j+1 < m {
			next := rot[j+1]
			if next.corner || next.turn*rot[i].turn <= 0 {
				break
			}
			total += math.Abs(next.turn)
			if total >= maxJoinAngle {
				break
			}
			joined, ok := fitRun(start(i), rot[i:j+2], tol)
			if !ok {
				break
			}
			best = joined
			j++
		}
		res = append(res, best)
		i = j + 1
	}
	return res
}

// fitRun replaces a run of curve segments starting at p0 by one cubic Bézier
// curve with the same end tangents.
func fitRun(p0 vec.Vec2, run []segment, tol float64) (segment, bool) {
	p3 := run[len(run)-1].end
	t0 := unit(run[0].c1.Sub(p0))
	t3 := unit(run[len(run)-1].c2.Sub(p3))
	if t0 == (vec.Vec2{}) || t3 == (vec.Vec2{}) {
		return segment{}, false
	}

	// sample the original curves
	pts := []vec.Vec2{p0}
	from := p0
	for _, s := range run {
		for k := 1; k <= samplesPerSegment; k++ {
			pts = append(pts, bezier(from, s.c1, s.c2, s.end, float64(k)/samplesPerSegment))
		}
		from = s.end
	}

	// chord length parametrization
	u := make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		u[i] = u[i-1] + pts[i].Sub(pts[i-1]).Length()
	}
	total := u[len(u)-1]
	if total == 0 {
		return segment{}, false
	}
	for i := range u {
		u[i] /= total
	}

	// least squares fit of the tangent lengths
	var c11, c12, c22, x1, x2 float64
	for i, p := range pts {
		b0, b1, b2, b3 := bernstein(u[i])
		a1 := t0.Mul(b1)
		a2 := t3.Mul(b2)
		c11 += dot(a1, a1)
		c12 += dot(a1, a2)
		c22 += dot(a2, a2)
		rest := p.Sub(p0.Mul(b0 + b1)).Sub(p3.Mul(b2 + b3))
		x1 += dot(a1, rest)
		x2 += dot(a2, rest)
	}
	det := c11*c22 - c12*c12
	if math.Abs(det) < 1e-12 {
		return segment{}, false
	}
	alpha1 := (x1*c22 - x2*c12) / det
	alpha2 := (c11*x2 - c12*x1) / det
	if alpha1 <= 1e-6 || alpha2 <= 1e-6 {
		return segment{}, false
	}

	res := segment{
		c1:   p0.Add(t0.Mul(alpha1)),
		c2:   p3.Add(t3.Mul(alpha2)),
		end:  p3,
		turn: run[0].turn,
	}

	fit := make([]vec.Vec2, fitSamples+1)
	for k := range fit {
		fit[k] = bezier(p0, res.c1, res.c2, p3, float64(k)/fitSamples)
	}
	for _, p := range pts {
		if polylineDist(p, fit) > tol {
			return segment{}, false
		}
	}
	return res, true
}

// emit appends the closed outline described by segs to b.
func emit(b *vector.Builder, segs []segment) {
	if len(segs) == 0 {
		return
	}
	b.MoveTo(segs[len(segs)-1].end)
	for _, s := range segs {
		if s.corner {
			b.LineTo(s.vertex)
			b.LineTo(s.end)
		} else {
			b.CubeTo(s.c1, s.c2, s.end)
		}
	}
	b.Close()
}

func bernstein(t float64) (b0, b1, b2, b3 float64) {
	s := 1 - t
	return s * s * s, 3 * s * s * t, 3 * s * t * t, t * t * t
}

func bezier(p0, p1, p2, p3 vec.Vec2, t float64) vec.Vec2 {
	b0, b1, b2, b3 := bernstein(t)
	return vec.Vec2{
		X: b0*p0.X + b1*p1.X + b2*p2.X + b3*p3.X,
		Y: b0*p0.Y + b1*p1.Y + b2*p2.Y + b3*p3.Y,
	}
}

func unit(v vec.Vec2) vec.Vec2 {
	l := v.Length()
	if l == 0 {
		return vec.Vec2{}
	}
	return v.Mul(1 / l)
}

func polylineDist(p vec.Vec2, line []vec.Vec2) float64 {
	best := math.Inf(1)
	for i := 1; i < len(line); i++ {
		best = math.Min(best, segmentDist(p, line[i-1], line[i]))
	}
	return best
}
