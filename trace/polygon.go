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
)

// polygonTolerance is the maximal distance, in pixels, between a lattice
// boundary and the polygon which replaces it.
const polygonTolerance = 0.75

// corners returns the points of a lattice boundary where the direction
// changes.
func corners(pts []point) []point {
	n := len(pts)
	var res []point
	for i := range n {
		prev, cur, next := pts[(i+n-1)%n], pts[i], pts[(i+1)%n]
		if (cur.x-prev.x) != (next.x-cur.x) || (cur.y-prev.y) != (next.y-cur.y) {
			res = append(res, cur)
		}
	}
	return res
}

// polygon converts a lattice boundary to a simplified closed polygon in
// image coordinates. Hole boundaries are reversed, so that holes and
// outlines run in opposite directions.
func polygon(o *outline, height int) []vec.Vec2 {
	cs := corners(o.pts)
	pts := make([]vec.Vec2, len(cs))
	for i, c := range cs {
		pts[i] = vec.Vec2{X: float64(c.x), Y: float64(height - c.y)}
	}
	if o.hole {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}

	simple := simplifyClosed(pts, polygonTolerance)
	if len(simple) < 3 {
		return pts
	}
	return simple
}

// simplifyClosed applies the Douglas-Peucker algorithm to a closed polygon.
// The first point is always kept.
func simplifyClosed(pts []vec.Vec2, eps float64) []vec.Vec2 {
	n := len(pts)
	if n <= 3 {
		return pts
	}

	far, farDist := 0, -1.0
	for i := 1; i < n; i++ {
		d := pts[i].Sub(pts[0]).Length()
		if d > farDist {
			far, farDist = i, d
		}
	}

	loop := make([]vec.Vec2, 0, n+1)
	loop = append(loop, pts...)
	loop = append(loop, pts[0])

	res := simplifyOpen(loop[:far+1], eps)
	second := simplifyOpen(loop[far:], eps)
	res = append(res, second[1:len(second)-1]...)
	return res
}

// simplifyOpen applies the Douglas-Peucker algorithm to an open polyline.
// Both end points are kept.
func simplifyOpen(pts []vec.Vec2, eps float64) []vec.Vec2 {
	n := len(pts)
	if n <= 2 {
		return append([]vec.Vec2(nil), pts...)
	}

	keep := make([]bool, n)
	keep[0], keep[n-1] = true, true
	type span struct{ a, b int }
	todo := []span{{0, n - 1}}
	for len(todo) > 0 {
		s := todo[len(todo)-1]
		todo = todo[:len(todo)-1]

		best, bestDist := -1, eps
		for i := s.a + 1; i < s.b; i++ {
			d := segmentDist(pts[i], pts[s.a], pts[s.b])
			if d > bestDist {
				best, bestDist = i, d
			}
		}
		if best >= 0 {
			keep[best] = true
			todo = append(todo, span{s.a, best}, span{best, s.b})
		}
	}

	var res []vec.Vec2
	for i, k := range keep {
		if k {
			res = append(res, pts[i])
		}
	}
	return res
}

// segmentDist returns the distance of p from the segment a-b.
func segmentDist(p, a, b vec.Vec2) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Sub(a).Length()
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Sub(a.Add(ab.Mul(t))).Length()
}

func cross(a, b vec.Vec2) float64 {
	return a.X*b.Y - a.Y*b.X
}

func dot(a, b vec.Vec2) float64 {
	return a.X*b.X + a.Y*b.Y
}

func midpoint(a, b vec.Vec2) vec.Vec2 {
	return vec.Vec2{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}
