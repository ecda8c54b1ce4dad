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
	"math/bits"

	"seehuhn.de/go/patchtrace/raster"
)

// The decomposition works on the lattice of pixel corners, with the y axis
// pointing up: pixel (x, y) occupies the unit square [x, x+1]×[y, y+1], and
// row y of the lattice bitmap is row height-1-y of the image.

// point is a lattice point.
type point struct {
	x, y int
}

// outline is a closed boundary on the pixel lattice.
type outline struct {
	pts  []point // one entry per unit step
	area int     // enclosed area in pixels
	hole bool    // the boundary encloses unset pixels
}

// lattice is a working copy of a mask, in lattice coordinates.
type lattice struct {
	w, h int
	bits []bool
}

func newLattice(bm *raster.Bitmap) *lattice {
	l := &lattice{w: bm.Width, h: bm.Height, bits: make([]bool, len(bm.Bits))}
	for y := range bm.Height {
		copy(l.bits[y*l.w:(y+1)*l.w], bm.Bits[(bm.Height-1-y)*bm.Width:])
	}
	return l
}

func (l *lattice) get(x, y int) bool {
	if x < 0 || y < 0 || x >= l.w || y >= l.h {
		return false
	}
	return l.bits[y*l.w+x]
}

// findNext returns the first set pixel at or after (x, y) in scan order:
// rows from the top of the image down, pixels left to right.
func (l *lattice) findNext(x, y int) (int, int, bool) {
	for ; y >= 0; y-- {
		row := l.bits[y*l.w : (y+1)*l.w]
		for ; x < l.w; x++ {
			if row[x] {
				return x, y, true
			}
		}
		x = 0
	}
	return 0, 0, false
}

// invertRight flips all pixels in row y to the right of column x.
func (l *lattice) invertRight(x, y int) {
	row := l.bits[y*l.w : (y+1)*l.w]
	for i := max(x, 0); i < l.w; i++ {
		row[i] = !row[i]
	}
}

// erase inverts the interior of o. Afterwards the region bounded by o has
// disappeared, and its holes have become set regions.
func (l *lattice) erase(o *outline) {
	n := len(o.pts)
	for i := range n {
		a, b := o.pts[i], o.pts[(i+1)%n]
		if a.y != b.y {
			l.invertRight(b.x, min(a.y, b.y))
		}
	}
}

// decompose extracts all boundaries of the set regions of bm, including the
// boundaries of holes. Boundaries enclosing fewer than minArea pixels are
// dropped. The order of the result is deterministic: boundaries are found in
// scan order of their top-left pixel.
func decompose(bm *raster.Bitmap, policy TurnPolicy, minArea int) []outline {
	orig := newLattice(bm)
	work := newLattice(bm)

	var res []outline
	x, y := 0, work.h-1
	for {
		var ok bool
		x, y, ok = work.findNext(x, y)
		if !ok {
			break
		}
		hole := !orig.get(x, y)
		o := work.follow(x, y+1, hole, policy)
		work.erase(&o)
		if o.area >= max(minArea, 1) {
			res = append(res, o)
		}
	}
	return res
}

// follow traces the boundary which starts at the upper-left corner (x0, y0)
// of a set pixel, keeping set pixels on the left-hand side.
func (l *lattice) follow(x0, y0 int, hole bool, policy TurnPolicy) outline {
	o := outline{hole: hole}
	x, y := x0, y0
	dx, dy := 0, -1
	area := 0
	for {
		o.pts = append(o.pts, point{x, y})
		x += dx
		y += dy
		area += x * dy
		if x == x0 && y == y0 {
			break
		}

		// c is the pixel ahead-right, d the pixel ahead-left
		c := l.get(x+(dx+dy-1)/2, y+(dy-dx-1)/2)
		d := l.get(x+(dx-dy-1)/2, y+(dy+dx-1)/2)
		switch {
		case c && !d:
			if l.turnRight(x, y, hole, policy) {
				dx, dy = dy, -dx
			} else {
				dx, dy = -dy, dx
			}
		case c:
			dx, dy = dy, -dx
		case !d:
			dx, dy = -dy, dx
		}
	}
	if area < 0 {
		area = -area
	}
	o.area = area
	return o
}

// turnRight resolves an ambiguous corner at (x, y).
func (l *lattice) turnRight(x, y int, hole bool, policy TurnPolicy) bool {
	switch policy {
	case TurnRight:
		return true
	case TurnBlack:
		return !hole
	case TurnWhite:
		return hole
	case TurnRandom:
		return cornerHash(x, y)
	case TurnMajority:
		return l.majority(x, y)
	case TurnMinority:
		return !l.majority(x, y)
	default: // TurnLeft
		return false
	}
}

// majority reports whether set pixels dominate the neighborhood of corner
// (x, y). Squares of increasing radius are tried until one is not balanced.
func (l *lattice) majority(x, y int) bool {
	for i := 2; i < 5; i++ {
		ct := 0
		for a := -i + 1; a <= i-1; a++ {
			ct += l.vote(x+a, y+i-1)
			ct += l.vote(x+i-1, y+a-1)
			ct += l.vote(x+a-1, y-i)
			ct += l.vote(x-i, y+a)
		}
		if ct > 0 {
			return true
		} else if ct < 0 {
			return false
		}
	}
	return false
}

func (l *lattice) vote(x, y int) int {
	if l.get(x, y) {
		return 1
	}
	return -1
}

// cornerHash is a fixed pseudo-random function of the corner position.
func cornerHash(x, y int) bool {
	z := (uint32(x)*0x04b3e375 ^ uint32(y)) * 0x05a8ef93
	z ^= z >> 16
	return bits.OnesCount32(z)&1 == 1
}
