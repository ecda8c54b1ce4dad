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
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/vector"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// bothApproaches runs fn once with whole-box buffers and once with the
// scanning active line list.
func bothApproaches(t *testing.T, fn func(t *testing.T, limit int)) {
	t.Helper()
	for _, a := range []struct {
		name  string
		limit int
	}{
		{"buffered", 1 << 30},
		{"scanning", 0},
	} {
		t.Run(a.name, func(t *testing.T) { fn(t, a.limit) })
	}
}

// TestTriangleCoverage checks exact coverage for the triangle
// (0,0)→(10,0)→(10,1). The diagonal edge is y = x/10, so pixel X has
// coverage (2X+1)/20.
func TestTriangleCoverage(t *testing.T) {
	triangle := (&path.Data{}).
		MoveTo(vec.Vec2{X: 0, Y: 0}).
		LineTo(vec.Vec2{X: 10, Y: 0}).
		LineTo(vec.Vec2{X: 10, Y: 1}).
		Close()

	bothApproaches(t, func(t *testing.T, limit int) {
		r := NewRasterizer(rect.Rect{URx: 10, URy: 1})
		r.bufferedArea = limit

		coverage := make([]float32, 10)
		r.Fill(triangle, NonZero, func(y, xMin int, cov []float32) {
			if y == 0 {
				copy(coverage[xMin:], cov)
			}
		})

		for x := range 10 {
			want := float32(2*x+1) / 20
			if math.Abs(float64(coverage[x]-want)) > 1e-6 {
				t.Errorf("pixel %d: expected coverage %.4f, got %.4f", x, want, coverage[x])
			}
		}
	})
}

// TestSquareMask checks that an axis-aligned square fills exactly its pixels.
func TestSquareMask(t *testing.T) {
	square := (&path.Data{}).
		MoveTo(vec.Vec2{X: 2, Y: 3}).
		LineTo(vec.Vec2{X: 7, Y: 3}).
		LineTo(vec.Vec2{X: 7, Y: 9}).
		LineTo(vec.Vec2{X: 2, Y: 9}).
		Close()

	bothApproaches(t, func(t *testing.T, limit int) {
		r := NewRasterizer(rect.Rect{URx: 10, URy: 12})
		r.bufferedArea = limit
		bm := r.Mask(square, NonZero)

		for y := range bm.Height {
			for x := range bm.Width {
				want := x >= 2 && x < 7 && y >= 3 && y < 9
				if bm.Get(x, y) != want {
					t.Fatalf("pixel (%d,%d): got %t, want %t", x, y, bm.Get(x, y), want)
				}
			}
		}
		if got := bm.Count(); got != 30 {
			t.Errorf("expected 30 pixels, got %d", got)
		}
	})
}

// TestEvenOddHole checks that a nested square is cut out by the even-odd
// rule but filled by the nonzero rule when both squares run the same way.
func TestEvenOddHole(t *testing.T) {
	p := &path.Data{}
	p.MoveTo(vec.Vec2{X: 0, Y: 0}).LineTo(vec.Vec2{X: 8, Y: 0}).LineTo(vec.Vec2{X: 8, Y: 8}).LineTo(vec.Vec2{X: 0, Y: 8}).Close()
	p.MoveTo(vec.Vec2{X: 2, Y: 2}).LineTo(vec.Vec2{X: 6, Y: 2}).LineTo(vec.Vec2{X: 6, Y: 6}).LineTo(vec.Vec2{X: 2, Y: 6}).Close()

	r := NewRasterizer(rect.Rect{URx: 8, URy: 8})
	evenOdd := r.Mask(p, EvenOdd)
	nonZero := r.Mask(p, NonZero)

	if evenOdd.Get(4, 4) {
		t.Error("even-odd: hole center is filled")
	}
	if !evenOdd.Get(1, 1) {
		t.Error("even-odd: ring is not filled")
	}
	if !nonZero.Get(4, 4) {
		t.Error("nonzero: same-direction inner square is not filled")
	}
	if got := evenOdd.Count(); got != 64-16 {
		t.Errorf("even-odd: expected %d pixels, got %d", 64-16, got)
	}
}

// TestCTM checks that the transformation is applied to the path.
func TestCTM(t *testing.T) {
	unit := (&path.Data{}).
		MoveTo(vec.Vec2{X: 0, Y: 0}).
		LineTo(vec.Vec2{X: 1, Y: 0}).
		LineTo(vec.Vec2{X: 1, Y: 1}).
		LineTo(vec.Vec2{X: 0, Y: 1}).
		Close()

	r := NewRasterizer(rect.Rect{URx: 16, URy: 16})
	r.CTM = matrix.Matrix{4, 0, 0, 4, 8, 8}
	bm := r.Mask(unit, NonZero)
	if got := bm.Count(); got != 16 {
		t.Errorf("expected 16 pixels, got %d", got)
	}
	if !bm.Get(8, 8) || !bm.Get(11, 11) || bm.Get(12, 12) || bm.Get(7, 7) {
		t.Error("scaled square is misplaced")
	}
}

// TestAgainstVector compares the coverage of a ring drawn with cubic curves
// to the rasterizer from golang.org/x/image/vector.
func TestAgainstVector(t *testing.T) {
	for _, size := range []int{20, 200} {
		t.Run(fmt.Sprintf("%dx%d", size, size), func(t *testing.T) {
			c := float64(size) / 2
			outer, inner := float64(size)*0.45, float64(size)*0.30

			ring := &path.Data{}
			appendCircle(ring, c, c, outer)
			appendCircle(ring, c, c, inner)

			got := image.NewAlpha(image.Rect(0, 0, size, size))
			r := NewRasterizer(rect.Rect{URx: float64(size), URy: float64(size)})
			r.Fill(ring, EvenOdd, func(y, xMin int, coverage []float32) {
				row := got.Pix[y*got.Stride+xMin:]
				for i, cov := range coverage {
					row[i] = uint8(cov*255 + 0.5)
				}
			})

			want := image.NewAlpha(image.Rect(0, 0, size, size))
			vr := vector.NewRasterizer(size, size)
			addVectorCircle(vr, float32(c), float32(c), float32(outer), false)
			addVectorCircle(vr, float32(c), float32(c), float32(inner), true)
			vr.Draw(want, want.Bounds(), image.NewUniform(color.Alpha{255}), image.Point{})

			bad := 0
			for i := range got.Pix {
				d := int(got.Pix[i]) - int(want.Pix[i])
				if d < -24 || d > 24 {
					bad++
				}
			}
			if bad > len(got.Pix)/200 {
				t.Errorf("%d of %d pixels differ", bad, len(got.Pix))
				if err := dumpDebug(fmt.Sprintf("ring_%d", size), got, want); err != nil {
					t.Log(err)
				}
			}
		})
	}
}

// kappa is the control point distance for approximating a quarter circle
// by a cubic Bézier curve.
const kappa = 0.5522847498

// appendCircle adds a clockwise (in image coordinates) circle to p.
func appendCircle(p *path.Data, cx, cy, r float64) {
	k := kappa * r
	pt := func(x, y float64) vec.Vec2 { return vec.Vec2{X: x, Y: y} }
	p.MoveTo(pt(cx+r, cy))
	p.Cmds = append(p.Cmds, path.CmdCubeTo, path.CmdCubeTo, path.CmdCubeTo, path.CmdCubeTo, path.CmdClose)
	p.Coords = append(p.Coords,
		pt(cx+r, cy+k), pt(cx+k, cy+r), pt(cx, cy+r),
		pt(cx-k, cy+r), pt(cx-r, cy+k), pt(cx-r, cy),
		pt(cx-r, cy-k), pt(cx-k, cy-r), pt(cx, cy-r),
		pt(cx+k, cy-r), pt(cx+r, cy-k), pt(cx+r, cy),
	)
}

func addVectorCircle(r *vector.Rasterizer, cx, cy, rad float32, reverse bool) {
	k := float32(kappa) * rad
	r.MoveTo(cx+rad, cy)
	if !reverse {
		r.CubeTo(cx+rad, cy+k, cx+k, cy+rad, cx, cy+rad)
		r.CubeTo(cx-k, cy+rad, cx-rad, cy+k, cx-rad, cy)
		r.CubeTo(cx-rad, cy-k, cx-k, cy-rad, cx, cy-rad)
		r.CubeTo(cx+k, cy-rad, cx+rad, cy-k, cx+rad, cy)
	} else {
		r.CubeTo(cx+rad, cy-k, cx+k, cy-rad, cx, cy-rad)
		r.CubeTo(cx-k, cy-rad, cx-rad, cy-k, cx-rad, cy)
		r.CubeTo(cx-rad, cy+k, cx-k, cy+rad, cx, cy+rad)
		r.CubeTo(cx+k, cy+rad, cx+rad, cy+k, cx+rad, cy)
	}
	r.ClosePath()
}

// dumpDebug writes the actual and expected coverage side by side into
// the debug/ directory.
func dumpDebug(name string, got, want *image.Alpha) error {
	b := got.Bounds()
	w, h := b.Dx(), b.Dy()
	img := image.NewRGBA(image.Rect(0, 0, 2*w, h))
	for y := range h {
		for x := range w {
			g := got.AlphaAt(x, y).A
			e := want.AlphaAt(x, y).A
			img.Set(x, y, color.RGBA{R: g, G: g, B: g, A: 255})
			img.Set(x+w, y, color.RGBA{R: e, G: e, B: e, A: 255})
		}
	}

	if err := os.MkdirAll("debug", 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join("debug", name+".png"))
	if err != nil {
		return err
	}
	err = png.Encode(f, img)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// BenchmarkFillRing measures steady-state filling with a reused rasterizer.
func BenchmarkFillRing(b *testing.B) {
	for _, size := range []int{20, 200, 2000} {
		b.Run(fmt.Sprintf("%dx%d", size, size), func(b *testing.B) {
			c := float64(size) / 2
			ring := &path.Data{}
			appendCircle(ring, c, c, float64(size)*0.45)
			appendCircle(ring, c, c, float64(size)*0.30)

			clip := rect.Rect{URx: float64(size), URy: float64(size)}
			r := NewRasterizer(clip)
			dst := image.NewAlpha(image.Rect(0, 0, size, size))

			b.ReportAllocs()
			for b.Loop() {
				r.Reset(clip)
				r.Fill(ring, EvenOdd, func(y, xMin int, coverage []float32) {
					row := dst.Pix[y*dst.Stride+xMin:]
					for i, cov := range coverage {
						row[i] = uint8(cov * 255)
					}
				})
			}
		})
	}
}
