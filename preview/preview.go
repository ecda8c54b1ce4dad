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

// Package preview renders a vector document as it would look stitched onto
// a patch. The previews are shown to customers before they order.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/patchtrace/raster"
	"seehuhn.de/go/patchtrace/vector"
)

// Shape is the outline of the patch.
type Shape int

const (
	Round Shape = iota
	Rectangle
)

// ParseShape converts "round" or "rectangle" into a Shape.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(s) {
	case "round", "circle", "":
		return Round, nil
	case "rectangle", "rect", "square":
		return Rectangle, nil
	}
	return 0, fmt.Errorf("unknown patch shape %q", s)
}

// Options controls the preview.
type Options struct {
	// Size is the width of the preview in pixels. Rectangular patches take
	// the aspect ratio of the document.
	Size int

	Shape  Shape
	Fabric color.RGBA
	Border color.RGBA

	// BorderWidth is the width of the merrowed edge, as a fraction of Size.
	BorderWidth float64
}

// DefaultOptions returns a 512 pixel round patch on twill with a navy edge.
func DefaultOptions() Options {
	return Options{
		Size:        512,
		Shape:       Round,
		Fabric:      color.RGBA{R: 0xf2, G: 0xec, B: 0xde, A: 0xff},
		Border:      color.RGBA{R: 0x1f, G: 0x2a, B: 0x44, A: 0xff},
		BorderWidth: 0.04,
	}
}

// Render draws the patch. Pixels outside the patch are transparent.
func Render(doc *vector.Document, opts Options) (*image.RGBA, error) {
	if doc == nil || doc.Width <= 0 || doc.Height <= 0 {
		return nil, errors.New("empty document")
	}
	if opts.Size < 16 {
		return nil, fmt.Errorf("preview size %d too small", opts.Size)
	}
	colors := make([]color.RGBA, len(doc.Layers))
	for i, l := range doc.Layers {
		c, err := ParseHex(l.Color)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", l.ID, err)
		}
		colors[i] = c
	}

	w := float64(opts.Size)
	h := w
	if opts.Shape == Rectangle {
		h = math.Max(16, math.Round(w*float64(doc.Height)/float64(doc.Width)))
	}
	bw := math.Max(1, opts.BorderWidth*w)

	dst := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	r := raster.NewRasterizer(rect.Rect{URx: w, URy: h})

	var outer, inner, tack *path.Data
	var art rect.Rect // area available for the artwork
	switch opts.Shape {
	case Rectangle:
		outer = box(0.5, 0.5, w-0.5, h-0.5)
		inner = box(bw, bw, w-bw, h-bw)
		t := 1.25 * bw
		tack = box(t, t, w-t, h-t)
		pad := 1.5 * bw
		art = rect.Rect{LLx: pad, LLy: pad, URx: w - pad, URy: h - pad}
	default:
		c := vec.Vec2{X: w / 2, Y: h / 2}
		rad := w/2 - 0.5
		outer = circle(c, rad)
		inner = circle(c, rad-bw)
		tack = circle(c, rad-1.25*bw)
		half := (rad - 1.5*bw) / math.Sqrt2
		art = rect.Rect{LLx: c.X - half, LLy: c.Y - half, URx: c.X + half, URy: c.Y + half}
	}

	r.Paint(dst, outer, raster.NonZero, opts.Fabric)

	// scale the artwork into the available area, centered
	s := math.Min((art.URx-art.LLx)/float64(doc.Width), (art.URy-art.LLy)/float64(doc.Height))
	dx := art.LLx + ((art.URx-art.LLx)-s*float64(doc.Width))/2
	dy := art.LLy + ((art.URy-art.LLy)-s*float64(doc.Height))/2
	r.CTM = matrix.Matrix{s, 0, 0, s, dx, dy}
	for i, l := range doc.Layers {
		if l.IsEmpty() {
			continue
		}
		r.Paint(dst, l.Path, raster.EvenOdd, colors[i])
	}
	r.CTM = matrix.Identity

	ring := &path.Data{}
	ring.Cmds = append(append(ring.Cmds, outer.Cmds...), inner.Cmds...)
	ring.Coords = append(append(ring.Coords, outer.Coords...), inner.Coords...)
	r.Paint(dst, ring, raster.EvenOdd, opts.Border)
	thread := shade(opts.Border, 0.6)
	r.Paint(dst, r.StrokeOutline(stitches(outer, bw), raster.StrokeStyle{Width: 0.24 * bw}), raster.NonZero, thread)

	// running stitch which tacks the fabric to the backing
	running := raster.StrokeStyle{Width: math.Max(1, 0.1*bw), Dash: []float64{0.6 * bw, 0.4 * bw}}
	r.Paint(dst, r.StrokeOutline(tack, running), raster.NonZero, thread)

	return dst, nil
}

// WritePNG renders the patch and encodes it as PNG.
func WritePNG(w io.Writer, doc *vector.Document, opts Options) error {
	img, err := Render(doc, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// ParseHex parses a "#rrggbb" color.
func ParseHex(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func shade(c color.RGBA, f float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: c.A,
	}
}

func box(x0, y0, x1, y1 float64) *path.Data {
	return (&path.Data{}).
		MoveTo(vec.Vec2{X: x0, Y: y0}).
		LineTo(vec.Vec2{X: x1, Y: y0}).
		LineTo(vec.Vec2{X: x1, Y: y1}).
		LineTo(vec.Vec2{X: x0, Y: y1}).
		Close()
}

// kappa places the control points of a cubic quarter circle.
const kappa = 0.5522847498307936

func circle(c vec.Vec2, r float64) *path.Data {
	b := vector.NewBuilder()
	k := kappa * r
	b.MoveTo(vec.Vec2{X: c.X + r, Y: c.Y})
	b.CubeTo(vec.Vec2{X: c.X + r, Y: c.Y + k}, vec.Vec2{X: c.X + k, Y: c.Y + r}, vec.Vec2{X: c.X, Y: c.Y + r})
	b.CubeTo(vec.Vec2{X: c.X - k, Y: c.Y + r}, vec.Vec2{X: c.X - r, Y: c.Y + k}, vec.Vec2{X: c.X - r, Y: c.Y})
	b.CubeTo(vec.Vec2{X: c.X - r, Y: c.Y - k}, vec.Vec2{X: c.X - k, Y: c.Y - r}, vec.Vec2{X: c.X, Y: c.Y - r})
	b.CubeTo(vec.Vec2{X: c.X + k, Y: c.Y - r}, vec.Vec2{X: c.X + r, Y: c.Y - k}, vec.Vec2{X: c.X + r, Y: c.Y})
	b.Close()
	return b.Path()
}

// stitches returns the center lines of the slanted overlock stitches
// across the border, placed along the corner points of the outer edge.
func stitches(outer *path.Data, bw float64) *path.Data {
	pts := flatten(outer, bw*0.6)
	res := &path.Data{}
	n := len(pts)
	if n < 3 {
		return res
	}
	var centroid vec.Vec2
	for _, p := range pts {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Mul(1 / float64(n))

	for i, p := range pts {
		next := pts[(i+1)%n]
		along := unit(next.Sub(p))
		in := unit(centroid.Sub(p))
		if along == (vec.Vec2{}) || in == (vec.Vec2{}) {
			continue
		}
		q := p.Add(in.Mul(bw)).Add(along.Mul(bw * 0.35))
		res.MoveTo(p)
		res.LineTo(q)
	}
	return res
}

// flatten returns points along the first subpath of p, spaced roughly step
// apart.
func flatten(p *path.Data, step float64) []vec.Vec2 {
	var pts []vec.Vec2
	var cur vec.Vec2
	k := 0
	add := func(to vec.Vec2, at func(t float64) vec.Vec2) {
		n := max(1, int(math.Ceil(to.Sub(cur).Length()*1.6/step)))
		for i := 1; i <= n; i++ {
			pts = append(pts, at(float64(i)/float64(n)))
		}
		cur = to
	}
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			if len(pts) > 0 {
				return pts
			}
			cur = p.Coords[k]
			k++
		case path.CmdLineTo:
			a, to := cur, p.Coords[k]
			add(to, func(t float64) vec.Vec2 { return a.Add(to.Sub(a).Mul(t)) })
			k++
		case path.CmdCubeTo:
			a, c1, c2, to := cur, p.Coords[k], p.Coords[k+1], p.Coords[k+2]
			add(to, func(t float64) vec.Vec2 {
				s := 1 - t
				return a.Mul(s * s * s).Add(c1.Mul(3 * s * s * t)).Add(c2.Mul(3 * s * t * t)).Add(to.Mul(t * t * t))
			})
			k += 3
		case path.CmdQuadTo:
			k += 2
		}
	}
	return pts
}

func unit(v vec.Vec2) vec.Vec2 {
	l := v.Length()
	if l == 0 {
		return vec.Vec2{}
	}
	return v.Mul(1 / l)
}
