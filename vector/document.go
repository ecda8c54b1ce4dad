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

// Package vector contains the layered vector documents produced by the
// tracer, and their SVG encoding.
//
// Layers are listed in stitching order: embroidery digitizers process the
// groups of an SVG file top to bottom, so the order of Document.Layers is
// part of the output contract.
package vector

import (
	"fmt"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// Layer is one self-contained group of outlines, intended to map to one
// thread color or stitch pass.
type Layer struct {
	// ID is a stable identifier, derived from the layer position.
	ID string

	// Color is the fill color as "#rrggbb".
	Color string

	// Index is the posterization level or dominant color rank the layer
	// was traced from.
	Index int

	// Path holds the outlines in image coordinates (y grows downwards).
	// Holes run in the opposite direction of the outline they cut into.
	Path *path.Data
}

// IsEmpty reports whether the layer has no drawing commands.
func (l *Layer) IsEmpty() bool {
	return l.Path == nil || len(l.Path.Cmds) == 0
}

// Subpaths returns the number of closed outlines in the layer.
func (l *Layer) Subpaths() int {
	if l.Path == nil {
		return 0
	}
	n := 0
	for _, cmd := range l.Path.Cmds {
		if cmd == path.CmdMoveTo {
			n++
		}
	}
	return n
}

// Document is an ordered list of layers with the size of the traced image.
type Document struct {
	Width  int
	Height int
	Layers []Layer
}

// NewDocument returns a document with the given layers. Layer IDs are
// assigned from the layer positions.
func NewDocument(width, height int, layers []Layer) *Document {
	doc := &Document{Width: width, Height: height, Layers: layers}
	for i := range doc.Layers {
		doc.Layers[i].ID = LayerID(i)
	}
	return doc
}

// LayerID returns the identifier of the layer at position i.
func LayerID(i int) string {
	return fmt.Sprintf("layer-%d", i+1)
}

// ViewBox returns the document area.
func (d *Document) ViewBox() rect.Rect {
	return rect.Rect{URx: float64(d.Width), URy: float64(d.Height)}
}

// Colors returns the layer colors in layer order.
func (d *Document) Colors() []string {
	res := make([]string, len(d.Layers))
	for i, l := range d.Layers {
		res[i] = l.Color
	}
	return res
}

// Builder appends outlines to a path. All outlines must be closed.
type Builder struct {
	p *path.Data
}

// NewBuilder returns a Builder for an empty path.
func NewBuilder() *Builder {
	return &Builder{p: &path.Data{}}
}

// MoveTo starts a new outline.
func (b *Builder) MoveTo(p vec.Vec2) {
	b.p.MoveTo(p)
}

// LineTo adds a straight segment.
func (b *Builder) LineTo(p vec.Vec2) {
	b.p.LineTo(p)
}

// CubeTo adds a cubic Bézier segment with control points c1, c2.
func (b *Builder) CubeTo(c1, c2, p vec.Vec2) {
	b.p.Cmds = append(b.p.Cmds, path.CmdCubeTo)
	b.p.Coords = append(b.p.Coords, c1, c2, p)
}

// Close closes the current outline.
func (b *Builder) Close() {
	b.p.Close()
}

// Path returns the path built so far.
func (b *Builder) Path() *path.Data {
	return b.p
}
