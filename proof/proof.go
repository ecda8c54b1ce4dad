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

// Package proof writes PDF proof sheets of vector documents, for review by
// embroidery digitizers.
//
// The sheet shows the artwork centered on an A4 page, framed by a thin
// rectangle, with one swatch per layer below it in stitching order. Layers
// and swatches are painted in DeviceRGB with their thread color.
package proof

import (
	"errors"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/graphics/color"

	"seehuhn.de/go/patchtrace/preview"
	"seehuhn.de/go/patchtrace/vector"
)

// Page geometry in PDF points.
const (
	pageWidth  = 595
	pageHeight = 842
	margin     = 48
	swatchSize = 24
	swatchGap  = 8
)

// WriteFile writes a single page proof sheet for doc to fname.
func WriteFile(fname string, doc *vector.Document) error {
	if doc == nil || doc.Width <= 0 || doc.Height <= 0 {
		return errors.New("empty document")
	}
	threads, err := threadColors(doc)
	if err != nil {
		return err
	}

	paper := &pdf.Rectangle{URx: pageWidth, URy: pageHeight}
	page, err := document.CreateSinglePage(fname, paper, pdf.V1_7, nil)
	if err != nil {
		return err
	}

	// artwork box, leaving room for the swatches at the bottom
	boxW := float64(pageWidth - 2*margin)
	boxH := float64(pageHeight - 2*margin - swatchSize - 2*swatchGap)
	s := math.Min(boxW/float64(doc.Width), boxH/float64(doc.Height))
	w, h := s*float64(doc.Width), s*float64(doc.Height)
	x0 := (pageWidth - w) / 2
	y0 := float64(margin+swatchSize+2*swatchGap) + (boxH-h)/2

	page.SetStrokeColor(color.DeviceGray(0.5))
	page.SetLineWidth(0.5)
	page.Rectangle(x0, y0, w, h)
	page.Stroke()

	for i, c := range threads {
		x := float64(margin) + float64(i)*(swatchSize+swatchGap)
		if x+swatchSize > pageWidth-margin {
			break
		}
		page.SetFillColor(c)
		page.Rectangle(x, margin, swatchSize, swatchSize)
		page.Fill()
	}

	// image coordinates have y pointing down
	page.Transform(matrix.Matrix{s, 0, 0, -s, x0, y0 + h})
	for i, l := range doc.Layers {
		if l.IsEmpty() {
			continue
		}
		page.SetFillColor(threads[i])
		drawPath(page, l.Path)
		page.FillEvenOdd()
	}

	return page.Close()
}

// threadColors returns the fill color of every layer.
func threadColors(doc *vector.Document) ([]color.Color, error) {
	res := make([]color.Color, len(doc.Layers))
	for i, l := range doc.Layers {
		c, err := preview.ParseHex(l.Color)
		if err != nil {
			return nil, err
		}
		res[i] = color.DeviceRGB(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
	}
	return res, nil
}

// pathBuilder is the part of the page API used to construct paths.
type pathBuilder interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	CurveTo(x1, y1, x2, y2, x3, y3 float64)
	ClosePath()
}

func drawPath(page pathBuilder, p *path.Data) {
	for cmd, pts := range p.Iter().ToCubic() {
		switch cmd {
		case path.CmdMoveTo:
			page.MoveTo(pts[0].X, pts[0].Y)
		case path.CmdLineTo:
			page.LineTo(pts[0].X, pts[0].Y)
		case path.CmdCubeTo:
			page.CurveTo(pts[0].X, pts[0].Y, pts[1].X, pts[1].Y, pts[2].X, pts[2].Y)
		case path.CmdClose:
			page.ClosePath()
		}
	}
}
