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

package vector

import (
	"encoding/xml"
	"strconv"
	"strings"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// SVG returns the document as an SVG file.
//
// Each layer becomes a <g> element with the layer ID, fill color and a
// data-color attribute carrying the source hex color, so that digitizing
// software can match layers to thread colors. Layers without commands are
// written as empty groups.
func (d *Document) SVG() string {
	var sb strings.Builder
	sb.WriteString(xml.Header)
	sb.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" version="1.1"`)
	writeAttr(&sb, "width", strconv.Itoa(d.Width))
	writeAttr(&sb, "height", strconv.Itoa(d.Height))
	writeAttr(&sb, "viewBox", "0 0 "+strconv.Itoa(d.Width)+" "+strconv.Itoa(d.Height))
	sb.WriteString(">\n")

	for _, l := range d.Layers {
		sb.WriteString("  <g")
		writeAttr(&sb, "id", l.ID)
		writeAttr(&sb, "data-color", l.Color)
		writeAttr(&sb, "data-index", strconv.Itoa(l.Index))
		writeAttr(&sb, "fill", l.Color)
		writeAttr(&sb, "fill-rule", "evenodd")
		if l.IsEmpty() {
			sb.WriteString("/>\n")
			continue
		}
		sb.WriteString(">\n    <path")
		writeAttr(&sb, "d", PathData(l.Path))
		sb.WriteString("/>\n  </g>\n")
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

func writeAttr(sb *strings.Builder, name, value string) {
	sb.WriteByte(' ')
	sb.WriteString(name)
	sb.WriteString(`="`)
	_ = xml.EscapeText(sb, []byte(value))
	sb.WriteByte('"')
}

// PathData formats p as the value of an SVG "d" attribute, using absolute
// commands. Coordinates are rounded to three decimals.
func PathData(p *path.Data) string {
	var sb strings.Builder
	k := 0
	for _, cmd := range p.Cmds {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		switch cmd {
		case path.CmdMoveTo:
			sb.WriteByte('M')
			writePoints(&sb, p.Coords[k:k+1])
			k++
		case path.CmdLineTo:
			sb.WriteByte('L')
			writePoints(&sb, p.Coords[k:k+1])
			k++
		case path.CmdQuadTo:
			sb.WriteByte('Q')
			writePoints(&sb, p.Coords[k:k+2])
			k += 2
		case path.CmdCubeTo:
			sb.WriteByte('C')
			writePoints(&sb, p.Coords[k:k+3])
			k += 3
		case path.CmdClose:
			sb.WriteByte('Z')
		}
	}
	return sb.String()
}

func writePoints(sb *strings.Builder, pts []vec.Vec2) {
	for i, pt := range pts {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(formatCoord(pt.X))
		sb.WriteByte(',')
		sb.WriteString(formatCoord(pt.Y))
	}
}

func formatCoord(x float64) string {
	s := strconv.FormatFloat(x, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
