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

package proof

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seehuhn.de/go/pdf/graphics/color"

	"seehuhn.de/go/patchtrace/internal/logos"
	"seehuhn.de/go/patchtrace/raster"
	"seehuhn.de/go/patchtrace/trace"
	"seehuhn.de/go/patchtrace/vector"
)

func TestWriteFile(t *testing.T) {
	img := logos.TwoTone(120, 80)
	pd, err := trace.Outliner{}.Bitmap(raster.Threshold(img, 128), trace.DefaultParams())
	require.NoError(t, err)
	doc := vector.NewDocument(120, 80, []vector.Layer{
		{Color: "#c0c0c0", Path: pd},
		{Color: "#000000", Path: pd},
	})

	fname := filepath.Join(t.TempDir(), "proof.pdf")
	require.NoError(t, WriteFile(fname, doc))

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestThreadColors(t *testing.T) {
	// red and a blue-green of nearly the same luminance
	doc := vector.NewDocument(10, 10, []vector.Layer{
		{Color: "#ff0000"},
		{Color: "#00539a"},
		{Color: "#ffffff"},
	})
	cols, err := threadColors(doc)
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, color.DeviceRGB(1, 0, 0), cols[0])
	assert.Equal(t, color.DeviceRGB(0, float64(0x53)/255, float64(0x9a)/255), cols[1])
	assert.Equal(t, color.DeviceRGB(1, 1, 1), cols[2])
	assert.NotEqual(t, cols[0], cols[1])
}

func TestInvalidDocument(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, WriteFile(filepath.Join(dir, "a.pdf"), nil))

	bad := vector.NewDocument(10, 10, []vector.Layer{{Color: "blue"}})
	assert.Error(t, WriteFile(filepath.Join(dir, "b.pdf"), bad))
}
