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

// Bitmap is a binary mask. Pixel (x, y) is set if Bits[y*Width+x] is true.
// Coordinates follow the image convention: y grows downwards.
type Bitmap struct {
	Width  int
	Height int
	Bits   []bool
}

// NewBitmap allocates an empty mask.
func NewBitmap(width, height int) *Bitmap {
	return &Bitmap{
		Width:  width,
		Height: height,
		Bits:   make([]bool, width*height),
	}
}

// Threshold returns the mask of all pixels whose luminance is strictly
// below t.
func Threshold(img *Image, t int) *Bitmap {
	bm := NewBitmap(img.Width, img.Height)
	for y := range img.Height {
		for x := range img.Width {
			bm.Bits[y*img.Width+x] = int(img.Luma(x, y)) < t
		}
	}
	return bm
}

// Get reports whether (x, y) is set. Pixels outside the mask are unset.
func (bm *Bitmap) Get(x, y int) bool {
	if x < 0 || y < 0 || x >= bm.Width || y >= bm.Height {
		return false
	}
	return bm.Bits[y*bm.Width+x]
}

// Set sets or clears the pixel at (x, y).
func (bm *Bitmap) Set(x, y int, v bool) {
	bm.Bits[y*bm.Width+x] = v
}

// Count returns the number of set pixels.
func (bm *Bitmap) Count() int {
	n := 0
	for _, b := range bm.Bits {
		if b {
			n++
		}
	}
	return n
}

// IsEmpty reports whether no pixel is set.
func (bm *Bitmap) IsEmpty() bool {
	for _, b := range bm.Bits {
		if b {
			return false
		}
	}
	return true
}

// IsFull reports whether every pixel is set.
func (bm *Bitmap) IsFull() bool {
	for _, b := range bm.Bits {
		if !b {
			return false
		}
	}
	return true
}

// Equal reports whether both masks have the same size and pixels.
func (bm *Bitmap) Equal(other *Bitmap) bool {
	if bm.Width != other.Width || bm.Height != other.Height {
		return false
	}
	for i, b := range bm.Bits {
		if b != other.Bits[i] {
			return false
		}
	}
	return true
}

// IoU returns the intersection over union of two masks of equal size.
// Two empty masks have IoU 1.
func IoU(a, b *Bitmap) float64 {
	inter, union := 0, 0
	for i, x := range a.Bits {
		y := b.Bits[i]
		if x && y {
			inter++
		}
		if x || y {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}
