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

// Package raster holds the pixel side of the vectorizer: decoded images,
// the preprocessing applied before tracing, binary masks, and an
// anti-aliased rasterizer which turns vector paths back into pixel coverage.
package raster

import (
	"fmt"
	"image"
	"image/color"
)

// Image is an 8-bit raster image with interleaved samples.
//
// Channels is 3 for RGB images and 1 for grayscale images. An Image is never
// modified after it has been constructed; all transformations in this package
// return a new Image.
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte // len = Width * Height * Channels, row-major
}

// NewImage allocates a black image of the given size.
func NewImage(width, height, channels int) *Image {
	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]byte, width*height*channels),
	}
}

// NewRGB returns a 3-channel image filled with the given color.
func NewRGB(width, height int, r, g, b uint8) *Image {
	img := NewImage(width, height, 3)
	for i := 0; i < len(img.Pix); i += 3 {
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
	}
	return img
}

// NewGray returns a single-channel image filled with the given value.
func NewGray(width, height int, v uint8) *Image {
	img := NewImage(width, height, 1)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// IsGray reports whether the image has a single channel.
func (img *Image) IsGray() bool {
	return img.Channels == 1
}

// RGB returns the color of the pixel at (x, y).
// For grayscale images all three components are equal.
func (img *Image) RGB(x, y int) (r, g, b uint8) {
	i := (y*img.Width + x) * img.Channels
	if img.Channels == 1 {
		v := img.Pix[i]
		return v, v, v
	}
	return img.Pix[i], img.Pix[i+1], img.Pix[i+2]
}

// Luma returns the Rec. 601 luminance of the pixel at (x, y).
func (img *Image) Luma(x, y int) uint8 {
	if img.Channels == 1 {
		return img.Pix[y*img.Width+x]
	}
	r, g, b := img.RGB(x, y)
	return luma(r, g, b)
}

// luma uses the integer Rec. 601 weights (299, 587, 114).
func luma(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}

// Set sets the pixel at (x, y). For grayscale images the luminance of
// (r, g, b) is stored. Set is meant for code which builds a new image;
// images handed to other code must not be changed.
func (img *Image) Set(x, y int, r, g, b uint8) {
	i := (y*img.Width + x) * img.Channels
	if img.Channels == 1 {
		img.Pix[i] = luma(r, g, b)
		return
	}
	img.Pix[i] = r
	img.Pix[i+1] = g
	img.Pix[i+2] = b
}

// Gray returns a single-channel copy of the image.
// If the image is already grayscale, a copy of the samples is returned.
func (img *Image) Gray() *Image {
	out := NewImage(img.Width, img.Height, 1)
	if img.Channels == 1 {
		copy(out.Pix, img.Pix)
		return out
	}
	for i, j := 0, 0; j < len(out.Pix); i, j = i+3, j+1 {
		out.Pix[j] = luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
	}
	return out
}

// ToImage converts img into a standard library image, for encoding.
func (img *Image) ToImage() image.Image {
	rect := image.Rect(0, 0, img.Width, img.Height)
	if img.Channels == 1 {
		g := image.NewGray(rect)
		for y := range img.Height {
			copy(g.Pix[y*g.Stride:y*g.Stride+img.Width], img.Pix[y*img.Width:])
		}
		return g
	}
	rgba := image.NewRGBA(rect)
	for y := range img.Height {
		for x := range img.Width {
			r, g, b := img.RGB(x, y)
			rgba.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return rgba
}

// FromImage converts a decoded standard library image into an RGB Image.
// Translucent pixels are composited onto a white background.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	out := NewImage(b.Dx(), b.Dy(), 3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBA64Model.Convert(src.At(x, y)).(color.NRGBA64)
			a := uint32(c.A)
			// out = c*a + white*(1-a), all in 16 bit
			r := (uint32(c.R)*a + 0xffff*(0xffff-a)) / 0xffff
			g := (uint32(c.G)*a + 0xffff*(0xffff-a)) / 0xffff
			bl := (uint32(c.B)*a + 0xffff*(0xffff-a)) / 0xffff
			out.Set(x-b.Min.X, y-b.Min.Y, uint8(r>>8), uint8(g>>8), uint8(bl>>8))
		}
	}
	return out
}

func (img *Image) String() string {
	return fmt.Sprintf("%dx%dx%d", img.Width, img.Height, img.Channels)
}
