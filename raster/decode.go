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
	"bytes"
	"errors"
	"fmt"
	"image"

	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG

	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP
)

// ErrEmptyImage is wrapped by a DecodeError when the input decodes to an
// image without pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// ErrTooManyPixels is wrapped by a DecodeError when the image header
// announces more pixels than the decoder is allowed to allocate.
var ErrTooManyPixels = errors.New("image has too many pixels")

// DecodeError reports that the input bytes are not a usable raster image.
// Decoding failures are never retried.
type DecodeError struct {
	Format string // format reported by the decoder, if any
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("decode %s image: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode decodes PNG, JPEG, GIF, WebP, BMP or TIFF data into an RGB image.
// Transparency is flattened onto white. The image size is not limited.
func Decode(data []byte) (*Image, error) {
	return DecodeLimit(data, 0)
}

// DecodeLimit is like Decode, but rejects images with more than maxPixels
// pixels before the pixel data is decoded. A limit of 0 or less disables
// the check.
func DecodeLimit(data []byte, maxPixels int) (*Image, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: ErrEmptyImage}
	}
	if maxPixels > 0 {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, &DecodeError{Format: format, Err: err}
		}
		if cfg.Width <= 0 || cfg.Height <= 0 {
			return nil, &DecodeError{Format: format, Err: ErrEmptyImage}
		}
		if cfg.Width > maxPixels/cfg.Height {
			return nil, &DecodeError{
				Format: format,
				Err:    fmt.Errorf("%w: %dx%d exceeds %d", ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels),
			}
		}
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}
	if src.Bounds().Empty() {
		return nil, &DecodeError{Format: format, Err: ErrEmptyImage}
	}
	return FromImage(src), nil
}
