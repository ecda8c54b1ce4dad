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

// Package quantize finds the dominant colors of an image by bucketed
// averaging.
package quantize

import (
	"fmt"
	"math"
	"slices"

	"seehuhn.de/go/patchtrace/raster"
)

// DefaultBucketSize is the default channel granularity.
const DefaultBucketSize = 64

// ColorSample is a color quantized to the bucket grid. Two pixels belong to
// the same bucket if and only if their samples are equal.
type ColorSample struct {
	R, G, B uint8
}

// Hex returns the sample as "#rrggbb".
func (s ColorSample) Hex() string {
	return Hex(s.R, s.G, s.B)
}

// DominantColor is a bucket together with the number of pixels in it.
type DominantColor struct {
	R, G, B uint8
	Hex     string

	// Count is the number of pixels which fell into the bucket.
	Count int

	// Mean is the average raw color of these pixels.
	Mean [3]uint8
}

// Centroid returns the color used as the center of the bucket when
// matching pixels against it: the mean of the bucket members, or the bucket
// color itself if no members were counted.
func (c DominantColor) Centroid() [3]uint8 {
	if c.Count > 0 {
		return c.Mean
	}
	return [3]uint8{c.R, c.G, c.B}
}

// Hex formats a color as "#rrggbb".
func Hex(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// Quantize rounds v to the nearest multiple of bucketSize, clamped to 255.
func Quantize(v uint8, bucketSize int) uint8 {
	q := int(math.Round(float64(v)/float64(bucketSize))) * bucketSize
	return uint8(min(q, 255))
}

type bucket struct {
	key        ColorSample
	count      int
	sr, sg, sb int
}

// ExtractDominantColors returns at most count dominant colors of img,
// most frequent first. Buckets with equal frequency keep the order in which
// they were first encountered, scanning the image row by row.
//
// If the image has fewer distinct buckets than count, all of them are
// returned. A bucketSize of zero or less selects DefaultBucketSize.
func ExtractDominantColors(img *raster.Image, count, bucketSize int) []DominantColor {
	if count <= 0 {
		return nil
	}
	if bucketSize <= 0 {
		bucketSize = DefaultBucketSize
	}

	index := make(map[ColorSample]int)
	var buckets []bucket
	for y := range img.Height {
		for x := range img.Width {
			r, g, b := img.RGB(x, y)
			key := ColorSample{
				R: Quantize(r, bucketSize),
				G: Quantize(g, bucketSize),
				B: Quantize(b, bucketSize),
			}
			i, ok := index[key]
			if !ok {
				i = len(buckets)
				index[key] = i
				buckets = append(buckets, bucket{key: key})
			}
			bk := &buckets[i]
			bk.count++
			bk.sr += int(r)
			bk.sg += int(g)
			bk.sb += int(b)
		}
	}

	slices.SortStableFunc(buckets, func(a, b bucket) int {
		return b.count - a.count
	})

	n := min(count, len(buckets))
	res := make([]DominantColor, n)
	for i, bk := range buckets[:n] {
		res[i] = DominantColor{
			R:     bk.key.R,
			G:     bk.key.G,
			B:     bk.key.B,
			Hex:   bk.key.Hex(),
			Count: bk.count,
			Mean: [3]uint8{
				uint8((bk.sr + bk.count/2) / bk.count),
				uint8((bk.sg + bk.count/2) / bk.count),
				uint8((bk.sb + bk.count/2) / bk.count),
			},
		}
	}
	return res
}

// Hexes returns the hex strings of the given colors.
func Hexes(colors []DominantColor) []string {
	res := make([]string, len(colors))
	for i, c := range colors {
		res[i] = c.Hex
	}
	return res
}
