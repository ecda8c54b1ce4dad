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

package patchtrace

import "fmt"

// VectorizationError is returned when both the posterized trace and the
// simple fallback trace have failed.
type VectorizationError struct {
	Posterized error
	Simple     error
}

func (e *VectorizationError) Error() string {
	return fmt.Sprintf("vectorization failed: posterized: %v; simple: %v", e.Posterized, e.Simple)
}

// Unwrap returns the causes of both failed attempts.
func (e *VectorizationError) Unwrap() []error {
	var res []error
	if e.Posterized != nil {
		res = append(res, e.Posterized)
	}
	if e.Simple != nil {
		res = append(res, e.Simple)
	}
	return res
}
