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

// Package storage fetches uploaded artwork from object stores and stores
// the vectorized results next to it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"seehuhn.de/go/patchtrace/internal/config"
)

var (
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrTooLarge is returned when an object exceeds the size limit.
	ErrTooLarge = errors.New("object too large")
)

// ImageStore reads source images and writes results.
type ImageStore interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// New returns the store selected by cfg, or nil if the backend is "none".
// Objects larger than maxSize bytes are rejected.
func New(ctx context.Context, cfg *config.StorageConfig, maxSize int64, log *zap.Logger) (ImageStore, error) {
	switch cfg.Backend {
	case "none", "":
		return nil, nil
	case "minio":
		return NewMinioStore(cfg, maxSize, log)
	case "s3":
		return NewS3Store(ctx, cfg, maxSize, log)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// ResultKey returns the key under which the SVG for the image with the
// given key is stored. The result always lies below prefix.
func ResultKey(prefix, key string) string {
	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	base := path.Base(key)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return path.Join(prefix, path.Dir(key), base+".svg")
}

func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
