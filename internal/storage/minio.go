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

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"seehuhn.de/go/patchtrace/internal/config"
)

// MinioStore keeps images in a MinIO bucket.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	maxSize int64
	log     *zap.Logger
}

var _ ImageStore = (*MinioStore)(nil)

// NewMinioStore connects to the MinIO server given in cfg.
func NewMinioStore(cfg *config.StorageConfig, maxSize int64, log *zap.Logger) (*MinioStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, maxSize: maxSize, log: log}, nil
}

// Fetch implements ImageStore.
func (s *MinioStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, s.mapError(key, err)
	}
	if s.maxSize > 0 && info.Size > s.maxSize {
		return nil, ErrTooLarge
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(key, err)
	}
	defer obj.Close()

	data, err := readLimited(obj, s.maxSize)
	if err != nil {
		return nil, s.mapError(key, err)
	}
	s.log.Debug("fetched object", zap.String("bucket", s.bucket), zap.String("key", key), zap.Int("size", len(data)))
	return data, nil
}

// Put implements ImageStore.
func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *MinioStore) mapError(key string, err error) error {
	if errors.Is(err, ErrTooLarge) {
		return err
	}
	errResp := minio.ToErrorResponse(err)
	if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return fmt.Errorf("fetch %s: %w", key, err)
}
