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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seehuhn.de/go/patchtrace"
	"seehuhn.de/go/patchtrace/trace"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "patchtrace", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "stderr", cfg.Log.Output)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, int64(20<<20), cfg.HTTP.MaxBodySize)
	assert.Equal(t, "none", cfg.Storage.Backend)
	assert.Equal(t, patchtrace.DefaultOptions(), cfg.Vectorize)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("PATCHTRACE_VECTORIZE_LEVELS", "3")
	t.Setenv("PATCHTRACE_VECTORIZE_TURN_POLICY", "majority")
	t.Setenv("PATCHTRACE_VECTORIZE_CURVE_OPTIMIZATION", "false")
	t.Setenv("PATCHTRACE_APP_ENV", "production")
	t.Setenv("PATCHTRACE_HTTP_ADDR", ":9999")
	t.Setenv("PATCHTRACE_VECTORIZE_MAX_PIXELS", "1000000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Vectorize.Levels)
	assert.Equal(t, trace.TurnMajority, cfg.Vectorize.TurnPolicy)
	assert.False(t, cfg.Vectorize.CurveOptimization)
	assert.Equal(t, 1000000, cfg.Vectorize.MaxPixels)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
}

func TestFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "patchtrace.toml")
	content := `
[vectorize]
threshold = 100
color_count = 6

[storage]
backend = "minio"
endpoint = "localhost:9000"
bucket = "artwork"
use_ssl = false
`
	require.NoError(t, os.WriteFile(fname, []byte(content), 0o644))

	cfg, err := Load(fname)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Vectorize.Threshold)
	assert.Equal(t, 6, cfg.Vectorize.ColorCount)
	assert.Equal(t, 4, cfg.Vectorize.Levels, "unset values keep their default")
	assert.Equal(t, "minio", cfg.Storage.Backend)
	assert.Equal(t, "artwork", cfg.Storage.Bucket)
	assert.False(t, cfg.Storage.UseSSL)
	assert.Equal(t, "vectors/", cfg.Storage.ResultPrefix)
}

func TestInvalid(t *testing.T) {
	t.Run("levels", func(t *testing.T) {
		t.Setenv("PATCHTRACE_VECTORIZE_LEVELS", "9")
		_, err := Load("")
		assert.ErrorIs(t, err, patchtrace.ErrInvalidOptions)
	})
	t.Run("turn policy", func(t *testing.T) {
		t.Setenv("PATCHTRACE_VECTORIZE_TURN_POLICY", "sideways")
		_, err := Load("")
		assert.Error(t, err)
	})
	t.Run("backend", func(t *testing.T) {
		t.Setenv("PATCHTRACE_STORAGE_BACKEND", "floppy")
		_, err := Load("")
		assert.Error(t, err)
	})
	t.Run("bucket", func(t *testing.T) {
		t.Setenv("PATCHTRACE_STORAGE_BACKEND", "s3")
		_, err := Load("")
		assert.Error(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})
}
