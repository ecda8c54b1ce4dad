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

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"seehuhn.de/go/patchtrace"
	"seehuhn.de/go/patchtrace/internal/config"
	"seehuhn.de/go/patchtrace/internal/logos"
	"seehuhn.de/go/patchtrace/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Fetch(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *memStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{MaxBodySize: 1 << 20},
		Storage: config.StorageConfig{
			Backend:      "memory",
			ResultPrefix: "vectors/",
		},
		Vectorize: patchtrace.DefaultOptions(),
	}
}

func do(t *testing.T, s *Server, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var res map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return res
}

func TestHealth(t *testing.T) {
	s := New(testConfig(), nil, zaptest.NewLogger(t))
	w := do(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestUpload(t *testing.T) {
	s := New(testConfig(), nil, zaptest.NewLogger(t))
	data := logos.PNG(logos.TwoTone(64, 64))

	w := do(t, s, http.MethodPost, "/v1/vectorize", "image/png", data)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	assert.Equal(t, "posterized", res["strategy"])
	assert.True(t, strings.HasPrefix(res["document"].(string), "<?xml"))
	assert.NotContains(t, res, "colors")
	assert.NotContains(t, res, "resultKey")

	w = do(t, s, http.MethodPost, "/v1/vectorize?format=svg", "image/png", data)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<svg")
}

func TestUploadColors(t *testing.T) {
	s := New(testConfig(), nil, zaptest.NewLogger(t))
	data := logos.PNG(logos.ThreeRegions(90, 60))

	w := do(t, s, http.MethodPost, "/v1/vectorize?colors=true&colorCount=5", "image/png", data)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	assert.Equal(t, "composed", res["strategy"])
	assert.NotEmpty(t, res["colors"])
}

func TestErrors(t *testing.T) {
	s := New(testConfig(), nil, zaptest.NewLogger(t))
	data := logos.PNG(logos.TwoTone(32, 32))

	w := do(t, s, http.MethodPost, "/v1/vectorize", "image/png", []byte("not an image"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, s, http.MethodPost, "/v1/vectorize?levels=9", "image/png", data)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/v1/vectorize?turnPolicy=sideways", "image/png", data)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/v1/vectorize", "application/json", []byte(`{"key":"a.png"}`))
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	cfg := testConfig()
	cfg.HTTP.MaxBodySize = 16
	small := New(cfg, nil, zaptest.NewLogger(t))
	w = do(t, small, http.MethodPost, "/v1/vectorize", "image/png", data)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestFromStore(t *testing.T) {
	store := newMemStore()
	store.objects["uploads/logo.png"] = logos.PNG(logos.TwoTone(64, 64))
	s := New(testConfig(), store, zaptest.NewLogger(t))

	body := []byte(`{"key":"uploads/logo.png","store":true,"options":{"levels":3}}`)
	w := do(t, s, http.MethodPost, "/v1/vectorize", "application/json", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	assert.Equal(t, "vectors/uploads/logo.svg", res["resultKey"])
	assert.LessOrEqual(t, res["layerCount"].(float64), 3.0)

	stored, err := store.Fetch(context.Background(), "vectors/uploads/logo.svg")
	require.NoError(t, err)
	assert.Equal(t, res["document"], string(stored))
	assert.Equal(t, "image/svg+xml", store.types["vectors/uploads/logo.svg"])

	store.objects["../escape.png"] = store.objects["uploads/logo.png"]
	w = do(t, s, http.MethodPost, "/v1/vectorize", "application/json", []byte(`{"key":"../escape.png","store":true}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "vectors/escape.svg", decode(t, w)["resultKey"])
	assert.Contains(t, store.objects, "vectors/escape.svg")

	w = do(t, s, http.MethodPost, "/v1/vectorize", "application/json", []byte(`{"key":"missing.png"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/v1/vectorize", "application/json", []byte(`{"store":true}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/v1/vectorize", "application/json",
		[]byte(`{"key":"uploads/logo.png","options":{"levels":1}}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryOptions(t *testing.T) {
	s := New(testConfig(), nil, zaptest.NewLogger(t))
	data := logos.PNG(logos.TwoTone(32, 32))

	good := []string{
		"threshold=100&minFeatureSize=4",
		"curveOptimization=false&optimizationTolerance=0.5",
		"alphaMax=0",
		"colors=true&colorDistanceThreshold=60",
	}
	for _, q := range good {
		w := do(t, s, http.MethodPost, "/v1/vectorize?"+q, "image/png", data)
		assert.Equal(t, http.StatusOK, w.Code, "%s: %s", q, w.Body.String())
	}

	bad := []string{
		"threshold=300",
		"threshold=dark",
		"minFeatureSize=-1",
		"curveOptimization=maybe",
		"optimizationTolerance=x",
		"alphaMax=2",
		"colorDistanceThreshold=0",
	}
	for _, q := range bad {
		w := do(t, s, http.MethodPost, "/v1/vectorize?"+q, "image/png", data)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestPixelLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Vectorize.MaxPixels = 32 * 32
	store := newMemStore()
	store.objects["big.png"] = logos.PNG(logos.TwoTone(64, 64))
	s := New(cfg, store, zaptest.NewLogger(t))

	w := do(t, s, http.MethodPost, "/v1/vectorize", "image/png", logos.PNG(logos.TwoTone(32, 32)))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, s, http.MethodPost, "/v1/vectorize", "image/png", store.objects["big.png"])
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())

	// the limit cannot be raised by the request
	w = do(t, s, http.MethodPost, "/v1/vectorize", "application/json",
		[]byte(`{"key":"big.png","options":{"maxPixels":100000000}}`))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
}

func TestMetrics(t *testing.T) {
	s := New(testConfig(), nil, zaptest.NewLogger(t))
	do(t, s, http.MethodGet, "/healthz", "", nil)

	w := do(t, s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "patchtrace_http_requests_total")
}
