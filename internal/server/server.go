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

// Package server exposes the vectorization pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"seehuhn.de/go/patchtrace"
	"seehuhn.de/go/patchtrace/internal/config"
	"seehuhn.de/go/patchtrace/internal/logger"
	"seehuhn.de/go/patchtrace/internal/metrics"
	"seehuhn.de/go/patchtrace/internal/storage"
	"seehuhn.de/go/patchtrace/raster"
)

const svgContentType = "image/svg+xml"

// Server handles vectorization requests.
type Server struct {
	cfg    *config.Config
	store  storage.ImageStore
	log    *zap.Logger
	engine *gin.Engine
}

// VectorizeRequest is the JSON form of a vectorization request. The image
// is read from the object store.
type VectorizeRequest struct {
	Key     string          `json:"key" binding:"required"`
	Colors  bool            `json:"colors"`
	Store   bool            `json:"store"`
	Options json.RawMessage `json:"options,omitempty"`
}

// VectorizeResponse is returned by POST /v1/vectorize.
type VectorizeResponse struct {
	*patchtrace.Result
	ResultKey string `json:"resultKey,omitempty"`
}

// New sets up the routes. The store may be nil, in which case only
// uploaded images can be vectorized.
func New(cfg *config.Config, store storage.ImageStore, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{cfg: cfg, store: store, log: log}

	r := gin.New()
	r.Use(logger.Recovery(log))
	r.Use(logger.GinMiddleware(log))
	r.Use(metrics.GinMiddleware())

	r.GET("/healthz", s.health)
	r.GET("/metrics", metrics.Handler())

	v1 := r.Group("/v1")
	v1.POST("/vectorize", s.vectorize)

	s.engine = r
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves requests until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.HTTP.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return <-errCh
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"storage": s.cfg.Storage.Backend,
	})
}

// vectorize accepts either a raw image body, with options in the query
// string, or a JSON VectorizeRequest naming an object in the store.
func (s *Server) vectorize(c *gin.Context) {
	log := logger.FromGin(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.HTTP.MaxBodySize)

	var (
		data    []byte
		colors  bool
		keep    bool
		key     string
		rawOpts []byte
		err     error
	)
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req VectorizeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, http.StatusBadRequest, err)
			return
		}
		if s.store == nil {
			s.fail(c, http.StatusNotImplemented, errors.New("no storage backend configured"))
			return
		}
		key, colors, keep, rawOpts = req.Key, req.Colors, req.Store, req.Options
		data, err = s.store.Fetch(c.Request.Context(), key)
		if err != nil {
			s.fail(c, storageStatus(err), err)
			return
		}
	} else {
		data, err = io.ReadAll(c.Request.Body)
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				s.fail(c, http.StatusRequestEntityTooLarge, err)
				return
			}
			s.fail(c, http.StatusBadRequest, err)
			return
		}
		colors, _ = strconv.ParseBool(c.Query("colors"))
	}

	opts, err := s.options(c, rawOpts)
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	p, err := patchtrace.New(opts,
		patchtrace.WithLogger(log),
		patchtrace.WithObserver(metrics.Observer{}))
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	var res *patchtrace.Result
	if colors {
		res, err = p.VectorizeColors(data)
	} else {
		res, err = p.Vectorize(data)
	}
	if err != nil {
		s.fail(c, pipelineStatus(err), err)
		return
	}

	resp := VectorizeResponse{Result: res}
	if keep && key != "" {
		resp.ResultKey = storage.ResultKey(s.cfg.Storage.ResultPrefix, key)
		err := s.store.Put(c.Request.Context(), resp.ResultKey, []byte(res.Document), svgContentType)
		if err != nil {
			s.fail(c, http.StatusBadGateway, err)
			return
		}
	}

	if c.Query("format") == "svg" {
		c.Data(http.StatusOK, svgContentType, []byte(res.Document))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// options merges the request options into the configured defaults. JSON
// options take precedence over query parameters. The configured image size
// limits cannot be raised by a request.
func (s *Server) options(c *gin.Context, raw []byte) (patchtrace.Options, error) {
	opts := s.cfg.Vectorize
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &opts); err != nil {
			return opts, fmt.Errorf("%w: %v", patchtrace.ErrInvalidOptions, err)
		}
	} else if err := queryOptions(c, &opts); err != nil {
		return opts, err
	}
	opts.MaxPixels = min(opts.MaxPixels, s.cfg.Vectorize.MaxPixels)
	opts.MaxDimension = min(opts.MaxDimension, s.cfg.Vectorize.MaxDimension)
	return opts, nil
}

// queryOptions reads the tracing options given as query parameters. The
// parameter names are the JSON field names of patchtrace.Options.
func queryOptions(c *gin.Context, opts *patchtrace.Options) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"levels", &opts.Levels},
		{"threshold", &opts.Threshold},
		{"minFeatureSize", &opts.MinFeatureSize},
		{"colorCount", &opts.ColorCount},
	}
	for _, q := range ints {
		if v := c.Query(q.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", patchtrace.ErrInvalidOptions, q.name, err)
			}
			*q.dst = n
		}
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"optimizationTolerance", &opts.OptimizationTolerance},
		{"alphaMax", &opts.AlphaMax},
		{"colorDistanceThreshold", &opts.ColorDistanceThreshold},
	}
	for _, q := range floats {
		if v := c.Query(q.name); v != "" {
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", patchtrace.ErrInvalidOptions, q.name, err)
			}
			*q.dst = x
		}
	}

	if v := c.Query("curveOptimization"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: curveOptimization: %v", patchtrace.ErrInvalidOptions, err)
		}
		opts.CurveOptimization = b
	}
	if v := c.Query("turnPolicy"); v != "" {
		if err := opts.TurnPolicy.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%w: %v", patchtrace.ErrInvalidOptions, err)
		}
	}
	return nil
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	msg := err.Error()
	var verr *patchtrace.VectorizationError
	if errors.As(err, &verr) {
		msg = "vectorization failed"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func pipelineStatus(err error) int {
	var de *raster.DecodeError
	var ve *patchtrace.VectorizationError
	switch {
	case errors.Is(err, patchtrace.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, raster.ErrTooManyPixels):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &de), errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func storageStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadGateway
	}
}
