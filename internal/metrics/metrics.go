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

// Package metrics exports prometheus metrics for vectorization runs and the
// HTTP server.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"seehuhn.de/go/patchtrace"
	"seehuhn.de/go/patchtrace/raster"
)

var (
	// Vectorization metrics
	vectorizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patchtrace_vectorizations_total",
			Help: "Total number of vectorization runs, by strategy or failure reason",
		},
		[]string{"outcome"},
	)

	vectorizationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "patchtrace_vectorization_duration_seconds",
			Help:    "Vectorization latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"},
	)

	layersProduced = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "patchtrace_layers",
			Help:    "Number of layers per vectorized document",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 12, 16},
		},
	)

	fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patchtrace_fallbacks_total",
			Help: "Total number of strategy fallbacks",
		},
		[]string{"from", "to"},
	)

	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patchtrace_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "patchtrace_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "patchtrace_http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: []float64{1000, 10000, 100000, 1000000, 10000000, 50000000},
		},
		[]string{"method", "path"},
	)
)

// Outcome labels for failed runs.
const (
	OutcomeDecodeError = "decode_error"
	OutcomeExhausted   = "exhausted"
	OutcomeError       = "error"
)

// Observer records pipeline outcomes. It implements patchtrace.Observer.
type Observer struct{}

var _ patchtrace.Observer = Observer{}

// Fallback implements patchtrace.Observer.
func (Observer) Fallback(from, to patchtrace.Strategy, _ error) {
	fallbacksTotal.WithLabelValues(string(from), string(to)).Inc()
}

// Done implements patchtrace.Observer.
func (Observer) Done(strategy patchtrace.Strategy, layers int, elapsed time.Duration, err error) {
	outcome := string(strategy)
	if err != nil {
		outcome = Outcome(err)
	} else {
		layersProduced.Observe(float64(layers))
	}
	vectorizationsTotal.WithLabelValues(outcome).Inc()
	vectorizationDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Outcome classifies a pipeline error.
func Outcome(err error) string {
	var de *raster.DecodeError
	var ve *patchtrace.VectorizationError
	switch {
	case errors.As(err, &de):
		return OutcomeDecodeError
	case errors.As(err, &ve):
		return OutcomeExhausted
	default:
		return OutcomeError
	}
}

// GinMiddleware records request counts, latencies and sizes.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if c.Request.ContentLength > 0 {
			httpRequestSize.WithLabelValues(method, path).Observe(float64(c.Request.ContentLength))
		}
	}
}

// Handler serves the metrics of the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
