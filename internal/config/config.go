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

// Package config loads the settings of the patchtrace command and server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"seehuhn.de/go/patchtrace"
	"seehuhn.de/go/patchtrace/trace"
)

// Config holds all settings.
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Storage   StorageConfig
	Vectorize patchtrace.Options
}

// AppConfig identifies the deployment.
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig selects the log output.
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodySize     int64
}

// StorageConfig selects the object store holding uploaded artwork.
type StorageConfig struct {
	Backend      string // none, minio, s3
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	ResultPrefix string
}

// Load reads the configuration.
//
// Priority (highest to lowest):
// 1. Environment variables with PATCHTRACE_ prefix (e.g. PATCHTRACE_VECTORIZE_LEVELS)
// 2. the given file, or patchtrace.toml in . or /etc/patchtrace
// 3. Built-in defaults
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("patchtrace")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/patchtrace")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("PATCHTRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	tp, err := trace.ParseTurnPolicy(v.GetString("vectorize.turn_policy"))
	if err != nil {
		return nil, fmt.Errorf("vectorize.turn_policy: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			Addr:            v.GetString("http.addr"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
		},
		Storage: StorageConfig{
			Backend:      v.GetString("storage.backend"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			ResultPrefix: v.GetString("storage.result_prefix"),
		},
		Vectorize: patchtrace.Options{
			Levels:                 v.GetInt("vectorize.levels"),
			Threshold:              v.GetInt("vectorize.threshold"),
			TurnPolicy:             tp,
			MinFeatureSize:         v.GetInt("vectorize.min_feature_size"),
			CurveOptimization:      v.GetBool("vectorize.curve_optimization"),
			OptimizationTolerance:  v.GetFloat64("vectorize.optimization_tolerance"),
			AlphaMax:               v.GetFloat64("vectorize.alpha_max"),
			ColorCount:             v.GetInt("vectorize.color_count"),
			ColorDistanceThreshold: v.GetFloat64("vectorize.color_distance_threshold"),
			MaxDimension:           v.GetInt("vectorize.max_dimension"),
			MaxPixels:              v.GetInt("vectorize.max_pixels"),
			BucketSize:             v.GetInt("vectorize.bucket_size"),
			MinColorLayers:         v.GetInt("vectorize.min_color_layers"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers the defaults of all settings whose zero value is
// meaningful, so that they can be overridden by the environment.
func setDefaults(v *viper.Viper) {
	opts := patchtrace.DefaultOptions()
	v.SetDefault("vectorize.levels", opts.Levels)
	v.SetDefault("vectorize.threshold", opts.Threshold)
	v.SetDefault("vectorize.turn_policy", opts.TurnPolicy.String())
	v.SetDefault("vectorize.min_feature_size", opts.MinFeatureSize)
	v.SetDefault("vectorize.curve_optimization", opts.CurveOptimization)
	v.SetDefault("vectorize.optimization_tolerance", opts.OptimizationTolerance)
	v.SetDefault("vectorize.alpha_max", opts.AlphaMax)
	v.SetDefault("vectorize.color_count", opts.ColorCount)
	v.SetDefault("vectorize.color_distance_threshold", opts.ColorDistanceThreshold)
	v.SetDefault("vectorize.max_dimension", opts.MaxDimension)
	v.SetDefault("vectorize.max_pixels", opts.MaxPixels)
	v.SetDefault("vectorize.bucket_size", opts.BucketSize)
	v.SetDefault("vectorize.min_color_layers", opts.MinColorLayers)
	v.SetDefault("storage.use_ssl", true)
}

// applyDefaults fills in empty settings.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "patchtrace"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 20 << 20
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "none"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.ResultPrefix == "" {
		cfg.Storage.ResultPrefix = "vectors/"
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "none":
	case "minio", "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the %s backend", c.Storage.Backend)
		}
		if c.Storage.Backend == "minio" && c.Storage.Endpoint == "" {
			return errors.New("storage.endpoint is required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.HTTP.MaxBodySize < 0 {
		return errors.New("http.max_body_size cannot be negative")
	}
	if err := c.Vectorize.Validate(); err != nil {
		return fmt.Errorf("vectorize: %w", err)
	}
	return nil
}
