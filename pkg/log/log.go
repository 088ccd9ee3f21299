// Copyright 2024 The Corda Network Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides structured logging on top of zap. All logging calls
// take a message and an alternating list of key/value context pairs.
package log

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger describes the logger interface.
type Logger interface {
	// New returns a child logger with the given context attached to every entry.
	New(ctx ...interface{}) Logger
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
}

// Config configures the process-wide logger.
type Config struct {
	// Console is the configuration for the console logging.
	Console ConsoleConfig `toml:"console,omitempty"`
}

// InitDefaults populates unset fields in cfg to their default values.
func (c *Config) InitDefaults() {
	c.Console.InitDefaults()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return c.Console.Validate()
}

// ConsoleConfig configures the log output to stderr.
type ConsoleConfig struct {
	// Level of console logging (defaults to info).
	Level string `toml:"level,omitempty"`
	// Format of the console logging (human|json).
	Format string `toml:"format,omitempty"`
}

// InitDefaults populates unset fields in cfg to their default values.
func (c *ConsoleConfig) InitDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "human"
	}
}

// Validate validates the configuration.
func (c *ConsoleConfig) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("unknown log level: %s", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "human", "json":
		return nil
	default:
		return fmt.Errorf("unknown log format: %s", c.Format)
	}
}

var (
	mu   sync.RWMutex
	root Logger = &logger{logger: zap.NewNop()}
)

// Setup configures the process-wide root logger. It must be called before
// the first logging statement to take effect.
func Setup(cfg Config) error {
	cfg.InitDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	lvl, err := zapcore.ParseLevel(cfg.Console.Level)
	if err != nil {
		return err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.DisableCaller = true
	zc.Sampling = nil
	zc.OutputPaths = []string{"stderr"}
	if strings.ToLower(cfg.Console.Format) == "human" {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	l, err := zc.Build()
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	root = &logger{logger: l}
	return nil
}

// Root returns the root logger. It never returns nil.
func Root() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// New returns a logger derived from the root logger with the given context.
func New(ctx ...interface{}) Logger {
	return Root().New(ctx...)
}

// Discard replaces the root logger with one that discards all entries. This
// is useful for tests.
func Discard() {
	mu.Lock()
	defer mu.Unlock()
	root = &logger{logger: zap.NewNop()}
}

// HandlePanic catches panics and logs them before exiting the process.
// It should be deferred at the top of every spawned goroutine.
func HandlePanic() {
	if msg := recover(); msg != nil {
		Root().Error("Panic", "msg", msg, "stack", string(debug.Stack()))
		os.Exit(255)
	}
}

type logger struct {
	logger *zap.Logger
}

func (l *logger) New(ctx ...interface{}) Logger {
	return &logger{logger: l.logger.With(fields(ctx)...)}
}

func (l *logger) Debug(msg string, ctx ...interface{}) {
	l.logger.Debug(msg, fields(ctx)...)
}

func (l *logger) Info(msg string, ctx ...interface{}) {
	l.logger.Info(msg, fields(ctx)...)
}

func (l *logger) Error(msg string, ctx ...interface{}) {
	l.logger.Error(msg, fields(ctx)...)
}

func fields(ctx []interface{}) []zap.Field {
	fs := make([]zap.Field, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		fs = append(fs, zap.Any(fmt.Sprint(ctx[i]), ctx[i+1]))
	}
	return fs
}
