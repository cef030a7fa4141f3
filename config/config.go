// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads RetrievIO settings from RETRIEVIO_* environment
// variables and lays out the directories under the base directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/poiesic/retrievio/ai"
	"github.com/poiesic/retrievio/reembed"
)

// Directory and file names under the base directory.
const (
	DocumentsDir = "documents"
	ProcessedDir = "processed"
	LogsDir      = "logs"
	VectorDBDir  = "vectordb"
	LogFileName  = "retrievio.log"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every RetrievIO setting.
type Config struct {
	BaseDir  string `env:"RETRIEVIO_BASE_DIR" envDefault:"~/.retrievio"`
	LogLevel string `env:"RETRIEVIO_LOG_LEVEL" envDefault:"info"`

	ChunkSize    int `env:"RETRIEVIO_CHUNK_SIZE" envDefault:"1000"`
	ChunkOverlap int `env:"RETRIEVIO_CHUNK_OVERLAP" envDefault:"200"`

	// PoolSize bounds concurrent calls to the AI backend and storage.
	// Zero means half the CPUs.
	PoolSize   int `env:"RETRIEVIO_POOL_SIZE"`
	MaxRetries int `env:"RETRIEVIO_MAX_RETRIES" envDefault:"1"`

	SettleDelay  time.Duration `env:"RETRIEVIO_SETTLE_DELAY" envDefault:"500ms"`
	TickInterval time.Duration `env:"RETRIEVIO_TICK_INTERVAL" envDefault:"100ms"`

	EmbeddingHost  string `env:"RETRIEVIO_EMBEDDING_HOST" envDefault:"http://localhost:11434/v1"`
	ChatHost       string `env:"RETRIEVIO_CHAT_HOST" envDefault:"http://localhost:11434/v1"`
	EmbeddingModel string `env:"RETRIEVIO_EMBEDDING_MODEL" envDefault:"embeddinggemma"`
	ChatModel      string `env:"RETRIEVIO_CHAT_MODEL" envDefault:"llama2"`
}

// Default returns the configuration with no environment overrides.
func Default() *Config {
	cfg, err := parse(map[string]string{})
	if err != nil {
		// envDefault values are constants; failing here is a programming error.
		panic(err)
	}
	return cfg
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return parse(nil)
}

func parse(environment map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = max(1, runtime.NumCPU()/2)
	}
	return cfg, nil
}

// Validate checks the settings and resolves BaseDir to an absolute path.
func (c *Config) Validate() error {
	if c.BaseDir == "" {
		return fmt.Errorf("%w: base directory is required", ErrInvalidConfig)
	}
	base, err := filepath.Abs(expandHome(c.BaseDir))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	c.BaseDir = base

	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", ErrInvalidConfig, c.ChunkSize, c.ChunkOverlap)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("%w: max retries must be at least 1, got %d", ErrInvalidConfig, c.MaxRetries)
	}
	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// WatchDir is where new documents are dropped.
func (c *Config) WatchDir() string { return filepath.Join(c.BaseDir, DocumentsDir) }

// ProcessedDir is where processed documents and their artifacts are archived.
func (c *Config) ProcessedDir() string { return filepath.Join(c.BaseDir, ProcessedDir) }

// LogsDir holds the log file.
func (c *Config) LogsDir() string { return filepath.Join(c.BaseDir, LogsDir) }

// LogFile is the path of the log file.
func (c *Config) LogFile() string { return filepath.Join(c.LogsDir(), LogFileName) }

// VectorDBDir holds the vector database.
func (c *Config) VectorDBDir() string { return filepath.Join(c.BaseDir, VectorDBDir) }

// EnsureDirs creates every directory under BaseDir.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.WatchDir(), c.ProcessedDir(), c.LogsDir(), c.VectorDBDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// AIConfig returns the AI backend settings.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.EmbeddingHost),
		ai.WithChatHost(c.ChatHost),
		ai.WithEmbeddingModel(c.EmbeddingModel),
		ai.WithChatModel(c.ChatModel),
	)
}

// Backoff returns the retry policy for embedding calls.
func (c *Config) Backoff() reembed.Backoff {
	b := reembed.DefaultBackoff
	b.Attempts = c.MaxRetries
	return b
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
