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

// Package retrievio wires the document agents into a running session.
//
// A Session owns the AI provider, the vector database, the worker pool,
// the message broker and every agent. Start runs the agent loops and the
// directory watcher; documents dropped into the watch directory are
// processed in the background. User requests go through Handle as
// actions.
package retrievio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/poiesic/retrievio/actions"
	"github.com/poiesic/retrievio/agents"
	"github.com/poiesic/retrievio/ai"
	"github.com/poiesic/retrievio/ai/openai"
	"github.com/poiesic/retrievio/config"
	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/document"
	"github.com/poiesic/retrievio/flow"
	"github.com/poiesic/retrievio/ingestion"
	"github.com/poiesic/retrievio/messaging"
	"github.com/poiesic/retrievio/offload"
	"github.com/poiesic/retrievio/reembed"
	"github.com/poiesic/retrievio/search"
	"github.com/poiesic/retrievio/storage/badger"
)

// subscriptions lists (subscriber, publisher) pairs set up by every session.
var subscriptions = [][2]string{
	{agents.NameParser, agents.NameWatcher},
	{agents.NameVectorStore, agents.NameParser},
	{agents.NameEngagement, agents.NameVectorStore},
	{agents.NameQA, agents.NameVectorStore},
	{agents.NameFrontend, agents.NameEngagement},
}

// Session is a running RetrievIO instance.
type Session struct {
	cfg      *config.Config
	provider ai.Provider
	backend  *badger.Backend
	vectors  *badger.VectorRepository
	flows    *badger.FlowRepository
	pool     *offload.Pool
	broker   *messaging.Broker

	coordinator *flow.Coordinator
	extractor   *document.MultiExtractor
	watcher     *agents.Watcher
	frontend    *agents.Frontend
	runners     []agents.Runner

	pipeline   *ingestion.Pipeline
	searcher   *search.Searcher
	dispatcher *actions.Dispatcher
	logger     *slog.Logger

	mu         sync.Mutex
	started    bool
	closed     bool
	cancel     context.CancelFunc
	loops      conc.WaitGroup
	background conc.WaitGroup
}

// Option configures a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	provider ai.Provider
	logger   *slog.Logger
	inMemory bool
}

// WithProvider uses p instead of connecting to the configured backend.
func WithProvider(p ai.Provider) Option {
	return func(o *sessionOptions) {
		o.provider = p
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *sessionOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithInMemoryStorage keeps the vector database in memory.
func WithInMemoryStorage() Option {
	return func(o *sessionOptions) {
		o.inMemory = true
	}
}

// NewSession verifies the AI backend, opens storage and builds every agent.
// An unreachable backend fails with an error wrapping ai.ErrConnection.
func NewSession(cfg *config.Config, opts ...Option) (*Session, error) {
	options := &sessionOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	s := &Session{cfg: cfg, logger: options.logger.With("component", "session")}
	if err := s.open(options); err != nil {
		s.release()
		return nil, err
	}
	return s, nil
}

func (s *Session) open(options *sessionOptions) error {
	logger := options.logger
	var err error

	s.provider = options.provider
	if s.provider == nil {
		if s.provider, err = openai.NewProvider(s.cfg.AIConfig()); err != nil {
			return err
		}
	}
	if err := s.provider.Verify(context.Background()); err != nil {
		return fmt.Errorf("verifying AI backend: %w", err)
	}

	if s.backend, err = badger.OpenBackend(s.cfg.VectorDBDir(), options.inMemory); err != nil {
		return err
	}
	if s.vectors, err = badger.NewVectorRepository(s.backend); err != nil {
		return err
	}
	s.flows = badger.NewFlowRepository(s.backend)

	if s.pool, err = offload.NewPool(offload.WithPoolSize(s.cfg.PoolSize), offload.WithLogger(logger)); err != nil {
		return err
	}
	if s.broker, err = messaging.NewBroker(messaging.WithLogger(logger), messaging.WithTickInterval(s.cfg.TickInterval)); err != nil {
		return err
	}
	if s.coordinator, err = flow.NewCoordinator(flow.WithLogger(logger), flow.WithRecorder(s.flows)); err != nil {
		return err
	}

	if err := s.buildAgents(logger); err != nil {
		return err
	}
	for _, sub := range subscriptions {
		if err := s.broker.Subscribe(sub[0], sub[1]); err != nil {
			return err
		}
	}

	s.dispatcher, err = actions.NewDispatcher(actions.WithLogger(logger))
	if err != nil {
		return err
	}
	for name, h := range map[string]actions.Handler{
		actions.ProcessDocument: s.handleProcessDocument,
		actions.Search:          s.handleSearch,
		actions.Ask:             s.handleAsk,
	} {
		if err := s.dispatcher.Register(name, h); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) buildAgents(logger *slog.Logger) error {
	opt := agents.WithLogger(logger)
	embedder := s.provider.Embedder()
	chat := s.provider.ChatModel()
	s.extractor = document.DefaultExtractor()

	var err error
	if s.watcher, err = agents.NewWatcher(s.broker, s.extractor.Supports, s.cfg.SettleDelay, opt); err != nil {
		return err
	}
	parser, err := agents.NewParser(s.broker, s.pool, s.extractor, opt)
	if err != nil {
		return err
	}
	splitter, err := document.NewChunker(s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		return err
	}
	chunker, err := agents.NewChunker(s.broker, splitter, opt)
	if err != nil {
		return err
	}
	embedAgent, err := agents.NewEmbedder(s.broker, s.pool, embedder, s.cfg.Backoff(), opt)
	if err != nil {
		return err
	}
	store, err := agents.NewVectorStore(s.broker, s.pool, s.vectors, opt)
	if err != nil {
		return err
	}
	query, err := agents.NewQueryProcessor(s.broker, s.pool, embedder, opt)
	if err != nil {
		return err
	}
	qa, err := agents.NewQA(s.broker, s.pool, chat, s.cfg.ChatModel, opt)
	if err != nil {
		return err
	}
	engagement, err := agents.NewEngagement(s.broker, s.pool, chat, s.cfg.ChatModel, opt)
	if err != nil {
		return err
	}
	if s.frontend, err = agents.NewFrontend(s.broker, 0, opt); err != nil {
		return err
	}
	s.runners = []agents.Runner{parser, chunker, embedAgent, store, query, qa, engagement, s.frontend}

	archive, err := document.NewArchive(s.cfg.ProcessedDir(), logger)
	if err != nil {
		return err
	}
	s.pipeline, err = ingestion.NewPipeline(ingestion.Stages{
		Parser:     parser,
		Chunker:    chunker,
		Embedder:   embedAgent,
		Store:      store,
		Engagement: engagement,
	}, s.coordinator, archive, ingestion.WithLogger(logger))
	if err != nil {
		return err
	}
	s.searcher, err = search.NewSearcher(query, store, qa, search.WithLogger(logger))
	return err
}

// Config returns the session's configuration.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Start runs the broker, the agent loops and the directory watcher until
// Close is called or ctx ends. Documents already waiting in the watch
// directory are processed too.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.started {
		return ErrAlreadyStarted
	}
	if err := s.watcher.Watch(s.cfg.WatchDir()); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true

	s.loops.Go(func() { s.runLoop(runCtx, "broker", s.broker.Run) })
	for _, r := range s.runners {
		s.loops.Go(func() { s.runLoop(runCtx, r.Name(), r.Run) })
	}
	s.loops.Go(func() { s.runLoop(runCtx, agents.NameWatcher, s.watcher.Run) })
	s.loops.Go(func() {
		for path := range s.watcher.Events() {
			s.documentAdded(runCtx, path)
		}
	})

	if err := s.pool.Go(runCtx, "scan-watch-dir", s.scanWatchDir); err != nil {
		s.logger.Warn("could not scan watch directory", "err", err)
	}
	s.logger.Info("session started", "watch_dir", s.cfg.WatchDir())
	return nil
}

func (s *Session) runLoop(ctx context.Context, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("loop exited with error", "loop", name, "err", err)
	}
}

// scanWatchDir hands documents present before the watcher started to the
// background processor.
func (s *Session) scanWatchDir(ctx context.Context) error {
	entries, err := os.ReadDir(s.cfg.WatchDir())
	if err != nil {
		return err
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil
		}
		path := filepath.Join(s.cfg.WatchDir(), e.Name())
		if e.Type().IsRegular() && s.extractor.Supports(path) {
			s.documentAdded(ctx, path)
		}
	}
	return nil
}

// documentAdded tells the user about path and processes it in the background.
func (s *Session) documentAdded(ctx context.Context, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.frontend.NotifyDocumentAdded(path)
	s.background.Go(func() {
		res := s.Handle(ctx, actions.Action{
			Name:     actions.ProcessDocument,
			Input:    path,
			Metadata: map[string]string{"source": agents.NameWatcher},
		})
		if !res.Success {
			s.logger.Warn("background processing failed", "path", path, "err", res.Error)
		}
	})
}

// Handle performs a user action. Failures are reported in the Result.
func (s *Session) Handle(ctx context.Context, a actions.Action) actions.Result {
	return s.dispatcher.Handle(ctx, a)
}

// ProcessDocument runs a single document through the pipeline.
func (s *Session) ProcessDocument(ctx context.Context, path string) (*ingestion.Report, error) {
	return s.pipeline.ProcessDocument(ctx, path)
}

// Search returns stored chunks relevant to q.
func (s *Session) Search(ctx context.Context, q search.Query) ([]core.SearchResult, error) {
	return s.searcher.Search(ctx, q)
}

// Ask answers a question from stored chunks.
func (s *Session) Ask(ctx context.Context, q search.Query) (agents.Answer, error) {
	return s.searcher.Ask(ctx, q)
}

// Searcher exposes the searcher for callers that need monitoring.
func (s *Session) Searcher() *search.Searcher {
	return s.searcher
}

// Notifications delivers user-facing events.
func (s *Session) Notifications() <-chan agents.Notification {
	return s.frontend.Notifications()
}

// Flows returns the flows started by this session.
func (s *Session) Flows() []core.Flow {
	return s.coordinator.Flows()
}

// StoredFlows returns every flow recorded in the database, including
// those of earlier sessions.
func (s *Session) StoredFlows(ctx context.Context) ([]core.Flow, error) {
	return s.flows.ListFlows(ctx)
}

// Reembed re-embeds every stored chunk with the current embedding model.
// A nil rc uses reembed.DefaultConfig with the session's retry policy.
func (s *Session) Reembed(ctx context.Context, rc *reembed.Config, progress io.Writer) (int, error) {
	if rc == nil {
		rc = reembed.DefaultConfig()
		rc.Backoff = s.cfg.Backoff()
	}
	return reembed.NewReembedder(s.vectors, s.provider.Embedder(), rc, progress).Run(ctx)
}

func (s *Session) handleProcessDocument(ctx context.Context, input any, _ map[string]string) (any, error) {
	path, err := actions.Input[string](actions.ProcessDocument, input)
	if err != nil {
		return nil, err
	}
	return s.pipeline.ProcessDocument(ctx, path)
}

func (s *Session) handleSearch(ctx context.Context, input any, _ map[string]string) (any, error) {
	q, err := queryInput(actions.Search, input)
	if err != nil {
		return nil, err
	}
	return s.searcher.Search(ctx, q)
}

func (s *Session) handleAsk(ctx context.Context, input any, _ map[string]string) (any, error) {
	q, err := queryInput(actions.Ask, input)
	if err != nil {
		return nil, err
	}
	answer, err := s.searcher.Ask(ctx, q)
	if err != nil {
		return nil, err
	}
	if answer.Error != "" {
		return nil, errors.New(answer.Error)
	}
	return answer, nil
}

// queryInput accepts either the query text or a full search.Query.
func queryInput(action string, input any) (search.Query, error) {
	switch v := input.(type) {
	case string:
		return search.NewQuery(v), nil
	case search.Query:
		return v, nil
	default:
		return actions.Input[search.Query](action, input)
	}
}

// Close stops every loop, waits for background processing and releases
// storage and the AI provider.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if s.broker != nil {
		s.broker.Stop()
	}
	s.loops.Wait()
	s.background.Wait()
	s.logger.Info("session stopped")
	return s.release()
}

func (s *Session) release() error {
	var errs []error
	if s.watcher != nil {
		s.watcher.Close()
	}
	if s.pool != nil {
		s.pool.Release()
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if s.vectors != nil {
		if err := s.vectors.Close(); err != nil {
			s.logger.Error("error closing vector repository", "err", err)
			errs = append(errs, err)
		}
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
