package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/retrievio/agents"
	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/document"
	"github.com/poiesic/retrievio/flow"
)

// Stages are the agents a document passes through, in order.
type Stages struct {
	Parser     *agents.Parser
	Chunker    *agents.Chunker
	Embedder   *agents.Embedder
	Store      *agents.VectorStore
	Engagement *agents.EngagementAgent
}

func (s Stages) validate() error {
	switch {
	case s.Parser == nil:
		return fmt.Errorf("%w: parser", ErrStageRequired)
	case s.Chunker == nil:
		return fmt.Errorf("%w: chunker", ErrStageRequired)
	case s.Embedder == nil:
		return fmt.Errorf("%w: embedder", ErrStageRequired)
	case s.Store == nil:
		return fmt.Errorf("%w: vector store", ErrStageRequired)
	case s.Engagement == nil:
		return fmt.Errorf("%w: engagement", ErrStageRequired)
	}
	return nil
}

// Report describes a successfully processed document.
type Report struct {
	FlowID     string
	Document   string
	Archived   string
	Chunks     int
	Engagement agents.Engagement
	Duration   time.Duration
}

// Pipeline orchestrates the processing of documents.
type Pipeline struct {
	stages      Stages
	coordinator *flow.Coordinator
	archive     *document.Archive
	logger      *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger != nil {
			p.logger = logger
		}
		return nil
	}
}

// NewPipeline creates a new document processing pipeline.
func NewPipeline(stages Stages, coordinator *flow.Coordinator, archive *document.Archive, opts ...Option) (*Pipeline, error) {
	if err := stages.validate(); err != nil {
		return nil, err
	}
	if coordinator == nil {
		return nil, ErrCoordinatorRequired
	}
	if archive == nil {
		return nil, ErrArchiveRequired
	}

	p := &Pipeline{
		stages:      stages,
		coordinator: coordinator,
		archive:     archive,
		logger:      slog.Default(),
		inflight:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingestion")
	return p, nil
}

// ProcessDocument runs the document at path through every stage and
// archives the result. The flow stays at the last completed stage when
// a stage fails.
func (p *Pipeline) ProcessDocument(ctx context.Context, path string) (*Report, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocumentUnavailable, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocumentUnavailable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrDocumentUnavailable, abs)
	}
	if !p.claim(abs) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyProcessing, abs)
	}
	defer p.release(abs)

	start := time.Now()
	name := filepath.Base(abs)
	flowID := uuid.NewString()
	logger := p.logger.With("flow_id", flowID, "document", name)
	p.coordinator.StartFlow(flowID, abs)
	logger.Info("processing document", "path", abs)

	text := p.stages.Parser.Parse(ctx, abs)
	if strings.TrimSpace(text) == "" {
		return nil, p.fail(logger, ErrNoText)
	}
	p.advance(ctx, p.stages.Parser.Agent, flowID, name, core.FlowStatusParsed, core.StepParsing)

	metadata := map[string]string{
		core.MetaSourceFile:   abs,
		core.MetaFileName:     name,
		core.MetaCreationTime: info.ModTime().UTC().Format(time.RFC3339),
		core.MetaFlowID:       flowID,
	}
	chunks := p.stages.Chunker.Chunk(ctx, text, metadata)
	if len(chunks) == 0 {
		return nil, p.fail(logger, ErrNoChunks)
	}
	p.advance(ctx, p.stages.Chunker.Agent, flowID, name, core.FlowStatusChunked, core.StepChunking)

	embedded, ok := p.stages.Embedder.Embed(ctx, chunks)
	if !ok {
		return nil, p.fail(logger, ErrEmbeddingFailed)
	}
	p.advance(ctx, p.stages.Embedder.Agent, flowID, name, core.FlowStatusEmbedded, core.StepEmbedding)

	if !p.stages.Store.Store(ctx, embedded) {
		return nil, p.fail(logger, ErrStoreFailed)
	}
	p.advance(ctx, p.stages.Store.Agent, flowID, name, core.FlowStatusStored, core.StepStoring)

	engagement := p.stages.Engagement.Analyze(ctx, text, metadata)
	if engagement.Error != "" {
		logger.Warn("engagement analysis failed", "err", engagement.Error)
	}
	p.advance(ctx, p.stages.Engagement.Agent, flowID, name, core.FlowStatusAnalyzing, core.StepAnalyzing)

	archived, err := p.archiveDocument(abs, chunks, engagement)
	if err != nil {
		return nil, p.fail(logger, fmt.Errorf("%w: %w", ErrArchiveFailed, err))
	}
	p.advance(ctx, p.stages.Engagement.Agent, flowID, name, core.FlowStatusCompleted, core.StepArchiving)

	report := &Report{
		FlowID:     flowID,
		Document:   name,
		Archived:   archived,
		Chunks:     len(chunks),
		Engagement: engagement,
		Duration:   time.Since(start),
	}
	logger.Info("document processed", "chunks", report.Chunks, "duration", report.Duration)
	return report, nil
}

// archiveDocument writes the chunks and analysis next to the processed
// copy and moves the source out of the watched directory.
func (p *Pipeline) archiveDocument(path string, chunks []core.Chunk, engagement agents.Engagement) (string, error) {
	if _, err := p.archive.SaveChunks(path, chunks); err != nil {
		return "", err
	}
	if engagement.Error == "" {
		if _, err := p.archive.SaveEngagement(path, engagement); err != nil {
			return "", err
		}
	}
	return p.archive.MoveProcessed(path)
}

func (p *Pipeline) advance(ctx context.Context, from *agents.Agent, flowID, name, status, step string) {
	p.coordinator.UpdateFlow(flowID, status, step)
	from.Notify(ctx, agents.FlowUpdate{FlowID: flowID, Document: name, Status: status, Step: step},
		core.MessageTypeFlowStatus, map[string]string{core.MetaFlowID: flowID})
}

func (p *Pipeline) fail(logger *slog.Logger, err error) error {
	logger.Error("document processing failed", "err", err)
	return err
}

func (p *Pipeline) claim(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[path]; busy {
		return false
	}
	p.inflight[path] = struct{}{}
	return true
}

func (p *Pipeline) release(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, path)
}
