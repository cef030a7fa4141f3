package agents

import (
	"context"

	"github.com/poiesic/retrievio/ai"
	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/document"
	"github.com/poiesic/retrievio/messaging"
	"github.com/poiesic/retrievio/offload"
)

// Parser extracts text from documents.
type Parser struct {
	*Agent
	extractor document.Extractor
}

// NewParser creates the document parser agent. A pool and an extractor are required.
func NewParser(broker *messaging.Broker, pool *offload.Pool, extractor document.Extractor, opts ...Option) (*Parser, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	a, err := newAgent(NameParser, ai.RoleDocumentParser, broker, pool, opts)
	if err != nil {
		return nil, err
	}
	if err := a.requirePool(); err != nil {
		return nil, err
	}
	return &Parser{Agent: a, extractor: extractor}, nil
}

// Parse returns the text of the document at path, or "" if it cannot be read.
func (p *Parser) Parse(ctx context.Context, path string) string {
	text, err := offload.Do(ctx, p.pool, func(ctx context.Context) (string, error) {
		return p.extractor.Extract(ctx, path)
	})
	if err != nil {
		p.logger.Error("failed to parse document", "path", path, "err", err)
		return ""
	}
	p.logger.Debug("parsed document", "path", path, "chars", len(text))
	return text
}

// HandleMessage logs chunker notices and defers everything else to Agent.
func (p *Parser) HandleMessage(ctx context.Context, msg core.Message) {
	switch msg.MessageType {
	case core.MessageTypeChunksCreated:
		if n, ok := msg.Content.(Notice); ok {
			p.logger.Debug("chunks created", "document", n.Document, "count", n.Count)
		}
	case core.MessageTypeChunkingFailed:
		if n, ok := msg.Content.(Notice); ok {
			p.logger.Error("chunking failed", "document", n.Document, "err", n.Error)
		}
	default:
		p.Agent.HandleMessage(ctx, msg)
	}
}

// Run serves the parser mailbox until ctx is done.
func (p *Parser) Run(ctx context.Context) error {
	return p.Serve(ctx, p)
}
