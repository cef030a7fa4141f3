package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/document"
	"github.com/poiesic/retrievio/messaging"
)

// Chunker splits document text into overlapping chunks.
type Chunker struct {
	*Agent
	chunker *document.Chunker
}

func NewChunker(broker *messaging.Broker, chunker *document.Chunker, opts ...Option) (*Chunker, error) {
	if chunker == nil {
		return nil, ErrChunkerRequired
	}
	a, err := newAgent(NameChunker, "text_chunker", broker, nil, opts)
	if err != nil {
		return nil, err
	}
	return &Chunker{Agent: a, chunker: chunker}, nil
}

// Chunk splits text and reports the outcome to the parser. Blank text yields
// no chunks and a chunking_failed notice.
func (c *Chunker) Chunk(ctx context.Context, text string, metadata map[string]string) []core.Chunk {
	doc := metadata[core.MetaFileName]
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("nothing to chunk", "document", doc)
		c.Send(ctx, NameParser, Notice{Document: doc, Error: core.ErrEmptyContent.Error()},
			core.MessageTypeChunkingFailed, flowMetadata(metadata))
		return nil
	}

	chunks := c.chunker.Split(text, metadata)
	c.logger.Debug("split text", "document", doc, "chunks", len(chunks))
	c.Send(ctx, NameParser, Notice{Document: doc, Count: len(chunks)},
		core.MessageTypeChunksCreated, flowMetadata(metadata))
	return chunks
}

func (c *Chunker) HandleMessage(ctx context.Context, msg core.Message) {
	if msg.MessageType != core.MessageTypeChunkRequest {
		c.Agent.HandleMessage(ctx, msg)
		return
	}
	req, ok := msg.Content.(ChunkRequest)
	if !ok {
		c.ReplyError(ctx, msg, fmt.Errorf("%w: %T", ErrUnexpectedContent, msg.Content))
		return
	}
	chunks := c.Chunk(ctx, req.Text, req.Metadata)
	if chunks == nil {
		c.ReplyError(ctx, msg, core.ErrEmptyContent)
		return
	}
	c.Reply(ctx, msg, ChunkBatch{Chunks: chunks}, core.MessageTypeChunkResponse)
}

func (c *Chunker) Run(ctx context.Context) error {
	return c.Serve(ctx, c)
}
