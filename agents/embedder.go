package agents

import (
	"context"
	"fmt"
	"maps"

	"github.com/poiesic/retrievio/ai"
	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/messaging"
	"github.com/poiesic/retrievio/offload"
	"github.com/poiesic/retrievio/reembed"
)

// Embedder attaches normalized vectors to chunks.
type Embedder struct {
	*Agent
	embedder ai.Embedder
	backoff  reembed.Backoff
}

// NewEmbedder builds the embedding agent. Embedding calls are retried
// according to backoff; a zero Backoff means a single attempt.
func NewEmbedder(broker *messaging.Broker, pool *offload.Pool, embedder ai.Embedder, backoff reembed.Backoff, opts ...Option) (*Embedder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	a, err := newAgent(NameEmbedder, "embedder", broker, pool, opts)
	if err != nil {
		return nil, err
	}
	if err := a.requirePool(); err != nil {
		return nil, err
	}
	if backoff.Attempts <= 0 {
		backoff.Attempts = 1
	}
	return &Embedder{Agent: a, embedder: embedder, backoff: backoff}, nil
}

// Embed returns copies of chunks carrying unit-length vectors. On failure it
// notifies the vector store and returns false.
func (e *Embedder) Embed(ctx context.Context, chunks []core.Chunk) ([]core.Chunk, bool) {
	md := map[string]string{}
	if len(chunks) > 0 {
		md = flowMetadata(chunks[0].Metadata)
	}
	doc := documentOf(chunks)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := offload.Do(ctx, e.pool, func(ctx context.Context) ([][]float32, error) {
		return reembed.EmbedTexts(ctx, e.embedder, e.backoff, texts)
	})
	if err != nil {
		e.logger.Error("embedding failed", "document", doc, "chunks", len(chunks), "err", err)
		e.Send(ctx, NameVectorStore, Notice{Document: doc, Error: err.Error()}, core.MessageTypeEmbeddingFailed, md)
		return nil, false
	}

	out := make([]core.Chunk, len(chunks))
	for i, c := range chunks {
		c.Metadata = maps.Clone(c.Metadata)
		c.Vector = vectors[i]
		out[i] = c
	}
	e.Send(ctx, NameVectorStore, Notice{Document: doc, Count: len(out)}, core.MessageTypeEmbeddingsCreated, md)
	return out, true
}

func (e *Embedder) HandleMessage(ctx context.Context, msg core.Message) {
	if msg.MessageType != core.MessageTypeEmbedRequest {
		e.Agent.HandleMessage(ctx, msg)
		return
	}
	req, ok := msg.Content.(ChunkBatch)
	if !ok {
		e.ReplyError(ctx, msg, fmt.Errorf("%w: %T", ErrUnexpectedContent, msg.Content))
		return
	}
	chunks, ok := e.Embed(ctx, req.Chunks)
	if !ok {
		e.ReplyError(ctx, msg, fmt.Errorf("embedding %d chunks failed", len(req.Chunks)))
		return
	}
	e.Reply(ctx, msg, ChunkBatch{Chunks: chunks}, core.MessageTypeEmbedResponse)
}

func (e *Embedder) Run(ctx context.Context) error {
	return e.Serve(ctx, e)
}

func documentOf(chunks []core.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	return chunks[0].Metadata[core.MetaFileName]
}
