package agents

import (
	"context"
	"strconv"

	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/messaging"
	"github.com/poiesic/retrievio/offload"
	"github.com/poiesic/retrievio/storage"
)

// VectorStore persists embedded chunks and runs similarity searches.
type VectorStore struct {
	*Agent
	repo storage.VectorRepository
}

func NewVectorStore(broker *messaging.Broker, pool *offload.Pool, repo storage.VectorRepository, opts ...Option) (*VectorStore, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	a, err := newAgent(NameVectorStore, "vector_store", broker, pool, opts)
	if err != nil {
		return nil, err
	}
	if err := a.requirePool(); err != nil {
		return nil, err
	}
	return &VectorStore{Agent: a, repo: repo}, nil
}

// ChunkID is the storage id of a chunk: its source file and start offset.
func ChunkID(c core.Chunk) string {
	return c.Metadata[core.MetaSourceFile] + "_" + strconv.Itoa(c.StartOffset)
}

// Store upserts embedded chunks and announces them to subscribers.
// Errors are logged and reported as false.
func (v *VectorStore) Store(ctx context.Context, chunks []core.Chunk) bool {
	ids := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	texts := make([]string, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	for i, c := range chunks {
		ids[i] = ChunkID(c)
		vectors[i] = c.Vector
		texts[i] = c.Text
		metadatas[i] = map[string]string{
			core.MetaSourceFile: c.Metadata[core.MetaSourceFile],
			core.MetaFileName:   c.Metadata[core.MetaFileName],
			core.MetaStartIdx:   strconv.Itoa(c.StartOffset),
			core.MetaEndIdx:     strconv.Itoa(c.EndOffset),
		}
	}

	_, err := offload.Do(ctx, v.pool, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, v.repo.Store(ctx, ids, vectors, texts, metadatas)
	})
	doc := documentOf(chunks)
	if err != nil {
		v.logger.Error("failed to store chunks", "document", doc, "chunks", len(chunks), "err", err)
		return false
	}

	v.logger.Info("stored chunks", "document", doc, "chunks", len(chunks))
	var md map[string]string
	if len(chunks) > 0 {
		md = flowMetadata(chunks[0].Metadata)
	}
	v.Notify(ctx, Notice{Document: doc, Count: len(chunks)}, core.MessageTypeChunksStored, md)
	return true
}

// Search returns up to k stored chunks nearest to vector whose metadata
// matches filter.
func (v *VectorStore) Search(ctx context.Context, vector []float32, k int, filter map[string]string) ([]*core.QueryHit, error) {
	hits, err := offload.Do(ctx, v.pool, func(ctx context.Context) ([]*core.QueryHit, error) {
		return v.repo.Query(ctx, vector, k, filter)
	})
	if err != nil {
		v.logger.Error("similarity search failed", "k", k, "err", err)
		return nil, err
	}
	return hits, nil
}

func (v *VectorStore) HandleMessage(ctx context.Context, msg core.Message) {
	switch msg.MessageType {
	case core.MessageTypeEmbeddingFailed, core.MessageTypeQueryFailed:
		n, _ := msg.Content.(Notice)
		v.logger.Error("upstream failure reported", "from", msg.Sender, "type", msg.MessageType,
			"document", n.Document, "err", n.Error)
	default:
		v.Agent.HandleMessage(ctx, msg)
	}
}

func (v *VectorStore) Run(ctx context.Context) error {
	return v.Serve(ctx, v)
}
