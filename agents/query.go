package agents

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/poiesic/retrievio/ai"
	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/messaging"
	"github.com/poiesic/retrievio/offload"
	"github.com/poiesic/retrievio/reembed"
)

// QueryProcessor embeds search queries and turns raw hits into ranked results.
type QueryProcessor struct {
	*Agent
	embedder ai.Embedder
}

func NewQueryProcessor(broker *messaging.Broker, pool *offload.Pool, embedder ai.Embedder, opts ...Option) (*QueryProcessor, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	a, err := newAgent(NameQueryProcessor, ai.RoleQueryProcessor, broker, pool, opts)
	if err != nil {
		return nil, err
	}
	if err := a.requirePool(); err != nil {
		return nil, err
	}
	return &QueryProcessor{Agent: a, embedder: embedder}, nil
}

// ProcessQuery returns the normalized embedding of query.
func (q *QueryProcessor) ProcessQuery(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	vector, err := offload.Do(ctx, q.pool, func(ctx context.Context) ([]float32, error) {
		return q.embedder.EmbedText(ctx, query)
	})
	if err != nil {
		q.logger.Error("failed to embed query", "err", err)
		q.Send(ctx, NameVectorStore, Notice{Error: err.Error()}, core.MessageTypeQueryFailed, nil)
		return nil, err
	}

	vector = reembed.NormalizeVector(vector)
	q.Send(ctx, NameVectorStore, EmbeddedQuery{Query: query, Vector: vector}, core.MessageTypeQueryProcessed, nil)
	return vector, nil
}

// FormatResults ranks hits in the given order and sends them to the frontend.
func (q *QueryProcessor) FormatResults(ctx context.Context, hits []*core.QueryHit, query string) []core.SearchResult {
	results := make([]core.SearchResult, 0, len(hits))
	for i, h := range hits {
		results = append(results, core.SearchResult{
			Rank:      i + 1,
			Text:      h.Text,
			File:      h.Metadata[core.MetaFileName],
			Relevance: core.Relevance(h.Distance),
			Metadata:  maps.Clone(h.Metadata),
		})
	}
	q.Send(ctx, NameFrontend, FormattedResults{Query: query, Results: results}, core.MessageTypeResultsFormatted, nil)
	return results
}

func (q *QueryProcessor) HandleMessage(ctx context.Context, msg core.Message) {
	switch msg.MessageType {
	case core.MessageTypeProcessQuery:
		req, ok := msg.Content.(QueryRequest)
		if !ok {
			q.ReplyError(ctx, msg, fmt.Errorf("%w: %T", ErrUnexpectedContent, msg.Content))
			return
		}
		vector, err := q.ProcessQuery(ctx, req.Query)
		if err != nil {
			q.ReplyError(ctx, msg, err)
			return
		}
		q.Reply(ctx, msg, EmbeddedQuery{Query: req.Query, Vector: vector}, core.MessageTypeQueryProcessed)

	case core.MessageTypeFormatResults:
		req, ok := msg.Content.(FormatRequest)
		if !ok {
			q.ReplyError(ctx, msg, fmt.Errorf("%w: %T", ErrUnexpectedContent, msg.Content))
			return
		}
		results := q.FormatResults(ctx, req.Hits, req.Query)
		q.Reply(ctx, msg, FormattedResults{Query: req.Query, Results: results}, core.MessageTypeResultsFormatted)

	default:
		q.Agent.HandleMessage(ctx, msg)
	}
}

func (q *QueryProcessor) Run(ctx context.Context) error {
	return q.Serve(ctx, q)
}
