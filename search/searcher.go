package search

import (
	"context"
	"log/slog"
	"slices"

	"github.com/poiesic/retrievio/agents"
	"github.com/poiesic/retrievio/core"
)

const (
	// DefaultResults is the number of chunks fetched when a query does not say.
	DefaultResults = 5

	// DefaultMinRelevance is the relevance fraction a result needs to be kept.
	DefaultMinRelevance = 0.7

	// NoAnswer is returned by Ask when no stored passage is relevant.
	NoAnswer = "I could not find any relevant information to answer your question."

	// verbatimBoost is added to the ranking score, in percentage points, of
	// results containing every query term.
	verbatimBoost = 30.0
)

// Query describes a search. A zero NResults selects DefaultResults and a
// negative MinRelevance selects DefaultMinRelevance. A MinRelevance of zero
// keeps every hit.
type Query struct {
	Text         string
	NResults     int
	MinRelevance float64
	FileFilter   string
}

// NewQuery returns a query for text with the default result count and
// relevance threshold.
func NewQuery(text string) Query {
	return Query{Text: text, NResults: DefaultResults, MinRelevance: DefaultMinRelevance}
}

func (q Query) withDefaults() Query {
	if q.NResults <= 0 {
		q.NResults = DefaultResults
	}
	if q.MinRelevance < 0 {
		q.MinRelevance = DefaultMinRelevance
	}
	return q
}

// Searcher provides semantic search and question answering over stored chunks.
type Searcher struct {
	query  *agents.QueryProcessor
	store  *agents.VectorStore
	qa     *agents.QA
	logger *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	query *agents.QueryProcessor,
	store *agents.VectorStore,
	qa *agents.QA,
	opts ...Option,
) (*Searcher, error) {
	if query == nil {
		return nil, ErrQueryProcessorRequired
	}
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if qa == nil {
		return nil, ErrQARequired
	}

	s := &Searcher{
		query:  query,
		store:  store,
		qa:     qa,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "search")

	return s, nil
}

// Search returns the stored chunks relevant to q, best first.
func (s *Searcher) Search(ctx context.Context, q Query) ([]core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, q, nil)
}

// SearchWithMonitor searches like Search, reporting each stage to monitor.
func (s *Searcher) SearchWithMonitor(ctx context.Context, q Query, monitor SearchMonitor) ([]core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	q = q.withDefaults()
	monitor.Start(q)

	vector, err := s.query.ProcessQuery(ctx, q.Text)
	if err != nil {
		s.logger.Error("error processing query", "query", q.Text, "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(len(vector))

	var filter map[string]string
	if q.FileFilter != "" {
		filter = map[string]string{core.MetaFileName: q.FileFilter}
	}
	hits, err := s.store.Search(ctx, vector, q.NResults, filter)
	if err != nil {
		return nil, err
	}
	monitor.AfterVectorSearch(hits)

	formatted := s.query.FormatResults(ctx, hits, q.Text)

	type scored struct {
		result core.SearchResult
		score  float64
	}
	ranked := make([]scored, 0, len(formatted))
	for _, r := range formatted {
		if r.Relevance/100 < q.MinRelevance {
			monitor.BelowThreshold(r)
			continue
		}
		score := r.Relevance
		if containsAllQueryWords(r.Text, q.Text) {
			score += verbatimBoost
			monitor.VerbatimHit(r)
		}
		ranked = append(ranked, scored{result: r, score: score})
	}

	slices.SortStableFunc(ranked, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})

	results := make([]core.SearchResult, len(ranked))
	for i, r := range ranked {
		results[i] = r.result
		results[i].Rank = i + 1
	}
	s.logger.Debug("search complete", "query", q.Text, "hits", len(hits), "results", len(results))
	monitor.Finish(results)

	return results, nil
}

// Ask answers q from the relevant stored chunks. When nothing relevant is
// stored the answer is NoAnswer.
func (s *Searcher) Ask(ctx context.Context, q Query) (agents.Answer, error) {
	results, err := s.Search(ctx, q)
	if err != nil {
		return agents.Answer{}, err
	}
	if len(results) == 0 {
		return agents.Answer{Answer: NoAnswer, Sources: []string{}}, nil
	}
	return s.qa.GenerateAnswer(ctx, q.Text, results), nil
}
