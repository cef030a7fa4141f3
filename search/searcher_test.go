package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/retrievio/agents"
	"github.com/poiesic/retrievio/ai/mock"
	"github.com/poiesic/retrievio/core"
	"github.com/poiesic/retrievio/messaging"
	"github.com/poiesic/retrievio/offload"
	"github.com/poiesic/retrievio/storage/badger"
)

type searchFixture struct {
	searcher *Searcher
	vectors  *badger.VectorRepository
	chat     *mock.MockChatModel
	broker   *messaging.Broker
}

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()
	broker, err := messaging.NewBroker(messaging.WithTickInterval(10 * time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(broker.Stop)
	require.NoError(t, broker.Register(agents.NameFrontend))

	pool, err := offload.NewPool(offload.WithPoolSize(4))
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	vectors, _, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	}
	chat := mock.NewMockChatModel()

	query, err := agents.NewQueryProcessor(broker, pool, embedder)
	require.NoError(t, err)
	store, err := agents.NewVectorStore(broker, pool, vectors)
	require.NoError(t, err)
	qa, err := agents.NewQA(broker, pool, chat, "llama2")
	require.NoError(t, err)

	searcher, err := NewSearcher(query, store, qa)
	require.NoError(t, err)
	return &searchFixture{searcher: searcher, vectors: vectors, chat: chat, broker: broker}
}

// seed stores three chunks at relevance 100, 80 and 0 to the query vector [1, 0].
func (f *searchFixture) seed(t *testing.T) {
	t.Helper()
	err := f.vectors.Store(context.Background(),
		[]string{"a_0", "b_0", "c_0"},
		[][]float32{{1, 0}, {0.8, 0.6}, {0, 1}},
		[]string{"Water wheel history", "The river turns the mill.", "Unrelated text"},
		[]map[string]string{
			{core.MetaFileName: "a.txt", core.MetaSourceFile: "/docs/a.txt"},
			{core.MetaFileName: "b.txt", core.MetaSourceFile: "/docs/b.txt"},
			{core.MetaFileName: "c.txt", core.MetaSourceFile: "/docs/c.txt"},
		})
	require.NoError(t, err)
}

func TestNewSearcher(t *testing.T) {
	f := newSearchFixture(t)
	s := f.searcher

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(s.query, s.store, s.qa, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with custom logger", func(t *testing.T) {
		searcher, err := NewSearcher(s.query, s.store, s.qa, WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("nil query processor", func(t *testing.T) {
		_, err := NewSearcher(nil, s.store, s.qa)
		assert.Equal(t, ErrQueryProcessorRequired, err)
	})

	t.Run("nil vector store", func(t *testing.T) {
		_, err := NewSearcher(s.query, nil, s.qa)
		assert.Equal(t, ErrVectorStoreRequired, err)
	})

	t.Run("nil qa", func(t *testing.T) {
		_, err := NewSearcher(s.query, s.store, nil)
		assert.Equal(t, ErrQARequired, err)
	})
}

func TestSearch_EmptyDatabase(t *testing.T) {
	f := newSearchFixture(t)
	results, err := f.searcher.Search(context.Background(), Query{Text: "anything"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_EmptyQuery(t *testing.T) {
	f := newSearchFixture(t)
	_, err := f.searcher.Search(context.Background(), Query{Text: "  "})
	assert.ErrorIs(t, err, agents.ErrEmptyQuery)
}

func TestSearch_FiltersAndBoosts(t *testing.T) {
	f := newSearchFixture(t)
	f.seed(t)

	results, err := f.searcher.Search(context.Background(), NewQuery("the river and mill"))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "b.txt", results[0].File, "verbatim match ranks first")
	assert.Equal(t, 1, results[0].Rank)
	assert.InDelta(t, 80.0, results[0].Relevance, 0.01)
	assert.Equal(t, "a.txt", results[1].File)
	assert.Equal(t, 2, results[1].Rank)
	assert.InDelta(t, 100.0, results[1].Relevance, 0.01)
}

func TestSearch_MinRelevance(t *testing.T) {
	f := newSearchFixture(t)
	f.seed(t)

	results, err := f.searcher.Search(context.Background(), Query{Text: "wheel", MinRelevance: 0.9})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.txt", results[0].File)
}

func TestSearch_ZeroMinRelevanceKeepsEveryHit(t *testing.T) {
	f := newSearchFixture(t)
	f.seed(t)

	results, err := f.searcher.Search(context.Background(), Query{Text: "water", NResults: 5, MinRelevance: 0})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "c.txt", results[2].File)
	assert.InDelta(t, 0.0, results[2].Relevance, 0.01)
}

func TestSearch_NegativeMinRelevanceUsesDefault(t *testing.T) {
	f := newSearchFixture(t)
	f.seed(t)

	results, err := f.searcher.Search(context.Background(), Query{Text: "water", MinRelevance: -1})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, "c.txt", r.File)
	}
}

func TestNewQuery(t *testing.T) {
	q := NewQuery("river")
	assert.Equal(t, Query{Text: "river", NResults: DefaultResults, MinRelevance: DefaultMinRelevance}, q)

	q = Query{Text: "river"}.withDefaults()
	assert.Equal(t, DefaultResults, q.NResults)
	assert.Zero(t, q.MinRelevance)
}

func TestSearch_FileFilter(t *testing.T) {
	f := newSearchFixture(t)
	f.seed(t)

	results, err := f.searcher.Search(context.Background(), Query{Text: "river mill", FileFilter: "b.txt"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b.txt", results[0].File)
	assert.Equal(t, "/docs/b.txt", results[0].Metadata[core.MetaSourceFile])
}

func TestSearch_NResults(t *testing.T) {
	f := newSearchFixture(t)
	f.seed(t)

	results, err := f.searcher.Search(context.Background(), Query{Text: "water", NResults: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.txt", results[0].File)
}

func TestAsk_NothingRelevant(t *testing.T) {
	f := newSearchFixture(t)
	answer, err := f.searcher.Ask(context.Background(), Query{Text: "what turns the mill?"})
	require.NoError(t, err)
	assert.Equal(t, NoAnswer, answer.Answer)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, f.chat.CallCount())
}

func TestAsk_UsesRelevantPassages(t *testing.T) {
	f := newSearchFixture(t)
	f.seed(t)

	answer, err := f.searcher.Ask(context.Background(), NewQuery("what turns the mill?"))
	require.NoError(t, err)
	assert.Empty(t, answer.Error)
	assert.Equal(t, []string{"a.txt", "b.txt"}, answer.Sources)
	assert.Contains(t, answer.Answer, "Question: what turns the mill?")
	assert.Contains(t, answer.Answer, "[From: b.txt]")
	assert.NotContains(t, answer.Answer, "Unrelated text")
	assert.Equal(t, "llama2", answer.Model)

	msgs, err := f.broker.DrainAll(agents.NameFrontend)
	require.NoError(t, err)
	var kinds []string
	for _, m := range msgs {
		kinds = append(kinds, m.MessageType)
	}
	assert.Contains(t, kinds, core.MessageTypeResultsFormatted)
	assert.Contains(t, kinds, core.MessageTypeAnswerReady)
}

type recordingMonitor struct {
	noopMonitor
	dims     int
	hits     int
	verbatim []string
	dropped  []string
	final    int
}

func (m *recordingMonitor) AfterEmbedding(d int)                   { m.dims = d }
func (m *recordingMonitor) AfterVectorSearch(h []*core.QueryHit)   { m.hits = len(h) }
func (m *recordingMonitor) VerbatimHit(r core.SearchResult)        { m.verbatim = append(m.verbatim, r.File) }
func (m *recordingMonitor) BelowThreshold(r core.SearchResult)     { m.dropped = append(m.dropped, r.File) }
func (m *recordingMonitor) Finish(results []core.SearchResult)     { m.final = len(results) }

func TestSearchWithMonitor(t *testing.T) {
	f := newSearchFixture(t)
	f.seed(t)

	m := &recordingMonitor{}
	_, err := f.searcher.SearchWithMonitor(context.Background(), NewQuery("river mill"), m)
	require.NoError(t, err)
	assert.Equal(t, 2, m.dims)
	assert.Equal(t, 3, m.hits)
	assert.Equal(t, []string{"b.txt"}, m.verbatim)
	assert.Equal(t, []string{"c.txt"}, m.dropped)
	assert.Equal(t, 2, m.final)
}

func TestContainsAllQueryWords(t *testing.T) {
	tests := []struct {
		name     string
		document string
		query    string
		want     bool
	}{
		{"all words present", "The river turns the mill.", "river mill", true},
		{"case and punctuation ignored", "RIVER, (Mill)!", "river mill?", true},
		{"missing word", "The river runs", "river mill", false},
		{"stop words only", "anything at all", "the and of", false},
		{"stop words in query ignored", "river mill", "the river of the mill", true},
		{"question words ignored", "The river turns the mill.", "What turns the mill?", true},
		{"question words only", "who knows", "who what why", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsAllQueryWords(tt.document, tt.query))
		})
	}
}
