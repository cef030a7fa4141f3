package search

import "github.com/poiesic/retrievio/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query Query)
	AfterEmbedding(dimensions int)
	AfterVectorSearch(hits []*core.QueryHit)
	VerbatimHit(result core.SearchResult)
	BelowThreshold(result core.SearchResult)
	Finish(results []core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Query)                         {}
func (n *noopMonitor) AfterEmbedding(_ int)                  {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.QueryHit)  {}
func (n *noopMonitor) VerbatimHit(_ core.SearchResult)       {}
func (n *noopMonitor) BelowThreshold(_ core.SearchResult)    {}
func (n *noopMonitor) Finish(_ []core.SearchResult)          {}
