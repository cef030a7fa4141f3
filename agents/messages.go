package agents

import "github.com/poiesic/retrievio/core"

// Agent mailbox names.
const (
	NameWatcher        = "document_watcher"
	NameParser         = "document_parser"
	NameChunker        = "text_chunker"
	NameEmbedder       = "embedder"
	NameVectorStore    = "vector_store"
	NameQueryProcessor = "query_processor"
	NameQA             = "qa"
	NameEngagement     = "engagement"
	NameFrontend       = "frontend"
)

// Notice summarizes the outcome of a processing step.
type Notice struct {
	Document string
	Count    int
	Error    string
}

// DocumentDetected announces a new file in the watch directory.
type DocumentDetected struct {
	Path string
}

// FlowUpdate reports a flow status change.
type FlowUpdate struct {
	FlowID   string
	Document string
	Status   string
	Step     string
}

// ChunkRequest asks the chunker to split Text.
type ChunkRequest struct {
	Text     string
	Metadata map[string]string
}

// ChunkBatch carries chunks in chunk and embed requests and responses.
type ChunkBatch struct {
	Chunks []core.Chunk
}

// QueryRequest asks the query processor to embed a query.
type QueryRequest struct {
	Query string
}

// EmbeddedQuery is a query with its normalized vector.
type EmbeddedQuery struct {
	Query  string
	Vector []float32
}

// FormatRequest asks the query processor to format raw hits.
type FormatRequest struct {
	Query string
	Hits  []*core.QueryHit
}

// FormattedResults are ranked, user-facing search results.
type FormattedResults struct {
	Query   string
	Results []core.SearchResult
}

// flowMetadata keeps only the keys that identify a flow.
func flowMetadata(md map[string]string) map[string]string {
	if id := md[core.MetaFlowID]; id != "" {
		return map[string]string{core.MetaFlowID: id}
	}
	return nil
}
