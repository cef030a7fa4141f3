// Package reembed rebuilds the vectors of stored chunks, typically after the
// embedding model changes.
//
// Records are read from a storage.VectorRepository in batches, their text is
// embedded again with bounded retries, and the normalized vectors are written
// back in place. Progress is reported to an io.Writer.
//
// The retry and normalization helpers are also used by the live embedding
// agents.
package reembed
