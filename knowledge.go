//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package knowledge provides a retrieval-augmented knowledge base: documents
// are ingested once, split into overlapping fragments, embedded, and served
// back through scoped similarity search.
package knowledge

import (
	"context"

	"trpc.group/trpc-go/trpc-knowledge-go/document"
	"trpc.group/trpc-go/trpc-knowledge-go/storage"
)

// IngestRequest describes one document upload.
type IngestRequest struct {
	// Content is the raw uploaded bytes. Must be non-empty.
	Content []byte

	// OwnerID identifies the uploading principal and scopes later searches.
	OwnerID string

	// Filename is the original file name; it doubles as the fallback title.
	Filename string

	// ContentType selects the extractor (e.g. "text/plain", "application/pdf").
	ContentType string

	// RoomID and WorldID are optional scope dimensions.
	RoomID  string
	WorldID string

	// CustomMetadata is carried onto the stored document unchanged.
	CustomMetadata map[string]any
}

// IngestResult reports the outcome of one ingestion.
type IngestResult struct {
	DocumentID string

	// WasDuplicate is true when the content was already known; the rest of
	// the pipeline was skipped and the counters describe the existing state.
	WasDuplicate bool

	// FragmentCount is the total number of fragments produced.
	FragmentCount int

	// EmbeddedCount and FailedCount partition the fragments by whether
	// embedding succeeded after retries.
	EmbeddedCount int
	FailedCount   int

	// Usage aggregates provider usage reported while embedding, keyed the
	// way the embedding backend reports it (e.g. "prompt_tokens").
	Usage map[string]any
}

// SearchRequest describes one retrieval query.
type SearchRequest struct {
	// Query is the natural-language query text. Must be non-empty.
	Query string

	// OwnerID, RoomID and WorldID scope the candidate fragments. Empty
	// fields do not filter.
	OwnerID string
	RoomID  string
	WorldID string

	// Threshold overrides the minimum similarity score when > 0.
	Threshold float64

	// MaxResults overrides the result cap when > 0.
	MaxResults int

	// TokenBudget overrides the total result-token budget when > 0.
	TokenBudget int

	// ConversationTurnID, when set, records which fragments were returned
	// for this turn. Recording is best-effort and never fails the search.
	ConversationTurnID string
}

// SearchResultItem is one retrieved fragment with its ranking context.
type SearchResultItem struct {
	FragmentID    string
	DocumentID    string
	DocumentTitle string
	Text          string
	Score         float64
	Metadata      map[string]any
}

// SearchResult is the ordered outcome of one search.
type SearchResult struct {
	Items []*SearchResultItem

	// TokensUsed is the summed token count of the returned texts.
	TokensUsed int
}

// Knowledge is the knowledge-base contract.
type Knowledge interface {
	// Ingest stores a document end to end: dedup, extract, chunk, enrich,
	// embed, persist. Re-ingesting identical content is a no-op.
	Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error)

	// Search retrieves the fragments most similar to the query, scoped and
	// ranked, within the configured thresholds and token budget.
	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)

	// GetDocument returns a stored document by ID.
	GetDocument(ctx context.Context, documentID string) (*document.Document, error)

	// Delete removes a document and all of its fragments.
	Delete(ctx context.Context, documentID string) error

	// Close releases the worker pool and the storage backend.
	Close() error
}

var _ Knowledge = (*BuiltinKnowledge)(nil)

// scopeOf maps request scope fields onto a storage scope.
func scopeOf(ownerID, roomID, worldID string) storage.Scope {
	return storage.Scope{OwnerID: ownerID, RoomID: roomID, WorldID: worldID}
}
