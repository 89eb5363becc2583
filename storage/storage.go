//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package storage defines the persistence and query surface for documents,
// fragments and conversation-enrichment records. Implementations must be
// safe under concurrent access from multiple ingestions and retrievals, and
// fragments written by PutFragments must be visible to SearchSimilar as soon
// as the write returns.
package storage

import (
	"context"
	"errors"
	"time"

	"trpc.group/trpc-go/trpc-knowledge-go/document"
)

// Storage errors.
var (
	// ErrDocumentNotFound is returned when a document ID is unknown.
	ErrDocumentNotFound = errors.New("storage: document not found")

	// ErrDimensionMismatch is returned when a vector's dimensionality does
	// not match the store's configured embedding space. This indicates
	// misconfiguration, never a transient failure.
	ErrDimensionMismatch = errors.New("storage: embedding dimension mismatch")
)

// Scope filters a search to an owner and optionally a room/world.
// Empty fields do not filter.
type Scope struct {
	OwnerID string
	RoomID  string
	WorldID string
}

// SearchQuery is a similarity search request over stored fragments.
type SearchQuery struct {
	// Vector is the query embedding.
	Vector []float64

	// Scope restricts which fragments are candidates.
	Scope Scope

	// MinScore is the minimum similarity score; fragments below it are
	// filtered out before ranking.
	MinScore float64

	// Limit caps the number of returned fragments. Non-positive means no cap.
	Limit int
}

// ScoredFragment is one similarity search hit.
type ScoredFragment struct {
	Fragment *document.Fragment

	// DocumentTitle and DocumentCreatedAt come from the owning document;
	// the creation time breaks ranking ties (newer document wins).
	DocumentTitle     string
	DocumentCreatedAt time.Time

	Score float64
}

// Store is the storage layer contract.
type Store interface {
	// ClaimDocument atomically inserts the document unless one with the
	// same ID exists. It returns isNew=true when the claim succeeded, or
	// isNew=false plus the existing document when it was already present.
	// Concurrent claims of the same ID must resolve to exactly one winner.
	ClaimDocument(ctx context.Context, doc *document.Document) (isNew bool, existing *document.Document, err error)

	// UpdateDocument replaces the stored document (used to attach the
	// extracted representation after a successful claim).
	UpdateDocument(ctx context.Context, doc *document.Document) error

	// GetDocument returns the document or ErrDocumentNotFound.
	GetDocument(ctx context.Context, documentID string) (*document.Document, error)

	// DeleteDocument removes the document and cascades to its fragments.
	// Returns ErrDocumentNotFound when the ID is unknown.
	DeleteDocument(ctx context.Context, documentID string) error

	// PutFragments persists fragments (inserting or replacing by ID).
	PutFragments(ctx context.Context, fragments []*document.Fragment) error

	// CountFragments returns the number of stored fragments for a document.
	CountFragments(ctx context.Context, documentID string) (int, error)

	// SearchSimilar runs an approximate similarity search. Results are
	// ordered by descending score, ties broken by document recency, and
	// only fragments with status embedded are candidates.
	SearchSimilar(ctx context.Context, query *SearchQuery) ([]*ScoredFragment, error)

	// PutEnrichment persists a conversation-enrichment record.
	PutEnrichment(ctx context.Context, record *document.ConversationEnrichment) error

	// Close releases any resources held by the store.
	Close() error
}
