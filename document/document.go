//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package document defines the data model of the knowledge pipeline:
// ingested documents, their searchable fragments, and the usage records
// written after a conversation turn consumed retrieved fragments.
package document

import (
	"strings"
	"time"
)

// Metadata keys attached to fragments during ingestion.
const (
	MetaDocumentTitle = "document_title"
	MetaContentType   = "content_type"
	MetaOwnerID       = "owner_id"
	MetaRoomID        = "room_id"
	MetaWorldID       = "world_id"
)

// Document represents one ingested unit of content. It is created on the
// first successful ingestion of a given content identity and never mutated
// afterwards except for metadata merges.
type Document struct {
	// ID is derived deterministically from content and metadata, see
	// knowledge.ResolveDocumentID. Identical inputs always map to the
	// same ID, which is what makes ingestion idempotent.
	ID string

	// OwnerID scopes the document to one agent or tenant.
	OwnerID string

	// Filename is the original file name supplied at ingestion time.
	Filename string

	// ContentType is the declared MIME type of the original payload.
	ContentType string

	// SizeBytes is the size of the original payload.
	SizeBytes int64

	// Content holds the stored representation: extracted text for
	// textual formats, raw bytes for binary ones.
	Content []byte

	// Metadata is an open key/value map merged from the caller's
	// custom metadata.
	Metadata map[string]any

	CreatedAt time.Time
}

// Title returns the human-readable title of the document, preferring an
// explicit metadata title over the filename.
func (d *Document) Title() string {
	if d.Metadata != nil {
		if t, ok := d.Metadata[MetaDocumentTitle].(string); ok && t != "" {
			return t
		}
	}
	return d.Filename
}

// FragmentStatus describes the embedding state of a fragment.
type FragmentStatus string

// Fragment statuses. A fragment is created pending, moves to embedded once
// its vector is attached, or to failed when embedding retries are exhausted.
const (
	StatusPending  FragmentStatus = "pending"
	StatusEmbedded FragmentStatus = "embedded"
	StatusFailed   FragmentStatus = "failed"
)

// Span marks a half-open byte range [Start, End) into the extracted text of
// the owning document.
type Span struct {
	Start int
	End   int
}

// Fragment is one chunk of a document's extracted text, the unit of
// embedding and retrieval.
type Fragment struct {
	ID         string
	DocumentID string

	// SequenceIndex is the position of this fragment within its document.
	// Indexes are contiguous starting at 0 and fixed at chunk time.
	SequenceIndex int

	// SourceSpan locates the fragment's raw text inside the document's
	// extracted text. Consecutive spans overlap by the chunker's
	// configured overlap; their union covers the full text.
	SourceSpan Span

	// RawText is the chunked text, always retained for display.
	RawText string

	// EnrichedText holds the contextual preamble plus raw text when the
	// enrichment stage is enabled; empty otherwise.
	EnrichedText string

	// Embedding is nil until embedding succeeds. A failed fragment never
	// carries an embedding.
	Embedding []float64

	Status   FragmentStatus
	Metadata map[string]any

	CreatedAt time.Time
}

// EmbeddingText returns the text that should be embedded for this fragment:
// the enriched text when present, the raw text otherwise.
func (f *Fragment) EmbeddingText() string {
	if f.EnrichedText != "" {
		return f.EnrichedText
	}
	return f.RawText
}

// IsEmpty reports whether the fragment holds no usable text.
func (f *Fragment) IsEmpty() bool {
	return strings.TrimSpace(f.RawText) == ""
}

// FragmentRef is a lightweight reference to a fragment that was surfaced to
/// a conversation turn: enough to audit what was used without duplicating
// the fragment itself.
type FragmentRef struct {
	FragmentID    string
	DocumentTitle string
	Score         float64
	TextPreview   string
}

// ConversationEnrichment records which fragments were injected into the
// context of one conversation turn. Records are written best-effort after
// the response and never mutated.
type ConversationEnrichment struct {
	ID                 string
	ConversationTurnID string
	QueryText          string
	Fragments          []FragmentRef
	RetrievedAt        time.Time
}
