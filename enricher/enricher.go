//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package enricher provides the optional contextual-enrichment stage of the
// ingestion pipeline. An enricher produces the text that will be embedded in
// place of a fragment's raw text; the no-op default leaves fragments
// untouched. Enrichment is purely additive: callers treat its failure as a
// degradation to raw text, never as an ingestion error.
package enricher

import (
	"context"

	"trpc.group/trpc-go/trpc-knowledge-go/document"
)

// Generator is the narrow text-generation capability the contextual
// enricher consumes.
type Generator interface {
	// GenerateText produces a completion for the given prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Enricher derives the embedding text for a fragment. An empty result with
// a nil error means "no enrichment"; the fragment's raw text is embedded.
type Enricher interface {
	// Enrich returns the enriched text for the fragment given the full
	// extracted text of its document.
	Enrich(ctx context.Context, frag *document.Fragment, fullText string) (string, error)
}

// Noop is the default enricher: it never modifies fragments.
type Noop struct{}

// NewNoop creates a no-op enricher.
func NewNoop() *Noop { return &Noop{} }

// Enrich implements the Enricher interface.
func (*Noop) Enrich(context.Context, *document.Fragment, string) (string, error) {
	return "", nil
}
