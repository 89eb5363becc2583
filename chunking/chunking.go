//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package chunking provides strategies for splitting extracted text into
// overlapping, token-bounded fragments.
package chunking

import (
	"errors"

	"trpc.group/trpc-go/trpc-knowledge-go/document"
)

// Chunking errors.
var (
	// ErrEmptyText is returned when the text to chunk holds no content.
	ErrEmptyText = errors.New("chunking: empty text")
)

// Default chunking parameters, in tokens.
const (
	defaultChunkSize = 500
	defaultOverlap   = 100
)

// TokenCounter counts model tokens in a piece of text. The production
// implementation lives in internal/token; tests substitute simpler counters.
type TokenCounter interface {
	Count(text string) int
}

// Strategy splits extracted text into an ordered fragment set. The returned
// fragments carry contiguous sequence indexes starting at 0 and source spans
// whose union covers the input text exactly; consecutive spans share the
// configured overlap. The set is complete when Chunk returns and is never
// modified afterwards except for embedding attachment.
type Strategy interface {
	Chunk(text string) ([]*document.Fragment, error)
}
