//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

package knowledge

import (
	"errors"

	"trpc.group/trpc-go/trpc-knowledge-go/storage"
)

// Errors returned by the knowledge pipeline.
var (
	// ErrEmptyContent is returned when an ingestion request carries no bytes.
	ErrEmptyContent = errors.New("knowledge: empty content")

	// ErrUnsupportedContentType is returned when no extractor is registered
	// for the request's content type.
	ErrUnsupportedContentType = errors.New("knowledge: unsupported content type")

	// ErrExtractionFailed wraps extractor failures (corrupt or malformed input).
	ErrExtractionFailed = errors.New("knowledge: extraction failed")

	// ErrEmptyQuery is returned when a search request has an empty query text.
	ErrEmptyQuery = errors.New("knowledge: empty query")

	// ErrNoEmbedder is returned when neither an embedder option nor a
	// provider registry entry supplies one.
	ErrNoEmbedder = errors.New("knowledge: no embedder configured")

	// ErrDocumentNotFound aliases the storage error so callers can match it
	// without importing the storage package.
	ErrDocumentNotFound = storage.ErrDocumentNotFound

	// ErrDimensionMismatch aliases the storage error for embedding vectors
	// whose dimensionality does not match the store's embedding space.
	ErrDimensionMismatch = storage.ErrDimensionMismatch
)
