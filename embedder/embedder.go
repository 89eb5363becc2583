//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package embedder defines the embedding capability consumed by the
// pipeline. The same provider/model must serve both ingestion and query
// embedding for one owner so vector spaces stay comparable.
package embedder

import "context"

// Embedder converts text into fixed-dimension embedding vectors.
type Embedder interface {
	// GetEmbedding generates an embedding vector for the given text.
	GetEmbedding(ctx context.Context, text string) ([]float64, error)

	// GetEmbeddingWithUsage generates an embedding vector and returns
	// provider usage information (e.g. prompt token counts) when available.
	GetEmbeddingWithUsage(ctx context.Context, text string) ([]float64, map[string]any, error)

	// GetDimensions returns the dimensionality of the produced vectors.
	GetDimensions() int
}
