//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package token provides a tiktoken-go based token counter shared by the
// chunker and the retrieval token-budget enforcement.
package token

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts model tokens in text using a tiktoken codec.
type Counter struct {
	encoding tokenizer.Codec
}

// New creates a tiktoken-based counter for the given model name
// (e.g. "gpt-4o"). If the model is not supported, falls back to cl100k_base
// for broad compatibility.
func New(modelName string) (*Counter, error) {
	enc, err := tokenizer.ForModel(tokenizer.Model(modelName))
	if err != nil {
		enc, err = tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return nil, fmt.Errorf("failed to get fallback tokenizer: %w", err)
		}
	}
	return &Counter{encoding: enc}, nil
}

// MustNew is like New but panics on codec initialization failure. Intended
// for package-level defaults where the cl100k_base tables are known good.
func MustNew(modelName string) *Counter {
	c, err := New(modelName)
	if err != nil {
		panic(err)
	}
	return c
}

// Count returns the token count of text. If encoding fails it falls back to
// a bytes/4 approximation so that sizing decisions degrade instead of
// aborting a pipeline stage.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	toks, _, err := c.encoding.Encode(text)
	if err != nil {
		return (len(text) + 3) / 4
	}
	return len(toks)
}
