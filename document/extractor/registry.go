//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package extractor defines the interface for content extractors.
package extractor

import (
	"strings"
	"sync"
)

// Builder is a function that creates a new Extractor instance with options.
type Builder func(opts ...Option) Extractor

// Registry manages registration of content extractors keyed by MIME type.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Builder // normalized content type -> builder
}

// globalRegistry is the singleton registry instance.
var globalRegistry = &Registry{
	extractors: make(map[string]Builder),
}

// RegisterExtractor registers an extractor builder for specific content
// types (e.g. "application/pdf"). Later registrations for the same type
// replace earlier ones.
func RegisterExtractor(contentTypes []string, builder Builder) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	for _, ct := range contentTypes {
		globalRegistry.extractors[NormalizeContentType(ct)] = builder
	}
}

// GetExtractor returns a new extractor instance for the given content type
// with options. Returns nil and false if no extractor is registered for the
// type, which callers must treat as an unsupported format.
func GetExtractor(contentType string, opts ...Option) (Extractor, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	builder, exists := globalRegistry.extractors[NormalizeContentType(contentType)]
	if !exists {
		return nil, false
	}
	return builder(opts...), true
}

// GetRegisteredContentTypes returns all registered content types.
func GetRegisteredContentTypes() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	types := make([]string, 0, len(globalRegistry.extractors))
	for ct := range globalRegistry.extractors {
		types = append(types, ct)
	}
	return types
}

// ClearRegistry clears all registered extractors (mainly for testing).
func ClearRegistry() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	globalRegistry.extractors = make(map[string]Builder)
}

// NormalizeContentType lowercases a MIME type and strips any parameters,
// so "Text/Plain; charset=utf-8" matches a registration for "text/plain".
func NormalizeContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}
