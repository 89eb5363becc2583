//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package provider implements an explicit, owned registry of capability
// providers ordered by priority. Selection is a pure function over the
// registry contents: highest priority wins, ties are broken by registration
// order, so provider choice stays deterministic and testable without any
// ambient global state.
package provider

import (
	"sort"
	"sync"

	"trpc.group/trpc-go/trpc-knowledge-go/embedder"
	"trpc.group/trpc-go/trpc-knowledge-go/enricher"
)

// Capability identifies what a registered provider can do.
type Capability string

// Capabilities consumed by this module.
const (
	CapabilityEmbedding  Capability = "embedding"
	CapabilityGeneration Capability = "generation"
)

// Entry is one registered provider.
type Entry struct {
	Capability Capability
	Name       string
	Priority   int
	Value      any

	// order is the registration sequence number, used to break priority ties.
	order int
}

// Registry holds provider registrations. The zero value is not usable;
// create one with NewRegistry.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	nextOrd int
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a provider for a capability. Registering the same name
// again adds a new entry; selection still follows priority and order.
func (r *Registry) Register(capability Capability, name string, priority int, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{
		Capability: capability,
		Name:       name,
		Priority:   priority,
		Value:      value,
		order:      r.nextOrd,
	})
	r.nextOrd++
}

// Entries returns the providers for a capability sorted by descending
// priority, ties broken by registration order.
func (r *Registry) Entries(capability Capability) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, e := range r.entries {
		if e.Capability == capability {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].order < out[j].order
	})
	return out
}

// Select returns the highest-priority provider for a capability.
func (r *Registry) Select(capability Capability) (any, bool) {
	entries := r.Entries(capability)
	if len(entries) == 0 {
		return nil, false
	}
	return entries[0].Value, true
}

// RegisterEmbedder registers an embedding provider.
func RegisterEmbedder(r *Registry, name string, priority int, e embedder.Embedder) {
	r.Register(CapabilityEmbedding, name, priority, e)
}

// SelectEmbedder returns the highest-priority embedding provider.
func SelectEmbedder(r *Registry) (embedder.Embedder, bool) {
	v, ok := r.Select(CapabilityEmbedding)
	if !ok {
		return nil, false
	}
	e, ok := v.(embedder.Embedder)
	return e, ok
}

// RegisterGenerator registers a text-generation provider.
func RegisterGenerator(r *Registry, name string, priority int, g enricher.Generator) {
	r.Register(CapabilityGeneration, name, priority, g)
}

// SelectGenerator returns the highest-priority text-generation provider.
func SelectGenerator(r *Registry) (enricher.Generator, bool) {
	v, ok := r.Select(CapabilityGeneration)
	if !ok {
		return nil, false
	}
	g, ok := v.(enricher.Generator)
	return g, ok
}
