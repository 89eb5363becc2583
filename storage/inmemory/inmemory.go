//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory storage implementation.
// It is the reference implementation of the storage contract and the
// default backend for tests and small corpora.
package inmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"trpc.group/trpc-go/trpc-knowledge-go/document"
	"trpc.group/trpc-go/trpc-knowledge-go/storage"
)

// Verify that Store implements the storage.Store interface.
var _ storage.Store = (*Store)(nil)

// Store keeps documents and fragments in maps guarded by one RWMutex.
type Store struct {
	mu          sync.RWMutex
	docs        map[string]*document.Document
	frags       map[string]map[string]*document.Fragment // documentID -> fragmentID -> fragment
	enrichments map[string]*document.ConversationEnrichment

	// dimension is fixed by the first embedded fragment; later writes and
	// searches with a different dimensionality are configuration errors.
	dimension int
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		docs:        make(map[string]*document.Document),
		frags:       make(map[string]map[string]*document.Fragment),
		enrichments: make(map[string]*document.ConversationEnrichment),
	}
}

// ClaimDocument implements the storage.Store interface.
func (s *Store) ClaimDocument(_ context.Context, doc *document.Document) (bool, *document.Document, error) {
	if doc == nil || doc.ID == "" {
		return false, nil, fmt.Errorf("inmemory: document with empty ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.docs[doc.ID]; ok {
		return false, copyDocument(existing), nil
	}
	s.docs[doc.ID] = copyDocument(doc)
	s.frags[doc.ID] = make(map[string]*document.Fragment)
	return true, nil, nil
}

// UpdateDocument implements the storage.Store interface.
func (s *Store) UpdateDocument(_ context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[doc.ID]; !ok {
		return storage.ErrDocumentNotFound
	}
	s.docs[doc.ID] = copyDocument(doc)
	return nil
}

// GetDocument implements the storage.Store interface.
func (s *Store) GetDocument(_ context.Context, documentID string) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[documentID]
	if !ok {
		return nil, storage.ErrDocumentNotFound
	}
	return copyDocument(doc), nil
}

// DeleteDocument implements the storage.Store interface.
// Fragment deletion cascades with the document.
func (s *Store) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[documentID]; !ok {
		return storage.ErrDocumentNotFound
	}
	delete(s.docs, documentID)
	delete(s.frags, documentID)
	return nil
}

// PutFragments implements the storage.Store interface.
func (s *Store) PutFragments(_ context.Context, fragments []*document.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, frag := range fragments {
		if frag.DocumentID == "" {
			return fmt.Errorf("inmemory: fragment %s has no document ID", frag.ID)
		}
		if len(frag.Embedding) > 0 {
			if s.dimension == 0 {
				s.dimension = len(frag.Embedding)
			} else if s.dimension != len(frag.Embedding) {
				return fmt.Errorf("%w: store holds %d-dimension vectors, got %d",
					storage.ErrDimensionMismatch, s.dimension, len(frag.Embedding))
			}
		}
		bucket, ok := s.frags[frag.DocumentID]
		if !ok {
			bucket = make(map[string]*document.Fragment)
			s.frags[frag.DocumentID] = bucket
		}
		bucket[frag.ID] = copyFragment(frag)
	}
	return nil
}

// CountFragments implements the storage.Store interface.
func (s *Store) CountFragments(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frags[documentID]), nil
}

// SearchSimilar implements the storage.Store interface.
// The scan is exact rather than approximate; for an in-memory corpus the
// exact ranking satisfies the approximate-nearest-neighbor contract.
func (s *Store) SearchSimilar(_ context.Context, query *storage.SearchQuery) ([]*storage.ScoredFragment, error) {
	if query == nil || len(query.Vector) == 0 {
		return nil, fmt.Errorf("inmemory: search query with empty vector")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimension != 0 && s.dimension != len(query.Vector) {
		return nil, fmt.Errorf("%w: store holds %d-dimension vectors, query has %d",
			storage.ErrDimensionMismatch, s.dimension, len(query.Vector))
	}

	var results []*storage.ScoredFragment
	for docID, bucket := range s.frags {
		doc := s.docs[docID]
		if doc == nil {
			continue
		}
		for _, frag := range bucket {
			if frag.Status != document.StatusEmbedded || len(frag.Embedding) == 0 {
				continue
			}
			if !matchScope(frag, query.Scope) {
				continue
			}
			score := cosineSimilarity(query.Vector, frag.Embedding)
			if score < query.MinScore {
				continue
			}
			results = append(results, &storage.ScoredFragment{
				Fragment:          copyFragment(frag),
				DocumentTitle:     doc.Title(),
				DocumentCreatedAt: doc.CreatedAt,
				Score:             score,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocumentCreatedAt.After(results[j].DocumentCreatedAt)
	})

	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

// PutEnrichment implements the storage.Store interface.
func (s *Store) PutEnrichment(_ context.Context, record *document.ConversationEnrichment) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("inmemory: enrichment record with empty ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrichments[record.ID] = record
	return nil
}

// GetEnrichment returns a stored enrichment record (mainly for testing).
func (s *Store) GetEnrichment(id string) (*document.ConversationEnrichment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.enrichments[id]
	return rec, ok
}

// Close implements the storage.Store interface.
func (s *Store) Close() error {
	return nil
}

// cosineSimilarity computes the cosine similarity of two equal-length vectors.
func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// matchScope reports whether a fragment's scope metadata satisfies the
// query scope. Empty query fields match everything.
func matchScope(frag *document.Fragment, scope storage.Scope) bool {
	if scope.OwnerID != "" && metaString(frag, document.MetaOwnerID) != scope.OwnerID {
		return false
	}
	if scope.RoomID != "" && metaString(frag, document.MetaRoomID) != scope.RoomID {
		return false
	}
	if scope.WorldID != "" && metaString(frag, document.MetaWorldID) != scope.WorldID {
		return false
	}
	return true
}

func metaString(frag *document.Fragment, key string) string {
	if frag.Metadata == nil {
		return ""
	}
	v, _ := frag.Metadata[key].(string)
	return v
}

func copyDocument(doc *document.Document) *document.Document {
	cp := *doc
	if doc.Metadata != nil {
		cp.Metadata = make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

func copyFragment(frag *document.Fragment) *document.Fragment {
	cp := *frag
	if frag.Metadata != nil {
		cp.Metadata = make(map[string]any, len(frag.Metadata))
		for k, v := range frag.Metadata {
			cp.Metadata[k] = v
		}
	}
	if frag.Embedding != nil {
		cp.Embedding = append([]float64(nil), frag.Embedding...)
	}
	return &cp
}
