//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

package tracker

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-knowledge-go/document"
	"trpc.group/trpc-go/trpc-knowledge-go/storage"
	"trpc.group/trpc-go/trpc-knowledge-go/storage/inmemory"
)

// captureStore records enrichment writes and can be told to fail them.
type captureStore struct {
	*inmemory.Store
	records []*document.ConversationEnrichment
	fail    bool
}

func newCaptureStore() *captureStore {
	return &captureStore{Store: inmemory.New()}
}

func (s *captureStore) PutEnrichment(_ context.Context, record *document.ConversationEnrichment) error {
	if s.fail {
		return fmt.Errorf("backend unavailable")
	}
	s.records = append(s.records, record)
	return nil
}

func hit(id, title, text string, score float64) *storage.ScoredFragment {
	return &storage.ScoredFragment{
		Fragment:      &document.Fragment{ID: id, RawText: text},
		DocumentTitle: title,
		Score:         score,
	}
}

func TestRecord(t *testing.T) {
	store := newCaptureStore()
	r := New(store)

	r.Record(context.Background(), "turn-1", "what is the refund policy", []*storage.ScoredFragment{
		hit("f-1", "Policies", "refunds take five days", 0.91),
		hit("f-2", "Policies", "contact support first", 0.84),
	})

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "turn-1", rec.ConversationTurnID)
	assert.Equal(t, "what is the refund policy", rec.QueryText)
	assert.False(t, rec.RetrievedAt.IsZero())
	require.Len(t, rec.Fragments, 2)
	assert.Equal(t, "f-1", rec.Fragments[0].FragmentID)
	assert.Equal(t, "Policies", rec.Fragments[0].DocumentTitle)
	assert.Equal(t, 0.91, rec.Fragments[0].Score)
	assert.Equal(t, "refunds take five days", rec.Fragments[0].TextPreview)
}

func TestRecordTruncatesPreview(t *testing.T) {
	store := newCaptureStore()
	r := New(store, WithPreviewRunes(10))

	long := strings.Repeat("é", 40)
	r.Record(context.Background(), "turn-1", "q", []*storage.ScoredFragment{
		hit("f-1", "", long, 0.9),
	})

	require.Len(t, store.records, 1)
	preview := store.records[0].Fragments[0].TextPreview
	assert.Equal(t, strings.Repeat("é", 10), preview)
}

func TestRecordSkipsEmptyInput(t *testing.T) {
	store := newCaptureStore()
	r := New(store)
	ctx := context.Background()

	r.Record(ctx, "", "q", []*storage.ScoredFragment{hit("f-1", "", "text", 0.9)})
	r.Record(ctx, "turn-1", "q", nil)
	r.Record(ctx, "turn-1", "q", []*storage.ScoredFragment{nil, {Fragment: nil}})
	assert.Empty(t, store.records)
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	store := newCaptureStore()
	store.fail = true
	r := New(store)

	assert.NotPanics(t, func() {
		r.Record(context.Background(), "turn-1", "q", []*storage.ScoredFragment{
			hit("f-1", "", "text", 0.9),
		})
	})
	assert.Empty(t, store.records)
}

func TestRecordNilStore(t *testing.T) {
	r := New(nil)
	assert.NotPanics(t, func() {
		r.Record(context.Background(), "turn-1", "q", []*storage.ScoredFragment{
			hit("f-1", "", "text", 0.9),
		})
	})
}
