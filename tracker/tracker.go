//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package tracker records which retrieved fragments were actually used in a
// conversation turn. Writes are best-effort: a failed record is logged and
// dropped, never surfaced to the response path.
package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-knowledge-go/document"
	"trpc.group/trpc-go/trpc-knowledge-go/log"
	"trpc.group/trpc-go/trpc-knowledge-go/storage"
)

// defaultPreviewRunes bounds the per-fragment text preview stored with a record.
const defaultPreviewRunes = 160

// Recorder persists conversation-enrichment records.
type Recorder struct {
	store        storage.Store
	previewRunes int
}

// Option represents a functional option for configuring the Recorder.
type Option func(*Recorder)

// WithPreviewRunes sets the maximum length of the stored text previews.
func WithPreviewRunes(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.previewRunes = n
		}
	}
}

// New creates a recorder writing to the given store.
func New(store storage.Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:        store,
		previewRunes: defaultPreviewRunes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record persists an enrichment record for one conversation turn. It never
// returns an error: failures are logged and swallowed so response delivery
// is never delayed or failed by auditing.
func (r *Recorder) Record(ctx context.Context, conversationTurnID, queryText string, used []*storage.ScoredFragment) {
	if r.store == nil || conversationTurnID == "" || len(used) == 0 {
		return
	}

	refs := make([]document.FragmentRef, 0, len(used))
	for _, sf := range used {
		if sf == nil || sf.Fragment == nil {
			continue
		}
		refs = append(refs, document.FragmentRef{
			FragmentID:    sf.Fragment.ID,
			DocumentTitle: sf.DocumentTitle,
			Score:         sf.Score,
			TextPreview:   truncateRunes(sf.Fragment.RawText, r.previewRunes),
		})
	}
	if len(refs) == 0 {
		return
	}

	record := &document.ConversationEnrichment{
		ID:                 uuid.NewString(),
		ConversationTurnID: conversationTurnID,
		QueryText:          queryText,
		Fragments:          refs,
		RetrievedAt:        time.Now().UTC(),
	}
	if err := r.store.PutEnrichment(ctx, record); err != nil {
		log.Warnf("failed to record conversation enrichment for turn %s: %v", conversationTurnID, err)
	}
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
