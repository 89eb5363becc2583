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
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-knowledge-go/chunking"
	"trpc.group/trpc-go/trpc-knowledge-go/document"
	"trpc.group/trpc-go/trpc-knowledge-go/document/extractor"
	"trpc.group/trpc-go/trpc-knowledge-go/embedder"
	"trpc.group/trpc-go/trpc-knowledge-go/enricher"
	"trpc.group/trpc-go/trpc-knowledge-go/internal/token"
	"trpc.group/trpc-go/trpc-knowledge-go/log"
	"trpc.group/trpc-go/trpc-knowledge-go/provider"
	"trpc.group/trpc-go/trpc-knowledge-go/storage"
	"trpc.group/trpc-go/trpc-knowledge-go/storage/inmemory"
	"trpc.group/trpc-go/trpc-knowledge-go/tracker"
)

// Pipeline defaults.
const (
	defaultEmbedConcurrency = 10
	defaultSearchThreshold  = 0.5
	defaultMaxResults       = 10
	defaultTokenBudget      = 4000
)

// BuiltinKnowledge is the default pipeline implementation. It wires storage,
// extraction, chunking, enrichment and embedding into the Knowledge contract.
type BuiltinKnowledge struct {
	store    storage.Store
	embedder embedder.Embedder
	chunker  chunking.Strategy
	enricher enricher.Enricher
	counter  chunking.TokenCounter
	recorder *tracker.Recorder

	extractorOpts []extractor.Option

	pool        *ants.Pool
	concurrency int

	searchThreshold float64
	maxResults      int
	tokenBudget     int
}

// Option represents a functional option for configuring BuiltinKnowledge.
type Option func(*BuiltinKnowledge)

// WithStorage sets the storage backend. Defaults to the in-memory store.
func WithStorage(store storage.Store) Option {
	return func(b *BuiltinKnowledge) {
		b.store = store
	}
}

// WithEmbedder sets the embedding backend.
func WithEmbedder(e embedder.Embedder) Option {
	return func(b *BuiltinKnowledge) {
		b.embedder = e
	}
}

// WithChunking sets the chunking strategy. Defaults to token chunking.
func WithChunking(strategy chunking.Strategy) Option {
	return func(b *BuiltinKnowledge) {
		b.chunker = strategy
	}
}

// WithEnricher enables contextual enrichment of fragments before embedding.
func WithEnricher(e enricher.Enricher) Option {
	return func(b *BuiltinKnowledge) {
		b.enricher = e
	}
}

// WithEmbedConcurrency bounds how many fragments embed in parallel.
func WithEmbedConcurrency(n int) Option {
	return func(b *BuiltinKnowledge) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithTokenCounter sets the counter used for the search token budget.
func WithTokenCounter(counter chunking.TokenCounter) Option {
	return func(b *BuiltinKnowledge) {
		b.counter = counter
	}
}

// WithProviderRegistry resolves the embedder from a provider registry when
// no explicit embedder was set.
func WithProviderRegistry(r *provider.Registry) Option {
	return func(b *BuiltinKnowledge) {
		if b.embedder != nil {
			return
		}
		if e, ok := provider.SelectEmbedder(r); ok {
			b.embedder = e
		}
	}
}

// WithExtractorOptions forwards options to the extractor resolved per request.
func WithExtractorOptions(opts ...extractor.Option) Option {
	return func(b *BuiltinKnowledge) {
		b.extractorOpts = append(b.extractorOpts, opts...)
	}
}

// WithSearchThreshold sets the default minimum similarity score.
func WithSearchThreshold(threshold float64) Option {
	return func(b *BuiltinKnowledge) {
		if threshold > 0 {
			b.searchThreshold = threshold
		}
	}
}

// WithMaxResults sets the default result cap.
func WithMaxResults(n int) Option {
	return func(b *BuiltinKnowledge) {
		if n > 0 {
			b.maxResults = n
		}
	}
}

// WithTokenBudget sets the default total token budget for search results.
func WithTokenBudget(n int) Option {
	return func(b *BuiltinKnowledge) {
		if n > 0 {
			b.tokenBudget = n
		}
	}
}

// New creates a BuiltinKnowledge with the given options. The returned value
// owns a worker pool and, unless injected, the storage backend; call Close
// when done.
func New(opts ...Option) (*BuiltinKnowledge, error) {
	b := &BuiltinKnowledge{
		concurrency:     defaultEmbedConcurrency,
		searchThreshold: defaultSearchThreshold,
		maxResults:      defaultMaxResults,
		tokenBudget:     defaultTokenBudget,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.embedder == nil {
		return nil, ErrNoEmbedder
	}
	if b.store == nil {
		b.store = inmemory.New()
	}
	if b.chunker == nil {
		b.chunker = chunking.NewTokenChunking()
	}
	if b.counter == nil {
		b.counter = token.MustNew("cl100k_base")
	}
	b.recorder = tracker.New(b.store)

	pool, err := ants.NewPool(b.concurrency)
	if err != nil {
		return nil, fmt.Errorf("create embed worker pool: %w", err)
	}
	b.pool = pool
	return b, nil
}

// Ingest implements Knowledge.
func (b *BuiltinKnowledge) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	if req == nil || len(req.Content) == 0 {
		return nil, ErrEmptyContent
	}
	ext, ok := extractor.GetExtractor(req.ContentType, b.extractorOpts...)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, req.ContentType)
	}

	docID := ResolveDocumentID(req.Content, req.OwnerID, req.Filename, req.ContentType)
	doc := &document.Document{
		ID:          docID,
		OwnerID:     req.OwnerID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		SizeBytes:   int64(len(req.Content)),
		Content:     req.Content,
		Metadata:    documentMetadata(req),
		CreatedAt:   time.Now().UTC(),
	}

	// Claim before extracting: the winner of a concurrent race does the
	// expensive work, everyone else short-circuits on the existing document.
	isNew, existing, err := b.store.ClaimDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("claim document %s: %w", docID, err)
	}
	if !isNew {
		count, err := b.store.CountFragments(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("count fragments of %s: %w", existing.ID, err)
		}
		log.Debugf("document %s already ingested, skipping", existing.ID)
		return &IngestResult{
			DocumentID:    existing.ID,
			WasDuplicate:  true,
			FragmentCount: count,
		}, nil
	}

	result, err := b.processDocument(ctx, doc, ext)
	if err != nil {
		// Nothing from a failed ingestion may stay visible.
		if delErr := b.store.DeleteDocument(context.WithoutCancel(ctx), docID); delErr != nil {
			log.Errorf("rollback of document %s failed: %v", docID, delErr)
		}
		return nil, err
	}
	return result, nil
}

// processDocument runs extract, chunk, enrich, embed and persist for a
// freshly claimed document.
func (b *BuiltinKnowledge) processDocument(
	ctx context.Context,
	doc *document.Document,
	ext extractor.Extractor,
) (*IngestResult, error) {
	extracted, err := ext.Extract(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, doc.Filename, err)
	}
	if extracted.Title != "" {
		doc.Metadata[document.MetaDocumentTitle] = extracted.Title
	}

	fragments, err := b.chunker.Chunk(extracted.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, doc.Filename, err)
	}
	for _, frag := range fragments {
		frag.ID = uuid.NewString()
		frag.DocumentID = doc.ID
		frag.CreatedAt = doc.CreatedAt
		frag.Metadata = fragmentMetadata(doc)
	}

	b.enrichFragments(ctx, fragments, extracted.Text)

	usage, embedded, failed := b.embedFragments(ctx, fragments)

	if err := b.store.PutFragments(ctx, fragments); err != nil {
		return nil, fmt.Errorf("persist fragments of %s: %w", doc.ID, err)
	}

	// Attach the extracted representation; raw bytes already counted in SizeBytes.
	doc.Content = []byte(extracted.Text)
	if err := b.store.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("update document %s: %w", doc.ID, err)
	}

	log.Infof("ingested document %s: %d fragments, %d embedded, %d failed",
		doc.ID, len(fragments), embedded, failed)
	return &IngestResult{
		DocumentID:    doc.ID,
		FragmentCount: len(fragments),
		EmbeddedCount: embedded,
		FailedCount:   failed,
		Usage:         usage,
	}, nil
}

// enrichFragments rewrites each fragment's embedding text with document
// context. Enrichment is optional quality, not correctness: any failure is
// logged and the fragment falls back to its raw text.
func (b *BuiltinKnowledge) enrichFragments(ctx context.Context, fragments []*document.Fragment, fullText string) {
	if b.enricher == nil {
		return
	}
	for _, frag := range fragments {
		enriched, err := b.enricher.Enrich(ctx, frag, fullText)
		if err != nil {
			log.Warnf("enrichment of fragment %s failed, using raw text: %v", frag.ID, err)
			continue
		}
		frag.EnrichedText = enriched
	}
}

// embedFragments embeds all fragments through the shared worker pool. Each
// fragment fails independently: one exhausted retry marks that fragment
// failed and the rest of the document still lands.
func (b *BuiltinKnowledge) embedFragments(
	ctx context.Context,
	fragments []*document.Fragment,
) (usage map[string]any, embedded, failed int) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	usage = make(map[string]any)

	for _, frag := range fragments {
		frag := frag
		wg.Add(1)
		submit := func() {
			defer wg.Done()
			vector, callUsage, err := b.embedder.GetEmbeddingWithUsage(ctx, frag.EmbeddingText())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warnf("embedding of fragment %s failed: %v", frag.ID, err)
				frag.Status = document.StatusFailed
				failed++
				return
			}
			frag.Embedding = vector
			frag.Status = document.StatusEmbedded
			embedded++
			mergeUsage(usage, callUsage)
		}
		if err := b.pool.Submit(submit); err != nil {
			// Pool released mid-flight; run inline rather than lose the fragment.
			submit()
		}
	}
	wg.Wait()
	return usage, embedded, failed
}

// Search implements Knowledge.
func (b *BuiltinKnowledge) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req == nil || req.Query == "" {
		return nil, ErrEmptyQuery
	}
	threshold := b.searchThreshold
	if req.Threshold > 0 {
		threshold = req.Threshold
	}
	maxResults := b.maxResults
	if req.MaxResults > 0 {
		maxResults = req.MaxResults
	}
	budget := b.tokenBudget
	if req.TokenBudget > 0 {
		budget = req.TokenBudget
	}

	vector, err := b.embedder.GetEmbedding(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := b.store.SearchSimilar(ctx, &storage.SearchQuery{
		Vector:   vector,
		Scope:    scopeOf(req.OwnerID, req.RoomID, req.WorldID),
		MinScore: threshold,
		Limit:    maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	result := &SearchResult{}
	used := make([]*storage.ScoredFragment, 0, len(hits))
	for _, hit := range hits {
		text := hit.Fragment.RawText
		cost := b.counter.Count(text)
		if result.TokensUsed+cost > budget {
			break
		}
		result.TokensUsed += cost
		result.Items = append(result.Items, &SearchResultItem{
			FragmentID:    hit.Fragment.ID,
			DocumentID:    hit.Fragment.DocumentID,
			DocumentTitle: hit.DocumentTitle,
			Text:          text,
			Score:         hit.Score,
			Metadata:      hit.Fragment.Metadata,
		})
		used = append(used, hit)
	}

	if req.ConversationTurnID != "" {
		// Recording is best-effort and must not delay response delivery.
		go b.recorder.Record(context.WithoutCancel(ctx), req.ConversationTurnID, req.Query, used)
	}
	return result, nil
}

// GetDocument implements Knowledge.
func (b *BuiltinKnowledge) GetDocument(ctx context.Context, documentID string) (*document.Document, error) {
	return b.store.GetDocument(ctx, documentID)
}

// Delete implements Knowledge.
func (b *BuiltinKnowledge) Delete(ctx context.Context, documentID string) error {
	return b.store.DeleteDocument(ctx, documentID)
}

// Close implements Knowledge.
func (b *BuiltinKnowledge) Close() error {
	if b.pool != nil {
		b.pool.Release()
	}
	return b.store.Close()
}

func documentMetadata(req *IngestRequest) map[string]any {
	meta := make(map[string]any, len(req.CustomMetadata)+2)
	for k, v := range req.CustomMetadata {
		meta[k] = v
	}
	meta[document.MetaContentType] = req.ContentType
	meta[document.MetaOwnerID] = req.OwnerID
	if req.RoomID != "" {
		meta[document.MetaRoomID] = req.RoomID
	}
	if req.WorldID != "" {
		meta[document.MetaWorldID] = req.WorldID
	}
	return meta
}

// fragmentMetadata denormalizes the document's scope onto each fragment so
// scoped search never needs a join back to the document.
func fragmentMetadata(doc *document.Document) map[string]any {
	meta := make(map[string]any, len(doc.Metadata))
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	meta[document.MetaDocumentTitle] = doc.Title()
	return meta
}

// mergeUsage folds one embedding call's usage into the running totals,
// summing numeric values and keeping the latest value otherwise.
func mergeUsage(total, call map[string]any) {
	for k, v := range call {
		switch n := v.(type) {
		case int64:
			if prev, ok := total[k].(int64); ok {
				total[k] = prev + n
				continue
			}
			total[k] = n
		case float64:
			if prev, ok := total[k].(float64); ok {
				total[k] = prev + n
				continue
			}
			total[k] = n
		default:
			total[k] = v
		}
	}
}
