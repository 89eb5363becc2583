//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package pgvector provides a PostgreSQL + pgvector storage implementation.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"trpc.group/trpc-go/trpc-knowledge-go/document"
	"trpc.group/trpc-go/trpc-knowledge-go/storage"
)

// Verify that Store implements the storage.Store interface.
var _ storage.Store = (*Store)(nil)

// Defaults.
const (
	// DefaultDimensions matches text-embedding-3-small.
	DefaultDimensions = 1536
	// DefaultTablePrefix prefixes the three tables this store manages.
	DefaultTablePrefix = "knowledge"
)

type options struct {
	connString  string
	dimensions  int
	tablePrefix string
	pool        *pgxpool.Pool
}

// Option represents a functional option for configuring the Store.
type Option func(*options)

// WithConnString sets the PostgreSQL connection string.
func WithConnString(connString string) Option {
	return func(o *options) {
		o.connString = connString
	}
}

// WithDimensions sets the embedding dimensionality of the vector column.
// It must match the embedder serving the owner of this store.
func WithDimensions(dimensions int) Option {
	return func(o *options) {
		if dimensions > 0 {
			o.dimensions = dimensions
		}
	}
}

// WithTablePrefix sets the table name prefix (default "knowledge").
func WithTablePrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.tablePrefix = prefix
		}
	}
}

// WithPool injects an existing connection pool, bypassing WithConnString.
// The caller keeps ownership; Close will not close an injected pool.
func WithPool(pool *pgxpool.Pool) Option {
	return func(o *options) {
		o.pool = pool
	}
}

// Store persists documents and fragments in PostgreSQL, with fragment
// embeddings in a pgvector column searched by cosine distance.
type Store struct {
	pool      *pgxpool.Pool
	ownedPool bool
	o         options

	docTable        string
	fragTable       string
	enrichmentTable string
}

// New creates a pgvector store, connecting and ensuring the schema exists.
func New(ctx context.Context, opts ...Option) (*Store, error) {
	o := options{
		dimensions:  DefaultDimensions,
		tablePrefix: DefaultTablePrefix,
	}
	for _, opt := range opts {
		opt(&o)
	}

	pool := o.pool
	ownedPool := false
	if pool == nil {
		if o.connString == "" {
			return nil, fmt.Errorf("pgvector: connection string not configured")
		}
		config, err := pgxpool.ParseConfig(o.connString)
		if err != nil {
			return nil, fmt.Errorf("pgvector: failed to parse connection string: %w", err)
		}
		config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvector.RegisterTypes(ctx, conn)
		}
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("pgvector: failed to create connection pool: %w", err)
		}
		ownedPool = true
	}

	s := &Store{
		pool:            pool,
		ownedPool:       ownedPool,
		o:               o,
		docTable:        o.tablePrefix + "_documents",
		fragTable:       o.tablePrefix + "_fragments",
		enrichmentTable: o.tablePrefix + "_enrichments",
	}
	if err := s.ensureSchema(ctx); err != nil {
		if ownedPool {
			pool.Close()
		}
		return nil, err
	}
	return s, nil
}

// ensureSchema creates the tables and the vector index when missing.
func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			filename TEXT NOT NULL DEFAULT '',
			content_type TEXT NOT NULL DEFAULT '',
			size_bytes BIGINT NOT NULL DEFAULT 0,
			content BYTEA,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.docTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			sequence_index INT NOT NULL,
			span_start INT NOT NULL,
			span_end INT NOT NULL,
			raw_text TEXT NOT NULL,
			enriched_text TEXT NOT NULL DEFAULT '',
			embedding vector(%d),
			status TEXT NOT NULL,
			owner_id TEXT NOT NULL DEFAULT '',
			room_id TEXT NOT NULL DEFAULT '',
			world_id TEXT NOT NULL DEFAULT '',
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.fragTable, s.docTable, s.o.dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s
			USING hnsw (embedding vector_cosine_ops)`, s.fragTable, s.fragTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_idx ON %s (document_id)`,
			s.fragTable, s.fragTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			conversation_turn_id TEXT NOT NULL,
			query_text TEXT NOT NULL,
			fragments JSONB,
			retrieved_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.enrichmentTable),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pgvector: failed to ensure schema: %w", err)
		}
	}
	return nil
}

// ClaimDocument implements the storage.Store interface. The claim relies on
// the primary-key constraint: INSERT ... ON CONFLICT DO NOTHING leaves
// exactly one winner under concurrent duplicate uploads.
func (s *Store) ClaimDocument(ctx context.Context, doc *document.Document) (bool, *document.Document, error) {
	if doc == nil || doc.ID == "" {
		return false, nil, fmt.Errorf("pgvector: document with empty ID")
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, owner_id, filename, content_type, size_bytes, content, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`, s.docTable),
		doc.ID, doc.OwnerID, doc.Filename, doc.ContentType, doc.SizeBytes,
		doc.Content, doc.Metadata, doc.CreatedAt)
	if err != nil {
		return false, nil, fmt.Errorf("pgvector: failed to claim document: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil, nil
	}

	existing, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

// UpdateDocument implements the storage.Store interface.
func (s *Store) UpdateDocument(ctx context.Context, doc *document.Document) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET owner_id = $2, filename = $3, content_type = $4,
		 size_bytes = $5, content = $6, metadata = $7 WHERE id = $1`, s.docTable),
		doc.ID, doc.OwnerID, doc.Filename, doc.ContentType, doc.SizeBytes,
		doc.Content, doc.Metadata)
	if err != nil {
		return fmt.Errorf("pgvector: failed to update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrDocumentNotFound
	}
	return nil
}

// GetDocument implements the storage.Store interface.
func (s *Store) GetDocument(ctx context.Context, documentID string) (*document.Document, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT id, owner_id, filename, content_type, size_bytes, content, metadata, created_at
		 FROM %s WHERE id = $1`, s.docTable), documentID)

	doc := &document.Document{}
	err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.ContentType,
		&doc.SizeBytes, &doc.Content, &doc.Metadata, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pgvector: failed to get document: %w", err)
	}
	return doc, nil
}

// DeleteDocument implements the storage.Store interface. Fragment deletion
// cascades through the foreign-key constraint.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE id = $1`, s.docTable), documentID)
	if err != nil {
		return fmt.Errorf("pgvector: failed to delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrDocumentNotFound
	}
	return nil
}

// PutFragments implements the storage.Store interface.
func (s *Store) PutFragments(ctx context.Context, fragments []*document.Fragment) error {
	batch := &pgx.Batch{}
	for _, frag := range fragments {
		if len(frag.Embedding) > 0 && len(frag.Embedding) != s.o.dimensions {
			return fmt.Errorf("%w: store configured for %d dimensions, fragment %s has %d",
				storage.ErrDimensionMismatch, s.o.dimensions, frag.ID, len(frag.Embedding))
		}
		batch.Queue(fmt.Sprintf(
			`INSERT INTO %s (id, document_id, sequence_index, span_start, span_end,
			 raw_text, enriched_text, embedding, status, owner_id, room_id, world_id, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			 ON CONFLICT (id) DO UPDATE SET
			 enriched_text = EXCLUDED.enriched_text,
			 embedding = EXCLUDED.embedding,
			 status = EXCLUDED.status,
			 metadata = EXCLUDED.metadata`, s.fragTable),
			frag.ID, frag.DocumentID, frag.SequenceIndex,
			frag.SourceSpan.Start, frag.SourceSpan.End,
			frag.RawText, frag.EnrichedText, toVector(frag.Embedding), string(frag.Status),
			metaString(frag, document.MetaOwnerID),
			metaString(frag, document.MetaRoomID),
			metaString(frag, document.MetaWorldID),
			frag.Metadata, frag.CreatedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range fragments {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("pgvector: failed to store fragment: %w", err)
		}
	}
	return nil
}

// CountFragments implements the storage.Store interface.
func (s *Store) CountFragments(ctx context.Context, documentID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE document_id = $1`, s.fragTable), documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("pgvector: failed to count fragments: %w", err)
	}
	return count, nil
}

// SearchSimilar implements the storage.Store interface. Similarity is
// 1 - cosine distance, ranked by the hnsw index.
func (s *Store) SearchSimilar(ctx context.Context, query *storage.SearchQuery) ([]*storage.ScoredFragment, error) {
	if query == nil || len(query.Vector) == 0 {
		return nil, fmt.Errorf("pgvector: search query with empty vector")
	}
	if len(query.Vector) != s.o.dimensions {
		return nil, fmt.Errorf("%w: store configured for %d dimensions, query has %d",
			storage.ErrDimensionMismatch, s.o.dimensions, len(query.Vector))
	}

	b := newSearchBuilder(s.fragTable, s.docTable)
	b.setVector(toVector(query.Vector))
	b.setMinScore(query.MinScore)
	b.addScope("f.owner_id", query.Scope.OwnerID)
	b.addScope("f.room_id", query.Scope.RoomID)
	b.addScope("f.world_id", query.Scope.WorldID)
	b.setLimit(query.Limit)
	sql, args := b.build()

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector: similarity search failed: %w", err)
	}
	defer rows.Close()

	var results []*storage.ScoredFragment
	for rows.Next() {
		frag := &document.Fragment{}
		var embedding pgvector.Vector
		var status string
		var title string
		var docCreatedAt time.Time
		var score float64
		if err := rows.Scan(&frag.ID, &frag.DocumentID, &frag.SequenceIndex,
			&frag.SourceSpan.Start, &frag.SourceSpan.End,
			&frag.RawText, &frag.EnrichedText, &embedding, &status,
			&frag.Metadata, &frag.CreatedAt,
			&title, &docCreatedAt, &score); err != nil {
			return nil, fmt.Errorf("pgvector: failed to scan search row: %w", err)
		}
		frag.Status = document.FragmentStatus(status)
		frag.Embedding = fromVector(embedding)
		results = append(results, &storage.ScoredFragment{
			Fragment:          frag,
			DocumentTitle:     title,
			DocumentCreatedAt: docCreatedAt,
			Score:             score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: failed to read search rows: %w", err)
	}
	return results, nil
}

// PutEnrichment implements the storage.Store interface.
func (s *Store) PutEnrichment(ctx context.Context, record *document.ConversationEnrichment) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("pgvector: enrichment record with empty ID")
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, conversation_turn_id, query_text, fragments, retrieved_at)
		 VALUES ($1, $2, $3, $4, $5)`, s.enrichmentTable),
		record.ID, record.ConversationTurnID, record.QueryText,
		record.Fragments, record.RetrievedAt)
	if err != nil {
		return fmt.Errorf("pgvector: failed to store enrichment record: %w", err)
	}
	return nil
}

// Close implements the storage.Store interface.
func (s *Store) Close() error {
	if s.ownedPool {
		s.pool.Close()
	}
	return nil
}

func toVector(embedding []float64) any {
	if len(embedding) == 0 {
		return nil
	}
	converted := make([]float32, len(embedding))
	for i, v := range embedding {
		converted[i] = float32(v)
	}
	return pgvector.NewVector(converted)
}

func fromVector(v pgvector.Vector) []float64 {
	slice := v.Slice()
	if len(slice) == 0 {
		return nil
	}
	converted := make([]float64, len(slice))
	for i, f := range slice {
		converted[i] = float64(f)
	}
	return converted
}

func metaString(frag *document.Fragment, key string) string {
	if frag.Metadata == nil {
		return ""
	}
	v, _ := frag.Metadata[key].(string)
	return v
}
