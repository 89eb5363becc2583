//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

package pgvector

import (
	"fmt"
	"strings"
)

// searchBuilder assembles the similarity-search statement with positional
// arguments, so every dynamic value goes through a placeholder.
type searchBuilder struct {
	fragTable  string
	docTable   string
	conditions []string
	args       []any
	argIndex   int
	limit      int
}

func newSearchBuilder(fragTable, docTable string) *searchBuilder {
	return &searchBuilder{
		fragTable: fragTable,
		docTable:  docTable,
		argIndex:  1,
	}
}

// setVector registers the query vector as $1. It must be called before any
// other condition because the score expression references $1.
func (b *searchBuilder) setVector(vector any) {
	b.args = append(b.args, vector)
	b.argIndex++
}

func (b *searchBuilder) setMinScore(minScore float64) {
	b.conditions = append(b.conditions,
		fmt.Sprintf("1 - (f.embedding <=> $1) >= $%d", b.argIndex))
	b.args = append(b.args, minScore)
	b.argIndex++
}

// addScope adds an equality condition when the value is non-empty.
func (b *searchBuilder) addScope(field, value string) {
	if value == "" {
		return
	}
	b.conditions = append(b.conditions, fmt.Sprintf("%s = $%d", field, b.argIndex))
	b.args = append(b.args, value)
	b.argIndex++
}

func (b *searchBuilder) setLimit(limit int) {
	b.limit = limit
}

func (b *searchBuilder) build() (string, []any) {
	conditions := append([]string{
		"f.status = 'embedded'",
		"f.embedding IS NOT NULL",
	}, b.conditions...)

	sql := fmt.Sprintf(
		`SELECT f.id, f.document_id, f.sequence_index, f.span_start, f.span_end,
		 f.raw_text, f.enriched_text, f.embedding, f.status, f.metadata, f.created_at,
		 COALESCE(d.metadata->>'document_title', d.filename) AS title,
		 d.created_at AS doc_created_at,
		 1 - (f.embedding <=> $1) AS score
		 FROM %s f JOIN %s d ON d.id = f.document_id
		 WHERE %s
		 ORDER BY score DESC, d.created_at DESC`,
		b.fragTable, b.docTable, strings.Join(conditions, " AND "))

	if b.limit > 0 {
		sql += fmt.Sprintf(" LIMIT $%d", b.argIndex)
		b.args = append(b.args, b.limit)
		b.argIndex++
	}
	return sql, b.args
}
