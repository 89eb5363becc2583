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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchBuilderMinimal(t *testing.T) {
	b := newSearchBuilder("knowledge_fragments", "knowledge_documents")
	b.setVector("vec")

	sql, args := b.build()
	assert.Contains(t, sql, "FROM knowledge_fragments f JOIN knowledge_documents d")
	assert.Contains(t, sql, "f.status = 'embedded'")
	assert.Contains(t, sql, "f.embedding IS NOT NULL")
	assert.Contains(t, sql, "ORDER BY score DESC, d.created_at DESC")
	assert.NotContains(t, sql, "LIMIT")
	require.Len(t, args, 1)
	assert.Equal(t, "vec", args[0])
}

func TestSearchBuilderFullQuery(t *testing.T) {
	b := newSearchBuilder("kb_fragments", "kb_documents")
	b.setVector("vec")
	b.setMinScore(0.7)
	b.addScope("f.owner_id", "alice")
	b.addScope("f.room_id", "")
	b.addScope("f.world_id", "w-1")
	b.setLimit(5)

	sql, args := b.build()
	assert.Contains(t, sql, "1 - (f.embedding <=> $1) >= $2")
	assert.Contains(t, sql, "f.owner_id = $3")
	assert.NotContains(t, sql, "f.room_id")
	assert.Contains(t, sql, "f.world_id = $4")
	assert.Contains(t, sql, "LIMIT $5")
	assert.Equal(t, []any{"vec", 0.7, "alice", "w-1", 5}, args)
}

func TestSearchBuilderPlaceholdersMatchArgs(t *testing.T) {
	b := newSearchBuilder("f", "d")
	b.setVector("vec")
	b.setMinScore(0.5)
	b.addScope("f.owner_id", "o")
	b.addScope("f.room_id", "r")
	b.addScope("f.world_id", "w")
	b.setLimit(10)

	sql, args := b.build()
	// Highest placeholder index must equal the argument count.
	highest := 0
	for i := 1; i <= len(args); i++ {
		if strings.Contains(sql, "$"+string(rune('0'+i))) {
			highest = i
		}
	}
	assert.Equal(t, len(args), highest)
}

func TestSearchBuilderTitleFallsBackToFilename(t *testing.T) {
	b := newSearchBuilder("f", "d")
	b.setVector("vec")
	sql, _ := b.build()
	assert.Contains(t, sql, "COALESCE(d.metadata->>'document_title', d.filename)")
}
