//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentTitle(t *testing.T) {
	doc := &Document{Filename: "report.pdf"}
	assert.Equal(t, "report.pdf", doc.Title())

	doc.Metadata = map[string]any{MetaDocumentTitle: "Quarterly Report"}
	assert.Equal(t, "Quarterly Report", doc.Title())

	doc.Metadata[MetaDocumentTitle] = ""
	assert.Equal(t, "report.pdf", doc.Title())
}

func TestFragmentEmbeddingText(t *testing.T) {
	frag := &Fragment{RawText: "raw"}
	assert.Equal(t, "raw", frag.EmbeddingText())

	frag.EnrichedText = "context plus raw"
	assert.Equal(t, "context plus raw", frag.EmbeddingText())
}

func TestFragmentIsEmpty(t *testing.T) {
	assert.True(t, (&Fragment{}).IsEmpty())
	assert.True(t, (&Fragment{RawText: " \n\t"}).IsEmpty())
	assert.False(t, (&Fragment{RawText: "x"}).IsEmpty())
}
