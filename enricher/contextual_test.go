//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

package enricher

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-knowledge-go/document"
)

// fakeGenerator returns a canned preamble and remembers the last prompt.
type fakeGenerator struct {
	reply      string
	err        error
	lastPrompt string
}

func (g *fakeGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	g.lastPrompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func testFragment(text string) *document.Fragment {
	return &document.Fragment{ID: "f-1", RawText: text}
}

func TestContextualEnrich(t *testing.T) {
	gen := &fakeGenerator{reply: "This chunk covers refund timelines."}
	c := NewContextual(gen)

	enriched, err := c.Enrich(context.Background(), testFragment("refunds take five days"), "full document text")
	require.NoError(t, err)
	assert.Equal(t, "This chunk covers refund timelines.\n\nrefunds take five days", enriched)
	assert.Contains(t, gen.lastPrompt, "full document text")
	assert.Contains(t, gen.lastPrompt, "refunds take five days")
}

func TestContextualEnrichEmptyPreamble(t *testing.T) {
	gen := &fakeGenerator{reply: "   \n"}
	c := NewContextual(gen)

	enriched, err := c.Enrich(context.Background(), testFragment("text"), "doc")
	require.NoError(t, err)
	assert.Empty(t, enriched)
}

func TestContextualEnrichGeneratorFailure(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("model unavailable")}
	c := NewContextual(gen)

	_, err := c.Enrich(context.Background(), testFragment("text"), "doc")
	assert.Error(t, err)
}

func TestContextualEnrichValidation(t *testing.T) {
	c := NewContextual(nil)
	_, err := c.Enrich(context.Background(), testFragment("text"), "doc")
	assert.Error(t, err)

	c = NewContextual(&fakeGenerator{reply: "x"})
	_, err = c.Enrich(context.Background(), nil, "doc")
	assert.Error(t, err)
	_, err = c.Enrich(context.Background(), testFragment("  "), "doc")
	assert.Error(t, err)
}

func TestContextualTruncatesDocumentExcerpt(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	c := NewContextual(gen, WithMaxDocumentRunes(50))

	long := strings.Repeat("w", 500)
	_, err := c.Enrich(context.Background(), testFragment("text"), long)
	require.NoError(t, err)
	assert.NotContains(t, gen.lastPrompt, strings.Repeat("w", 51))
	assert.Contains(t, gen.lastPrompt, strings.Repeat("w", 50))
}

func TestContextualTemplateSelection(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"application/pdf", promptPDF},
		{"application/json", promptCode},
		{"text/csv", promptCode},
		{"application/xml", promptCode},
		{"text/markdown", promptTechnical},
		{"text/html", promptTechnical},
		{"text/plain", promptGeneral},
		{"", promptGeneral},
	}
	for _, tt := range tests {
		c := NewContextual(&fakeGenerator{}, WithContentType(tt.contentType))
		assert.Equal(t, tt.want, c.template(testFragment("chunk")), "content type %q", tt.contentType)
	}
}

func TestContextualTemplateFromFragmentMetadata(t *testing.T) {
	// The fragment's own content type overrides the configured fallback, so
	// one enricher serves documents of mixed types.
	c := NewContextual(&fakeGenerator{}, WithContentType("text/plain"))

	frag := testFragment("chunk")
	frag.Metadata = map[string]any{document.MetaContentType: "application/pdf"}
	assert.Equal(t, promptPDF, c.template(frag))

	frag.Metadata = map[string]any{document.MetaContentType: "text/markdown"}
	assert.Equal(t, promptTechnical, c.template(frag))

	// No metadata or a non-string value falls back to the configured type.
	frag.Metadata = nil
	assert.Equal(t, promptGeneral, c.template(frag))
	frag.Metadata = map[string]any{document.MetaContentType: 7}
	assert.Equal(t, promptGeneral, c.template(frag))
}

func TestNoopEnricher(t *testing.T) {
	enriched, err := NewNoop().Enrich(context.Background(), testFragment("text"), "doc")
	require.NoError(t, err)
	assert.Empty(t, enriched)
}
