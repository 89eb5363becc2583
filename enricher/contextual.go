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

	"trpc.group/trpc-go/trpc-knowledge-go/document"
)

// Default bounds for the contextual preamble and the document excerpt fed
// to the generator.
const (
	defaultMaxDocumentRunes = 8000
)

// Prompt templates keyed by content family. Each asks the generator for a
// short preamble (roughly 60-200 tokens) situating the fragment within its
// document.
const (
	promptGeneral = `<document>
%s
</document>

Here is a chunk from the document above:
<chunk>
%s
</chunk>

Write a short context (one to three sentences) situating this chunk within
the overall document, to improve search retrieval of the chunk. Answer only
with the context.`

	promptPDF = `<document>
%s
</document>

The document above was extracted from a PDF. Here is one chunk of it:
<chunk>
%s
</chunk>

Write a short context (one to three sentences) describing where this chunk
sits in the document's structure and what it covers, to improve search
retrieval. Ignore page artifacts. Answer only with the context.`

	promptCode = `<document>
%s
</document>

The document above contains structured data, code or mathematical notation.
Here is one chunk of it:
<chunk>
%s
</chunk>

Write a short context (one to three sentences) naming the constructs,
symbols or fields this chunk defines or uses and how they relate to the
rest of the document. Answer only with the context.`

	promptTechnical = `<document>
%s
</document>

The document above is technical documentation. Here is one chunk of it:
<chunk>
%s
</chunk>

Write a short context (one to three sentences) stating which feature,
component or procedure this chunk documents and how it fits into the whole
document. Answer only with the context.`
)

// Contextual prepends a generated, document-aware preamble to each
// fragment's raw text before embedding.
type Contextual struct {
	generator        Generator
	contentType      string
	maxDocumentRunes int
}

// ContextualOption represents a functional option for configuring Contextual.
type ContextualOption func(*Contextual)

// WithContentType sets the fallback prompt template family used when a
// fragment carries no content type of its own (e.g. "application/pdf").
func WithContentType(contentType string) ContextualOption {
	return func(c *Contextual) {
		c.contentType = contentType
	}
}

// WithMaxDocumentRunes bounds the document excerpt included in prompts.
func WithMaxDocumentRunes(n int) ContextualOption {
	return func(c *Contextual) {
		if n > 0 {
			c.maxDocumentRunes = n
		}
	}
}

// NewContextual creates a contextual enricher backed by the given generator.
func NewContextual(generator Generator, opts ...ContextualOption) *Contextual {
	c := &Contextual{
		generator:        generator,
		maxDocumentRunes: defaultMaxDocumentRunes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enrich implements the Enricher interface.
func (c *Contextual) Enrich(ctx context.Context, frag *document.Fragment, fullText string) (string, error) {
	if c.generator == nil {
		return "", fmt.Errorf("enricher: generator not configured")
	}
	if frag == nil || frag.IsEmpty() {
		return "", fmt.Errorf("enricher: empty fragment")
	}

	prompt := fmt.Sprintf(c.template(frag), truncateRunes(fullText, c.maxDocumentRunes), frag.RawText)
	preamble, err := c.generator.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("enricher: generation failed: %w", err)
	}
	preamble = strings.TrimSpace(preamble)
	if preamble == "" {
		return "", nil
	}
	return preamble + "\n\n" + frag.RawText, nil
}

// template picks the prompt family for the fragment's document. The content
// type stamped on the fragment during ingestion wins, so one enricher can
// serve mixed-type documents; the configured type is the fallback.
func (c *Contextual) template(frag *document.Fragment) string {
	ct := c.contentType
	if v, ok := frag.Metadata[document.MetaContentType].(string); ok && v != "" {
		ct = v
	}
	ct = strings.ToLower(ct)
	switch {
	case ct == "application/pdf":
		return promptPDF
	case ct == "application/json" || ct == "text/csv" ||
		strings.Contains(ct, "xml"):
		return promptCode
	case strings.Contains(ct, "markdown") || ct == "text/html":
		return promptTechnical
	default:
		return promptGeneral
	}
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
