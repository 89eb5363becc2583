//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package pdf provides the extractor for PDF documents.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"trpc.group/trpc-go/trpc-knowledge-go/document/extractor"
)

// supportedContentTypes defines the MIME types handled by this extractor.
var supportedContentTypes = []string{
	"application/pdf",
}

// init registers the PDF extractor with the global registry.
func init() {
	extractor.RegisterExtractor(supportedContentTypes, New)
}

// Extractor extracts plain text from PDF payloads.
type Extractor struct{}

// New creates a new PDF extractor with the given options.
func New(opts ...extractor.Option) extractor.Extractor {
	config := &extractor.Config{}
	for _, opt := range opts {
		opt(config)
	}
	return &Extractor{}
}

// Name returns the name of this extractor.
func (e *Extractor) Name() string { return "pdf" }

// SupportedContentTypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedContentTypes() []string {
	return supportedContentTypes
}

// Extract parses the PDF and concatenates the plain text of every page.
// A PDF from which no text can be recovered (e.g. a pure image scan) is an
// extraction failure, not an empty success.
func (e *Extractor) Extract(data []byte) (*extractor.Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	var buf bytes.Buffer
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not void the rest.
			continue
		}
		buf.WriteString(pageText)
		buf.WriteString("\n")
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return nil, fmt.Errorf("no extractable text in PDF (%d pages)", totalPage)
	}
	return &extractor.Result{Text: text}, nil
}
