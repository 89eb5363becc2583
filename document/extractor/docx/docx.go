//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package docx provides the extractor for word-processor documents.
package docx

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gonfva/docxlib"

	"trpc.group/trpc-go/trpc-knowledge-go/document/extractor"
)

// supportedContentTypes defines the MIME types handled by this extractor.
var supportedContentTypes = []string{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/msword",
}

// init registers the DOCX extractor with the global registry.
func init() {
	extractor.RegisterExtractor(supportedContentTypes, New)
}

// Extractor extracts plain text from DOCX payloads.
type Extractor struct{}

// New creates a new DOCX extractor with the given options.
func New(opts ...extractor.Option) extractor.Extractor {
	config := &extractor.Config{}
	for _, opt := range opts {
		opt(config)
	}
	return &Extractor{}
}

// Name returns the name of this extractor.
func (e *Extractor) Name() string { return "docx" }

// SupportedContentTypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedContentTypes() []string {
	return supportedContentTypes
}

// Extract parses the DOCX archive and joins paragraph runs with newlines.
func (e *Extractor) Extract(data []byte) (*extractor.Result, error) {
	doc, err := docxlib.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOCX: %w", err)
	}

	var sb strings.Builder
	for _, para := range doc.Paragraphs() {
		var line strings.Builder
		for _, child := range para.Children() {
			if child.Run != nil && child.Run.Text != nil {
				line.WriteString(child.Run.Text.Text)
			}
			if child.Link != nil {
				line.WriteString(child.Link.Run.InstrText)
			}
		}
		if strings.TrimSpace(line.String()) == "" {
			continue
		}
		sb.WriteString(line.String())
		sb.WriteString("\n\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, fmt.Errorf("no extractable text in DOCX")
	}
	return &extractor.Result{Text: text}, nil
}
