//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package markdown provides the extractor for markdown content.
// Markdown is already human-readable text, so the body passes through the
// textual normalization path; the goldmark AST is used to pull the first
// heading out as the document title.
package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"trpc.group/trpc-go/trpc-knowledge-go/document/extractor"
	"trpc.group/trpc-go/trpc-knowledge-go/document/extractor/text"
)

// supportedContentTypes defines the MIME types handled by this extractor.
var supportedContentTypes = []string{
	"text/markdown",
	"text/x-markdown",
}

// init registers the markdown extractor with the global registry.
func init() {
	extractor.RegisterExtractor(supportedContentTypes, New)
}

// Extractor extracts markdown documents.
type Extractor struct {
	textual extractor.Extractor
	md      goldmark.Markdown
}

// New creates a new markdown extractor with the given options.
func New(opts ...extractor.Option) extractor.Extractor {
	return &Extractor{
		textual: text.New(opts...),
		md:      goldmark.New(),
	}
}

// Name returns the name of this extractor.
func (e *Extractor) Name() string { return "markdown" }

// SupportedContentTypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedContentTypes() []string {
	return supportedContentTypes
}

// Extract normalizes the markdown source and derives a title from its
// first heading.
func (e *Extractor) Extract(data []byte) (*extractor.Result, error) {
	result, err := e.textual.Extract(data)
	if err != nil {
		return nil, err
	}
	result.Title = e.firstHeading([]byte(result.Text))
	return result, nil
}

// firstHeading walks the parsed AST and returns the text of the first
// heading, or an empty string when the document has none.
func (e *Extractor) firstHeading(source []byte) string {
	root := e.md.Parser().Parse(gtext.NewReader(source))

	var title string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		var sb strings.Builder
		for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
			if t, ok := child.(*ast.Text); ok {
				sb.Write(t.Segment.Value(source))
			}
		}
		title = strings.TrimSpace(sb.String())
		return ast.WalkStop, nil
	})
	return title
}
