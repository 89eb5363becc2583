//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package extractor defines the interface for content extractors and the
// content-type dispatch table that selects one for an ingested payload.
package extractor

// Config holds configuration for extractors.
type Config struct {
	// DetectEncodedPayload enables detection of base64-encoded payloads in
	// textual extractors: when the raw bytes are not valid text but decode
	// cleanly from base64, the decoded form is used instead.
	DetectEncodedPayload bool
}

// Option is a functional option for configuring extractors.
type Option func(*Config)

// WithDetectEncodedPayload enables or disables base64 payload detection.
// It is enabled by default for textual extractors.
func WithDetectEncodedPayload(enabled bool) Option {
	return func(c *Config) {
		c.DetectEncodedPayload = enabled
	}
}

// Result is the outcome of a successful extraction.
type Result struct {
	// Text is the normalized UTF-8 text of the document.
	Text string

	// Title is a best-effort document title (e.g. the first markdown
	// heading). Empty when the format carries no usable title.
	Title string
}

// Extractor converts a raw payload into normalized text. Extraction is
// all-or-nothing: an error means nothing usable was produced and the
// caller must abort ingestion of the payload.
type Extractor interface {
	// Extract converts raw bytes into normalized text.
	Extract(data []byte) (*Result, error)

	// Name returns the name of this extractor.
	Name() string

	// SupportedContentTypes returns the MIME types this extractor handles.
	SupportedContentTypes() []string
}
