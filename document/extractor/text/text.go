//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package text provides the extractor for already-textual content types.
// It normalizes encodings (BOM handling, UTF-16 transcoding, NFC) and
// detects payloads that arrive base64-encoded instead of as plain text.
package text

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"trpc.group/trpc-go/trpc-knowledge-go/document/extractor"
)

// supportedContentTypes defines the MIME types handled by this extractor.
var supportedContentTypes = []string{
	"text/plain",
	"text/html",
	"text/csv",
	"text/xml",
	"application/json",
	"application/xml",
}

// init registers the text extractor with the global registry.
func init() {
	extractor.RegisterExtractor(supportedContentTypes, New)
}

// Extractor passes textual payloads through after encoding normalization.
type Extractor struct {
	detectEncoded bool
}

// New creates a new text extractor with the given options.
func New(opts ...extractor.Option) extractor.Extractor {
	config := &extractor.Config{
		DetectEncodedPayload: true,
	}
	for _, opt := range opts {
		opt(config)
	}
	return &Extractor{detectEncoded: config.DetectEncodedPayload}
}

// Name returns the name of this extractor.
func (e *Extractor) Name() string { return "text" }

// SupportedContentTypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedContentTypes() []string {
	return supportedContentTypes
}

// Extract normalizes the payload to plain UTF-8 text.
func (e *Extractor) Extract(data []byte) (*extractor.Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	if e.detectEncoded {
		if decoded, ok := decodeBase64Payload(data); ok {
			data = decoded
		}
	}

	text, err := NormalizeText(data)
	if err != nil {
		return nil, err
	}
	return &extractor.Result{Text: text}, nil
}

// NormalizeText transcodes a textual payload to NFC-normalized UTF-8 with
// unix line endings. UTF-8 and UTF-16 byte order marks are honored and
// stripped. Payloads that are not valid text after transcoding are rejected.
func NormalizeText(data []byte) (string, error) {
	// BOMOverride transcodes UTF-16 payloads and strips a UTF-8 BOM;
	// BOM-less input passes through as UTF-8.
	decoder := xunicode.BOMOverride(xunicode.UTF8.NewDecoder())
	decoded, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", fmt.Errorf("failed to decode payload: %w", err)
	}
	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("payload is not valid UTF-8 text")
	}

	text := string(norm.NFC.Bytes(decoded))
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text, nil
}

// decodeBase64Payload reports whether the payload looks like a
// base64-encoded document rather than literal text, and returns the decoded
// bytes when it does. Ordinary prose never matches: it contains spaces or
// characters outside the base64 alphabet.
func decodeBase64Payload(data []byte) ([]byte, bool) {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) < 16 || len(trimmed)%4 != 0 {
		return nil, false
	}
	for _, r := range trimmed {
		if !isBase64Rune(r) {
			return nil, false
		}
	}
	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, false
	}
	if !utf8.Valid(decoded) || !mostlyPrintable(decoded) {
		return nil, false
	}
	return decoded, true
}

func isBase64Rune(r rune) bool {
	return r >= 'A' && r <= 'Z' ||
		r >= 'a' && r <= 'z' ||
		r >= '0' && r <= '9' ||
		r == '+' || r == '/' || r == '='
}

// mostlyPrintable guards against base64 strings that decode into binary
// garbage: at least 90% of the decoded runes must be printable or spacing.
func mostlyPrintable(data []byte) bool {
	total, printable := 0, 0
	for _, r := range string(data) {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	if total == 0 {
		return false
	}
	return printable*10 >= total*9
}
