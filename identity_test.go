//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

package knowledge

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDocumentIDDeterministic(t *testing.T) {
	content := []byte("the same bytes every time")
	a := ResolveDocumentID(content, "alice", "notes.txt", "text/plain")
	b := ResolveDocumentID(content, "alice", "notes.txt", "text/plain")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // hex sha256
}

func TestResolveDocumentIDVariesPerField(t *testing.T) {
	content := []byte("shared content")
	base := ResolveDocumentID(content, "alice", "notes.txt", "text/plain")

	assert.NotEqual(t, base, ResolveDocumentID([]byte("other content"), "alice", "notes.txt", "text/plain"))
	assert.NotEqual(t, base, ResolveDocumentID(content, "bob", "notes.txt", "text/plain"))
	assert.NotEqual(t, base, ResolveDocumentID(content, "alice", "other.txt", "text/plain"))
	assert.NotEqual(t, base, ResolveDocumentID(content, "alice", "notes.txt", "text/markdown"))
}

func TestResolveDocumentIDFieldBoundaries(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide across field boundaries.
	a := ResolveDocumentID(nil, "ab", "c", "")
	b := ResolveDocumentID(nil, "a", "bc", "")
	assert.NotEqual(t, a, b)
}

func TestResolveDocumentIDLargeContentUsesLength(t *testing.T) {
	// Two payloads sharing the hashed prefix but differing in total length
	// still get distinct IDs.
	shared := bytes.Repeat([]byte("x"), identityPrefixBytes)
	longer := append(append([]byte{}, shared...), []byte("tail")...)

	a := ResolveDocumentID(shared, "alice", "big.bin", "text/plain")
	b := ResolveDocumentID(longer, "alice", "big.bin", "text/plain")
	assert.NotEqual(t, a, b)
}
