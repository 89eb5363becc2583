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
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// identityPrefixBytes bounds how much content feeds the identity hash, so
// resolving an ID stays cheap for large uploads. Two documents differing only
// beyond this prefix still get distinct IDs in practice because filename and
// size rarely coincide; exact-duplicate detection is the goal, not integrity.
const identityPrefixBytes = 2048

// ResolveDocumentID derives a deterministic document ID from the upload's
// content and identity fields. The same bytes submitted twice by the same
// owner under the same name resolve to the same ID, which is what makes
// re-ingestion idempotent.
func ResolveDocumentID(content []byte, ownerID, filename, contentType string) string {
	h := sha256.New()

	prefix := content
	if len(prefix) > identityPrefixBytes {
		prefix = prefix[:identityPrefixBytes]
	}
	h.Write(prefix)

	// Length-prefix each field so field boundaries cannot collide.
	var sz [8]byte
	binary.BigEndian.PutUint64(sz[:], uint64(len(content)))
	h.Write(sz[:])
	for _, field := range []string{ownerID, filename, contentType} {
		binary.BigEndian.PutUint64(sz[:], uint64(len(field)))
		h.Write(sz[:])
		h.Write([]byte(field))
	}

	return hex.EncodeToString(h.Sum(nil))
}
