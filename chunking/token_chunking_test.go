//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

package chunking

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-knowledge-go/document"
)

// wordCounter counts each whitespace-separated word as one token, which makes
// fragment boundaries predictable in tests.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func newTestChunker(size, overlap int) *TokenChunking {
	return NewTokenChunking(
		WithChunkSize(size),
		WithOverlap(overlap),
		WithTokenCounter(wordCounter{}),
	)
}

func wordsText(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "word%04d", i)
	}
	return sb.String()
}

func TestChunkEmptyText(t *testing.T) {
	tc := newTestChunker(100, 10)
	_, err := tc.Chunk("")
	assert.ErrorIs(t, err, ErrEmptyText)
	_, err = tc.Chunk("   \n\t ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestChunkShortTextSingleFragment(t *testing.T) {
	tc := newTestChunker(100, 10)
	frags, err := tc.Chunk("hello world")
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, "hello world", frags[0].RawText)
	assert.Equal(t, 0, frags[0].SequenceIndex)
	assert.Equal(t, document.StatusPending, frags[0].Status)
	assert.Equal(t, document.Span{Start: 0, End: len("hello world")}, frags[0].SourceSpan)
}

func TestChunkFragmentCountWithOverlap(t *testing.T) {
	// 1200 one-token words at size 500 / overlap 100 advance 400 units per
	// fragment: [0,500), [400,900), [800,1200).
	text := wordsText(1200)
	tc := newTestChunker(500, 100)

	frags, err := tc.Chunk(text)
	require.NoError(t, err)
	require.Len(t, frags, 3)

	counter := wordCounter{}
	for _, frag := range frags {
		assert.LessOrEqual(t, counter.Count(frag.RawText), 500)
	}
	assert.Equal(t, 0, frags[0].SourceSpan.Start)
	assert.Equal(t, len(text), frags[2].SourceSpan.End)
}

func TestChunkCoversAllText(t *testing.T) {
	text := "First sentence here. Second one follows! Third asks a question? " +
		"Then a line break\nand a paragraph break.\n\nFinal paragraph text."
	tc := newTestChunker(6, 2)

	frags, err := tc.Chunk(text)
	require.NoError(t, err)
	require.NotEmpty(t, frags)

	// Every byte of the input must be covered by some fragment span.
	assert.Equal(t, 0, frags[0].SourceSpan.Start)
	assert.Equal(t, len(text), frags[len(frags)-1].SourceSpan.End)
	for i := 1; i < len(frags); i++ {
		assert.LessOrEqual(t, frags[i].SourceSpan.Start, frags[i-1].SourceSpan.End,
			"gap between fragments %d and %d", i-1, i)
		assert.Greater(t, frags[i].SourceSpan.End, frags[i-1].SourceSpan.End)
		assert.Equal(t, i, frags[i].SequenceIndex)
	}
	for _, frag := range frags {
		assert.Equal(t, text[frag.SourceSpan.Start:frag.SourceSpan.End], frag.RawText)
	}
}

func TestChunkConsecutiveFragmentsOverlap(t *testing.T) {
	text := wordsText(30)
	tc := newTestChunker(10, 3)

	frags, err := tc.Chunk(text)
	require.NoError(t, err)
	require.Greater(t, len(frags), 1)

	for i := 1; i < len(frags); i++ {
		assert.Less(t, frags[i].SourceSpan.Start, frags[i-1].SourceSpan.End,
			"fragments %d and %d should share trailing text", i-1, i)
	}
}

func TestChunkSentenceBoundariesPreferred(t *testing.T) {
	text := "One two three. Four five six. Seven eight nine."
	tc := newTestChunker(4, 0)

	frags, err := tc.Chunk(text)
	require.NoError(t, err)
	require.Len(t, frags, 3)
	assert.Equal(t, "One two three. ", frags[0].RawText)
	assert.Equal(t, "Four five six. ", frags[1].RawText)
	assert.Equal(t, "Seven eight nine.", frags[2].RawText)
}

func TestChunkParagraphBoundaryPreferred(t *testing.T) {
	// The budget lands after "Five six. " but a paragraph break sits within
	// lookback range, so the cut moves there.
	tc := newTestChunker(6, 0)

	frags, err := tc.Chunk("One two three four.\n\nFive six. Seven eight.")
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, "One two three four.\n\n", frags[0].RawText)
	assert.Equal(t, "Five six. Seven eight.", frags[1].RawText)
}

func TestChunkLineBoundaryPreferredOverSentence(t *testing.T) {
	tc := newTestChunker(6, 0)

	frags, err := tc.Chunk("One two three four\nfive six. Seven eight nine ten.")
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, "One two three four\n", frags[0].RawText)
	assert.Equal(t, "five six. Seven eight nine ten.", frags[1].RawText)
}

func TestChunkDistantStrongBoundaryNotTaken(t *testing.T) {
	// The paragraph break sits more than half a chunk behind the forced cut,
	// so the cut stays at the sentence boundary the budget landed on.
	tc := newTestChunker(6, 0)

	frags, err := tc.Chunk("One two.\n\nThree four. Five six. Seven eight.")
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, "One two.\n\nThree four. Five six. ", frags[0].RawText)
	assert.Equal(t, "Seven eight.", frags[1].RawText)
}

func TestChunkAbbreviationDoesNotSplit(t *testing.T) {
	// A period not followed by spacing is not a sentence boundary.
	text := "The value 3.14159 stays intact"
	tc := newTestChunker(100, 0)

	frags, err := tc.Chunk(text)
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, text, frags[0].RawText)
}

func TestChunkOversizedWordHardSplit(t *testing.T) {
	// A single 400-rune word with a rune counter must still be split.
	tc := NewTokenChunking(
		WithChunkSize(100),
		WithOverlap(0),
		WithTokenCounter(runeCounter{}),
	)
	text := strings.Repeat("a", 400)

	frags, err := tc.Chunk(text)
	require.NoError(t, err)
	require.Greater(t, len(frags), 1)
	var rebuilt strings.Builder
	for _, frag := range frags {
		assert.LessOrEqual(t, len(frag.RawText), 100)
		rebuilt.WriteString(frag.RawText)
	}
	assert.Equal(t, text, rebuilt.String())
}

type runeCounter struct{}

func (runeCounter) Count(text string) int { return len([]rune(text)) }

func TestChunkOverlapClampedBelowChunkSize(t *testing.T) {
	tc := NewTokenChunking(
		WithChunkSize(10),
		WithOverlap(50),
		WithTokenCounter(wordCounter{}),
	)
	// Overlap >= size would never advance; it must be clamped.
	assert.Less(t, tc.overlap, tc.chunkSize)

	frags, err := tc.Chunk(wordsText(100))
	require.NoError(t, err)
	for i := 1; i < len(frags); i++ {
		assert.Greater(t, frags[i].SourceSpan.End, frags[i-1].SourceSpan.End)
	}
}

func TestChunkDefaultCounter(t *testing.T) {
	tc := NewTokenChunking(WithChunkSize(50), WithOverlap(10))
	frags, err := tc.Chunk("Tokenized with the real tokenizer, no custom counter.")
	require.NoError(t, err)
	require.Len(t, frags, 1)
}
