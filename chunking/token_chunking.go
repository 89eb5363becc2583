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
	"strings"
	"unicode"

	"trpc.group/trpc-go/trpc-knowledge-go/document"
	"trpc.group/trpc-go/trpc-knowledge-go/internal/token"
)

// TokenChunking splits text into fragments bounded by a token budget,
// preferring structural boundaries in priority order: paragraph break,
// line break, sentence terminator, whitespace. A hard cut inside a word is
// the last resort for pathological inputs.
type TokenChunking struct {
	chunkSize int
	overlap   int
	counter   TokenCounter
}

// Option represents a functional option for configuring TokenChunking.
type Option func(*TokenChunking)

// WithChunkSize sets the target size of each fragment in tokens.
func WithChunkSize(size int) Option {
	return func(tc *TokenChunking) {
		if size > 0 {
			tc.chunkSize = size
		}
	}
}

// WithOverlap sets the number of tokens shared between consecutive fragments.
func WithOverlap(overlap int) Option {
	return func(tc *TokenChunking) {
		if overlap >= 0 {
			tc.overlap = overlap
		}
	}
}

// WithTokenCounter sets a custom token counter.
func WithTokenCounter(counter TokenCounter) Option {
	return func(tc *TokenChunking) {
		if counter != nil {
			tc.counter = counter
		}
	}
}

// NewTokenChunking creates a new token-aware chunking strategy with options.
func NewTokenChunking(opts ...Option) *TokenChunking {
	tc := &TokenChunking{
		chunkSize: defaultChunkSize,
		overlap:   defaultOverlap,
	}
	for _, opt := range opts {
		opt(tc)
	}
	if tc.counter == nil {
		tc.counter = token.MustNew("cl100k_base")
	}
	// Overlap must leave room for the fragment to advance.
	if tc.overlap >= tc.chunkSize {
		tc.overlap = min(defaultOverlap, tc.chunkSize-1)
	}
	return tc
}

// span marks a half-open byte range into the input text. rank grades the
// structural boundary the span ends on: 2 for a paragraph break, 1 for a
// line break, 0 for a sentence terminator or no boundary at all.
type span struct {
	start int
	end   int
	rank  int
}

// Chunk implements the Strategy interface.
func (tc *TokenChunking) Chunk(text string) ([]*document.Fragment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	units := tc.splitUnits(text)

	var fragments []*document.Fragment
	i := 0
	for i < len(units) {
		// Fill the fragment with whole units up to the token budget.
		// The first unit is always taken so progress is guaranteed.
		tokens := 0
		j := i
		for j < len(units) {
			t := tc.counter.Count(text[units[j].start:units[j].end])
			if j > i && tokens+t > tc.chunkSize {
				break
			}
			tokens += t
			j++
		}
		if j < len(units) {
			// When the budget forced the cut, prefer a stronger
			// structural boundary within lookback range.
			j = tc.strongestCut(text, units, i, j)
		}

		frag := &document.Fragment{
			SequenceIndex: len(fragments),
			SourceSpan:    document.Span{Start: units[i].start, End: units[j-1].end},
			RawText:       text[units[i].start:units[j-1].end],
			Status:        document.StatusPending,
		}
		fragments = append(fragments, frag)

		if j >= len(units) {
			break
		}

		// Rewind over trailing units whose token total fits the overlap
		// budget; they are shared with the next fragment.
		k := j
		overlapTokens := 0
		for k > i+1 {
			t := tc.counter.Count(text[units[k-1].start:units[k-1].end])
			if overlapTokens+t > tc.overlap {
				break
			}
			overlapTokens += t
			k--
		}
		i = k
	}

	return fragments, nil
}

// strongestCut rewinds the budget-forced cut at j to the nearest unit ending
// on a stronger boundary, dropping at most half a chunk's worth of tokens.
// Priority order: paragraph break, line break, sentence terminator.
func (tc *TokenChunking) strongestCut(text string, units []span, i, j int) int {
	best := j
	bestRank := units[j-1].rank
	lookback := tc.chunkSize / 2
	dropped := 0
	for k := j - 1; k > i; k-- {
		dropped += tc.counter.Count(text[units[k].start:units[k].end])
		if dropped > lookback {
			break
		}
		if units[k-1].rank > bestRank {
			best = k
			bestRank = units[k-1].rank
		}
	}
	return best
}

// splitUnits cuts the text into contiguous spans at structural boundaries.
// Separators stay attached to the preceding unit, so concatenating all unit
// texts reproduces the input exactly. Units whose token count exceeds the
// chunk size are split further by whitespace, then by runes.
func (tc *TokenChunking) splitUnits(text string) []span {
	sentences := splitSentences(text)

	units := make([]span, 0, len(sentences))
	for _, s := range sentences {
		if tc.counter.Count(text[s.start:s.end]) <= tc.chunkSize {
			units = append(units, s)
			continue
		}
		for _, w := range splitWords(text, s) {
			if tc.counter.Count(text[w.start:w.end]) <= tc.chunkSize {
				units = append(units, w)
				continue
			}
			units = append(units, tc.hardSplit(text, w)...)
		}
	}
	return units
}

// splitSentences produces boundaries after paragraph breaks, line breaks and
// sentence terminators. Whitespace following a boundary is folded into the
// preceding unit.
func splitSentences(text string) []span {
	var spans []span
	start := 0
	runes := []rune(text)
	pos := 0 // byte position of runes[idx]
	for idx := 0; idx < len(runes); idx++ {
		r := runes[idx]
		size := len(string(r))
		boundary := false
		newlines := 0
		switch r {
		case '\n':
			boundary = true
			newlines = 1
		case '.', '!', '?':
			// Terminator counts only when followed by spacing, so
			// "3.14" or "e.g." do not end a sentence.
			if idx+1 < len(runes) && unicode.IsSpace(runes[idx+1]) {
				boundary = true
			}
		}
		pos += size
		if !boundary {
			continue
		}
		// Consume the whitespace run following the boundary.
		for idx+1 < len(runes) && unicode.IsSpace(runes[idx+1]) && runes[idx+1] != '\n' {
			idx++
			pos += len(string(runes[idx]))
		}
		// Fold consecutive newlines (paragraph breaks) in as well.
		for idx+1 < len(runes) && runes[idx+1] == '\n' {
			idx++
			newlines++
			pos += len(string(runes[idx]))
		}
		rank := 0
		switch {
		case newlines >= 2:
			rank = 2
		case newlines == 1:
			rank = 1
		}
		spans = append(spans, span{start: start, end: pos, rank: rank})
		start = pos
	}
	if start < len(text) {
		spans = append(spans, span{start: start, end: len(text)})
	}
	return spans
}

// splitWords splits a span at whitespace runs, keeping each run attached to
// the word before it.
func splitWords(text string, s span) []span {
	var spans []span
	segment := text[s.start:s.end]
	start := 0
	inSpace := false
	for i, r := range segment {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			spans = append(spans, span{start: s.start + start, end: s.start + i})
			start = i
			inSpace = false
		}
	}
	if start < len(segment) {
		spans = append(spans, span{start: s.start + start, end: s.end})
	}
	// Only the last piece ends where the parent span ended.
	if len(spans) > 0 {
		spans[len(spans)-1].rank = s.rank
	}
	return spans
}

// hardSplit cuts a span into rune-aligned pieces small enough for the token
// budget. Only reached for single words longer than a whole chunk.
func (tc *TokenChunking) hardSplit(text string, s span) []span {
	var spans []span
	start := s.start
	for start < s.end {
		end := s.end
		for tc.counter.Count(text[start:end]) > tc.chunkSize {
			// Shrink to three quarters of the current rune length.
			runes := []rune(text[start:end])
			cut := len(runes) * 3 / 4
			if cut == 0 {
				cut = 1
			}
			end = start + len(string(runes[:cut]))
		}
		spans = append(spans, span{start: start, end: end})
		start = end
	}
	if len(spans) > 0 {
		spans[len(spans)-1].rank = s.rank
	}
	return spans
}
