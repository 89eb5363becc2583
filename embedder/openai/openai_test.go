//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	e := New()
	assert.Equal(t, DefaultModel, e.model)
	assert.Equal(t, DefaultDimensions, e.dimensions)
	assert.Equal(t, DefaultEncodingFormat, e.encodingFormat)
	assert.Equal(t, DefaultMaxRetries, e.maxRetries)
	assert.Equal(t, defaultRetryBackoff, e.retryBackoff)
	assert.Equal(t, DefaultDimensions, e.GetDimensions())
}

func TestNewWithOptions(t *testing.T) {
	backoff := []time.Duration{time.Millisecond}
	e := New(
		WithModel(ModelTextEmbedding3Large),
		WithDimensions(3072),
		WithEncodingFormat("base64"),
		WithUser("tester"),
		WithMaxRetries(5),
		WithRetryBackoff(backoff),
		WithCallTimeout(2*time.Second),
	)
	assert.Equal(t, ModelTextEmbedding3Large, e.model)
	assert.Equal(t, 3072, e.dimensions)
	assert.Equal(t, "base64", e.encodingFormat)
	assert.Equal(t, "tester", e.user)
	assert.Equal(t, 5, e.maxRetries)
	assert.Equal(t, backoff, e.retryBackoff)
	assert.Equal(t, 2*time.Second, e.callTimeout)
}

func TestWithMaxRetriesNegativeClamped(t *testing.T) {
	e := New(WithMaxRetries(-3))
	assert.Zero(t, e.maxRetries)
}

func TestGetBackoffDuration(t *testing.T) {
	e := New(WithRetryBackoff([]time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
	}))
	assert.Equal(t, 100*time.Millisecond, e.getBackoffDuration(0))
	assert.Equal(t, 200*time.Millisecond, e.getBackoffDuration(1))
	// Past the end of the slice the last duration repeats.
	assert.Equal(t, 200*time.Millisecond, e.getBackoffDuration(7))

	e = New(WithRetryBackoff(nil))
	assert.Zero(t, e.getBackoffDuration(0))
}

func TestIsTextEmbedding3Model(t *testing.T) {
	assert.True(t, isTextEmbedding3Model(ModelTextEmbedding3Small))
	assert.True(t, isTextEmbedding3Model(ModelTextEmbedding3Large))
	assert.False(t, isTextEmbedding3Model(ModelTextEmbeddingAda002))
}

func TestGetEmbeddingEmptyText(t *testing.T) {
	e := New(WithAPIKey("test-key"))
	_, err := e.GetEmbedding(context.Background(), "")
	assert.Error(t, err)
}

const embeddingResponse = `{
	"object": "list",
	"data": [{"object": "embedding", "index": 0, "embedding": [0.1, 0.2, 0.3]}],
	"model": "text-embedding-3-small",
	"usage": {"prompt_tokens": 4, "total_tokens": 4}
}`

func TestGetEmbeddingWithUsageRetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(embeddingResponse))
	}))
	defer server.Close()

	e := New(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithMaxRetries(3),
		WithRetryBackoff([]time.Duration{time.Millisecond}),
	)

	vector, usage, err := e.GetEmbeddingWithUsage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vector)
	assert.Equal(t, int64(4), usage["prompt_tokens"])
	assert.Equal(t, int64(4), usage["total_tokens"])
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetEmbeddingExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := New(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithMaxRetries(2),
		WithRetryBackoff([]time.Duration{time.Millisecond}),
	)

	_, err := e.GetEmbedding(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls)) // initial attempt + 2 retries
}

func TestGetEmbeddingContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := New(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithMaxRetries(5),
		WithRetryBackoff([]time.Duration{time.Minute}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := e.GetEmbedding(ctx, "hello")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}
