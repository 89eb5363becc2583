//
// Tencent is pleased to support the open source community by making trpc-knowledge-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-knowledge-go is licensed under the Apache License Version 2.0.
//
//

// Package openai provides an OpenAI-backed text generator for the
// contextual-enrichment stage.
package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"trpc.group/trpc-go/trpc-knowledge-go/enricher"
)

// Verify that Generator implements the enricher.Generator interface.
var _ enricher.Generator = (*Generator)(nil)

const (
	// DefaultModel is the default chat model used for enrichment prompts.
	DefaultModel = "gpt-4o-mini"
	// DefaultMaxTokens caps the generated preamble; enrichment context is
	// meant to be short (roughly 60-200 tokens).
	DefaultMaxTokens = 256
)

// Generator implements the enricher.Generator interface using the OpenAI
// chat completions API.
type Generator struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
	apiKey      string
	baseURL     string
	callTimeout time.Duration
}

// Option represents a functional option for configuring the Generator.
type Option func(*Generator)

// WithModel sets the chat model to use.
func WithModel(model string) Option {
	return func(g *Generator) {
		g.model = model
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(maxTokens int64) Option {
	return func(g *Generator) {
		if maxTokens > 0 {
			g.maxTokens = maxTokens
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) Option {
	return func(g *Generator) {
		g.temperature = temperature
	}
}

// WithAPIKey sets the OpenAI API key.
// If not provided, will use OPENAI_API_KEY environment variable.
func WithAPIKey(apiKey string) Option {
	return func(g *Generator) {
		g.apiKey = apiKey
	}
}

// WithBaseURL sets the base URL for OpenAI API.
// Optional, for OpenAI-compatible APIs.
func WithBaseURL(baseURL string) Option {
	return func(g *Generator) {
		g.baseURL = baseURL
	}
}

// WithCallTimeout bounds each generation request.
func WithCallTimeout(timeout time.Duration) Option {
	return func(g *Generator) {
		g.callTimeout = timeout
	}
}

// New creates a new OpenAI generator with the given options.
func New(opts ...Option) *Generator {
	g := &Generator{
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(g)
	}

	var clientOpts []option.RequestOption
	if g.apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(g.apiKey))
	}
	if g.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(g.baseURL))
	}
	g.client = openai.NewClient(clientOpts...)

	return g
}

// GenerateText implements the enricher.Generator interface.
func (g *Generator) GenerateText(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}
	if g.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.callTimeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(g.maxTokens),
	}
	if g.temperature > 0 {
		params.Temperature = openai.Float(g.temperature)
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("received empty completion response")
	}
	return completion.Choices[0].Message.Content, nil
}
