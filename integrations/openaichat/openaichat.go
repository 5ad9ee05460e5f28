/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaichat records OpenAI chat-completions calls: request params
// and completion responses convert into the SDK's payload shapes and write
// through a span writer.
package openaichat

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go/v2"

	"chainguard.dev/llmtrace/attrs"
	"chainguard.dev/llmtrace/payload"
	"chainguard.dev/llmtrace/sdk"
	"chainguard.dev/llmtrace/semconv"
	"chainguard.dev/llmtrace/spans"
)

// Name is the integration's registry name.
const Name = "openai"

var enabled atomic.Bool

type integration struct{}

// New returns the OpenAI integration handle for sdk.Instrument.
func New() sdk.Integration { return integration{} }

func (integration) Name() string { return Name }

func (integration) Install(ctx context.Context) error {
	enabled.Store(true)
	clog.FromContext(ctx).Infof("openai integration installed")
	return nil
}

func (integration) Uninstall(ctx context.Context) error {
	enabled.Store(false)
	clog.FromContext(ctx).Infof("openai integration uninstalled")
	return nil
}

// WithInstrumented runs fn with the integration installed, uninstalling on
// the way out.
func WithInstrumented(ctx context.Context, fn func(context.Context) error) error {
	return sdk.WithInstrumented(ctx, New(), fn)
}

// Record writes one chat-completions round trip onto w. A no-op unless the
// integration is installed.
func Record(ctx context.Context, w *spans.Writer, params openai.ChatCompletionNewParams, completion *openai.ChatCompletion) {
	if !enabled.Load() || completion == nil {
		return
	}
	w.RecordGeneration(ctx, Generation(params, completion))
	for i, choice := range completion.Choices {
		for j, tc := range choice.Message.ToolCalls {
			w.SetAttribute(attrs.FromToolCall(semconv.OutputToolCallPrefix(i, j), payload.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})...)
		}
	}
}

// Generation converts a request/response pair into the interchange shape.
func Generation(params openai.ChatCompletionNewParams, completion *openai.ChatCompletion) spans.Generation {
	return spans.Generation{
		InputMessages:  InputMessages(params),
		OutputMessages: OutputMessages(completion),
		Tools:          Tools(params),
		Model:          completion.Model,
		Usage:          Usage(completion),
	}
}

// InputMessages converts the request history. String-content variants map
// directly; structured content parts are carried as unsupported so sibling
// indices stay stable.
func InputMessages(params openai.ChatCompletionNewParams) []payload.Message {
	out := make([]payload.Message, 0, len(params.Messages))
	for _, m := range params.Messages {
		switch {
		case m.OfSystem != nil:
			out = append(out, plainMessage("system", m.OfSystem.Content.OfString.Value))
		case m.OfDeveloper != nil:
			out = append(out, plainMessage("developer", m.OfDeveloper.Content.OfString.Value))
		case m.OfUser != nil:
			out = append(out, plainMessage("user", m.OfUser.Content.OfString.Value))
		case m.OfAssistant != nil:
			out = append(out, plainMessage("assistant", m.OfAssistant.Content.OfString.Value))
		case m.OfTool != nil:
			out = append(out, plainMessage("tool", m.OfTool.Content.OfString.Value))
		}
	}
	return out
}

func plainMessage(role, content string) payload.Message {
	return payload.Message{Role: role, Content: content}
}

// OutputMessages converts one message per completion choice. Refusals map to
// refusal-kind parts so they still surface as text attributes.
func OutputMessages(completion *openai.ChatCompletion) []payload.Message {
	out := make([]payload.Message, 0, len(completion.Choices))
	for _, choice := range completion.Choices {
		msg := payload.Message{Role: string(choice.Message.Role)}
		switch {
		case choice.Message.Refusal != "":
			msg.Parts = []payload.ContentPart{{Kind: payload.ContentRefusal, Text: choice.Message.Refusal}}
		default:
			msg.Content = choice.Message.Content
		}
		out = append(out, msg)
	}
	return out
}

// Tools converts the request's declared function tools.
func Tools(params openai.ChatCompletionNewParams) []payload.ToolSchema {
	var out []payload.ToolSchema
	for _, t := range params.Tools {
		fn := t.OfFunction
		if fn == nil {
			continue
		}
		ts := payload.ToolSchema{Name: fn.Function.Name}
		if fn.Function.Description.Valid() {
			desc := fn.Function.Description.Value
			ts.Description = &desc
		}
		if fn.Function.Strict.Valid() {
			ts.Strict = fn.Function.Strict.Value
		}
		if raw, err := json.Marshal(fn.Function.Parameters); err == nil {
			ts.Parameters = raw
		}
		out = append(out, ts)
	}
	return out
}

// Usage converts the completion usage record, including the cache-read and
// reasoning details when reported.
func Usage(completion *openai.ChatCompletion) *payload.ChatUsage {
	u := &payload.ChatUsage{
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
		TotalTokens:      completion.Usage.TotalTokens,
	}
	if cached := completion.Usage.PromptTokensDetails.CachedTokens; cached > 0 {
		u.CachedTokens = &cached
	}
	if reasoning := completion.Usage.CompletionTokensDetails.ReasoningTokens; reasoning > 0 {
		u.ReasoningTokens = &reasoning
	}
	return u
}
