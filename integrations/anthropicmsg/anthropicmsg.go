/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package anthropicmsg records Anthropic Messages API calls: it converts
// request params and message responses into the SDK's payload shapes and
// writes them through a span writer.
package anthropicmsg

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"

	"chainguard.dev/llmtrace/attrs"
	"chainguard.dev/llmtrace/payload"
	"chainguard.dev/llmtrace/sdk"
	"chainguard.dev/llmtrace/semconv"
	"chainguard.dev/llmtrace/spans"
)

// Name is the integration's registry name.
const Name = "anthropic"

var enabled atomic.Bool

type integration struct{}

// New returns the Anthropic integration handle for sdk.Instrument.
func New() sdk.Integration { return integration{} }

func (integration) Name() string { return Name }

func (integration) Install(ctx context.Context) error {
	enabled.Store(true)
	clog.FromContext(ctx).Infof("anthropic integration installed")
	return nil
}

func (integration) Uninstall(ctx context.Context) error {
	enabled.Store(false)
	clog.FromContext(ctx).Infof("anthropic integration uninstalled")
	return nil
}

// WithInstrumented runs fn with the integration installed, uninstalling on
// the way out.
func WithInstrumented(ctx context.Context, fn func(context.Context) error) error {
	return sdk.WithInstrumented(ctx, New(), fn)
}

// Record writes one Messages API round trip onto w. A no-op unless the
// integration is installed.
func Record(ctx context.Context, w *spans.Writer, params anthropic.MessageNewParams, msg *anthropic.Message) {
	if !enabled.Load() || msg == nil {
		return
	}
	w.RecordGeneration(ctx, Generation(params, msg))
	for j, tc := range ToolCalls(msg) {
		w.SetAttribute(attrs.FromToolCall(semconv.OutputToolCallPrefix(0, j), tc)...)
	}
}

// Generation converts a request/response pair into the interchange shape.
func Generation(params anthropic.MessageNewParams, msg *anthropic.Message) spans.Generation {
	return spans.Generation{
		InputMessages:  InputMessages(params),
		OutputMessages: []payload.Message{OutputMessage(msg)},
		Tools:          Tools(params),
		Model:          string(msg.Model),
		Usage:          Usage(msg),
	}
}

// InputMessages converts the request's system blocks and message history.
// The system prompt becomes a leading system-role message.
func InputMessages(params anthropic.MessageNewParams) []payload.Message {
	var out []payload.Message
	for _, sys := range params.System {
		out = append(out, payload.Message{Role: "system", Content: sys.Text})
	}
	for _, m := range params.Messages {
		msg := payload.Message{Role: string(m.Role)}
		for _, block := range m.Content {
			switch {
			case block.OfText != nil:
				msg.Parts = append(msg.Parts, payload.ContentPart{
					Kind: payload.ContentText, Text: block.OfText.Text,
				})
			case block.OfImage != nil:
				msg.Parts = append(msg.Parts, payload.ContentPart{Kind: payload.ContentImage})
			default:
				msg.Parts = append(msg.Parts, payload.ContentPart{Kind: payload.ContentUnsupported})
			}
		}
		out = append(out, msg)
	}
	return out
}

// OutputMessage converts a message response's text and thinking blocks.
// Tool-use blocks are reported separately via ToolCalls.
func OutputMessage(msg *anthropic.Message) payload.Message {
	out := payload.Message{Role: string(msg.Role)}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			out.Parts = append(out.Parts, payload.ContentPart{
				Kind: payload.ContentText, Text: block.Text,
			})
		case "thinking", "redacted_thinking", "tool_use":
			// Thinking is not an output attribute; tool use maps below.
		default:
			out.Parts = append(out.Parts, payload.ContentPart{Kind: payload.ContentUnsupported})
		}
	}
	return out
}

// ToolCalls extracts the response's tool-use blocks.
func ToolCalls(msg *anthropic.Message) []payload.ToolCall {
	var out []payload.ToolCall
	for _, block := range msg.Content {
		if block.Type != "tool_use" {
			continue
		}
		out = append(out, payload.ToolCall{
			ID:        block.ID,
			Name:      block.Name,
			Arguments: string(block.Input),
		})
	}
	return out
}

// Tools converts the request's declared tools.
func Tools(params anthropic.MessageNewParams) []payload.ToolSchema {
	var out []payload.ToolSchema
	for _, t := range params.Tools {
		tool := t.OfTool
		if tool == nil {
			continue
		}
		ts := payload.ToolSchema{Name: tool.Name}
		if tool.Description.Valid() {
			desc := tool.Description.Value
			ts.Description = &desc
		}
		if raw, err := json.Marshal(tool.InputSchema); err == nil {
			ts.Parameters = raw
		}
		out = append(out, ts)
	}
	return out
}

// Usage converts the response usage record. Anthropic always reports input
// and output counts; the cache-read count is attached when nonzero.
func Usage(msg *anthropic.Message) *payload.ChatUsage {
	u := &payload.ChatUsage{
		PromptTokens:     msg.Usage.InputTokens,
		CompletionTokens: msg.Usage.OutputTokens,
		TotalTokens:      msg.Usage.InputTokens + msg.Usage.OutputTokens,
	}
	if msg.Usage.CacheReadInputTokens > 0 {
		cached := msg.Usage.CacheReadInputTokens
		u.CachedTokens = &cached
	}
	return u
}
