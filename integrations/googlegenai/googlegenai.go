/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package googlegenai records Gemini generate-content calls: request contents
// and responses convert into the SDK's payload shapes and write through a
// span writer.
package googlegenai

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/chainguard-dev/clog"
	"google.golang.org/genai"

	"chainguard.dev/llmtrace/attrs"
	"chainguard.dev/llmtrace/payload"
	"chainguard.dev/llmtrace/sdk"
	"chainguard.dev/llmtrace/semconv"
	"chainguard.dev/llmtrace/spans"
)

// Name is the integration's registry name.
const Name = "google-genai"

var enabled atomic.Bool

type integration struct{}

// New returns the Gemini integration handle for sdk.Instrument.
func New() sdk.Integration { return integration{} }

func (integration) Name() string { return Name }

func (integration) Install(ctx context.Context) error {
	enabled.Store(true)
	clog.FromContext(ctx).Infof("google-genai integration installed")
	return nil
}

func (integration) Uninstall(ctx context.Context) error {
	enabled.Store(false)
	clog.FromContext(ctx).Infof("google-genai integration uninstalled")
	return nil
}

// WithInstrumented runs fn with the integration installed, uninstalling on
// the way out.
func WithInstrumented(ctx context.Context, fn func(context.Context) error) error {
	return sdk.WithInstrumented(ctx, New(), fn)
}

// Record writes one generate-content round trip onto w. A no-op unless the
// integration is installed.
func Record(ctx context.Context, w *spans.Writer, contents []*genai.Content, config *genai.GenerateContentConfig, resp *genai.GenerateContentResponse) {
	if !enabled.Load() || resp == nil {
		return
	}
	w.RecordGeneration(ctx, Generation(contents, config, resp))
	for i, cand := range resp.Candidates {
		for j, fc := range functionCalls(cand) {
			w.SetAttribute(attrs.FromToolCall(semconv.OutputToolCallPrefix(i, j), fc)...)
		}
	}
}

// Generation converts a request/response pair into the interchange shape.
func Generation(contents []*genai.Content, config *genai.GenerateContentConfig, resp *genai.GenerateContentResponse) spans.Generation {
	return spans.Generation{
		InputMessages:  InputMessages(contents, config),
		OutputMessages: OutputMessages(resp),
		Tools:          Tools(config),
		Model:          resp.ModelVersion,
		Usage:          Usage(resp),
	}
}

// InputMessages converts the system instruction and request contents. Gemini
// leaves the role blank on single-turn contents; those default to user.
func InputMessages(contents []*genai.Content, config *genai.GenerateContentConfig) []payload.Message {
	var out []payload.Message
	if config != nil && config.SystemInstruction != nil {
		out = append(out, convertContent(config.SystemInstruction, "system"))
	}
	for _, c := range contents {
		out = append(out, convertContent(c, "user"))
	}
	return out
}

// OutputMessages converts one message per response candidate. Thought parts
// are excluded; function-call parts are reported separately.
func OutputMessages(resp *genai.GenerateContentResponse) []payload.Message {
	out := make([]payload.Message, 0, len(resp.Candidates))
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			out = append(out, payload.Message{Role: "model"})
			continue
		}
		msg := payload.Message{Role: roleOrDefault(cand.Content.Role, "model")}
		for _, part := range cand.Content.Parts {
			switch {
			case part.Thought || part.FunctionCall != nil:
			case part.Text != "":
				msg.Parts = append(msg.Parts, payload.ContentPart{
					Kind: payload.ContentText, Text: part.Text,
				})
			default:
				msg.Parts = append(msg.Parts, payload.ContentPart{Kind: payload.ContentUnsupported})
			}
		}
		out = append(out, msg)
	}
	return out
}

// Tools converts the config's function declarations.
func Tools(config *genai.GenerateContentConfig) []payload.ToolSchema {
	if config == nil {
		return nil
	}
	var out []payload.ToolSchema
	for _, tool := range config.Tools {
		for _, decl := range tool.FunctionDeclarations {
			ts := payload.ToolSchema{Name: decl.Name}
			if decl.Description != "" {
				desc := decl.Description
				ts.Description = &desc
			}
			if decl.Parameters != nil {
				if raw, err := json.Marshal(decl.Parameters); err == nil {
					ts.Parameters = raw
				}
			}
			out = append(out, ts)
		}
	}
	return out
}

// Usage converts the response usage metadata. Gemini reports thought tokens
// separately from candidate tokens; they map to the reasoning detail.
func Usage(resp *genai.GenerateContentResponse) *payload.ChatUsage {
	um := resp.UsageMetadata
	if um == nil {
		return nil
	}
	u := &payload.ChatUsage{
		PromptTokens:     int64(um.PromptTokenCount),
		CompletionTokens: int64(um.CandidatesTokenCount),
		TotalTokens:      int64(um.TotalTokenCount),
	}
	if um.CachedContentTokenCount > 0 {
		cached := int64(um.CachedContentTokenCount)
		u.CachedTokens = &cached
	}
	if um.ThoughtsTokenCount > 0 {
		reasoning := int64(um.ThoughtsTokenCount)
		u.ReasoningTokens = &reasoning
	}
	return u
}

func convertContent(c *genai.Content, defaultRole string) payload.Message {
	msg := payload.Message{Role: roleOrDefault(c.Role, defaultRole)}
	for _, part := range c.Parts {
		switch {
		case part.Text != "":
			msg.Parts = append(msg.Parts, payload.ContentPart{
				Kind: payload.ContentText, Text: part.Text,
			})
		case part.InlineData != nil || part.FileData != nil:
			msg.Parts = append(msg.Parts, payload.ContentPart{Kind: payload.ContentFile})
		default:
			msg.Parts = append(msg.Parts, payload.ContentPart{Kind: payload.ContentUnsupported})
		}
	}
	return msg
}

func functionCalls(cand *genai.Candidate) []payload.ToolCall {
	if cand.Content == nil {
		return nil
	}
	var out []payload.ToolCall
	for _, part := range cand.Content.Parts {
		fc := part.FunctionCall
		if fc == nil {
			continue
		}
		out = append(out, payload.ToolCall{
			ID:        fc.ID,
			Name:      fc.Name,
			Arguments: attrs.JSONString(fc.Args),
		})
	}
	return out
}

func roleOrDefault(role, fallback string) string {
	if role == "" {
		return fallback
	}
	return role
}
