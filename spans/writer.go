/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package spans is the manual span surface of the SDK: a Writer that records
// normalized generations onto one span, and Start, which runs a function
// inside a new child span with guaranteed closure.
package spans

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chainguard.dev/llmtrace/attrs"
	"chainguard.dev/llmtrace/metrics"
	"chainguard.dev/llmtrace/payload"
	"chainguard.dev/llmtrace/semconv"
)

// TracerName is the instrumentation scope for spans the SDK opens itself.
const TracerName = "chainguard.dev/llmtrace"

var genai = metrics.NewGenAI(TracerName)

// Generation is one model call in the portable interchange shape: role +
// content messages, name + JSON-arguments tool calls. Adapters normalize
// provider payloads into this before recording.
type Generation struct {
	InputMessages  []payload.Message
	OutputMessages []payload.Message
	Tools          []payload.ToolSchema
	Model          string
	Usage          *payload.ChatUsage
}

// Writer wraps one span handle. Set-style methods return the writer for
// chaining; End is terminal and nothing may be recorded after it.
type Writer struct {
	span trace.Span
}

// NewWriter wraps an existing span.
func NewWriter(span trace.Span) *Writer {
	return &Writer{span: span}
}

// Span exposes the wrapped span handle.
func (w *Writer) Span() trace.Span { return w.span }

// RecordGeneration marks the span as an LLM call and writes the generation's
// attributes: verbatim JSON input/output with mime markers, the per-message
// OpenInference breakdown, declared tools, model, and usage. Token counts are
// also recorded on the GenAI metrics.
func (w *Writer) RecordGeneration(ctx context.Context, g Generation) *Writer {
	w.span.SetAttributes(
		attribute.String(semconv.SpanKindKey, semconv.SpanKindLLM),
		attribute.String(semconv.InputValue, attrs.JSONString(messagesWire(g.InputMessages))),
		attribute.String(semconv.InputMimeType, semconv.MimeTypeJSON),
		attribute.String(semconv.OutputValue, attrs.JSONString(messagesWire(g.OutputMessages))),
		attribute.String(semconv.OutputMimeType, semconv.MimeTypeJSON),
	)
	for i, m := range g.InputMessages {
		w.span.SetAttributes(attrs.FromMessage(semconv.InputMessagePrefix(i), m, true)...)
	}
	for i, m := range g.OutputMessages {
		w.span.SetAttributes(attrs.FromMessage(semconv.OutputMessagePrefix(i), m, false)...)
	}
	for i, ts := range g.Tools {
		w.span.SetAttributes(attrs.FromToolSchema(i, ts)...)
	}
	if g.Model != "" {
		w.span.SetAttributes(attribute.String(semconv.LLMModelName, g.Model))
	}
	if g.Usage != nil {
		w.span.SetAttributes(attrs.FromChatUsage(g.Usage)...)
		genai.RecordTokens(ctx, g.Model, g.Usage.PromptTokens, g.Usage.CompletionTokens)
	}
	return w
}

// SetAttribute sets attributes on the span.
func (w *Writer) SetAttribute(kvs ...attribute.KeyValue) *Writer {
	w.span.SetAttributes(kvs...)
	return w
}

// SetStatus sets the span status.
func (w *Writer) SetStatus(code codes.Code, description string) *Writer {
	w.span.SetStatus(code, description)
	return w
}

// RecordException records err as a span event.
func (w *Writer) RecordException(err error) {
	w.span.RecordError(err)
}

// End ends the span. Pass trace.WithTimestamp for an explicit end time.
func (w *Writer) End(opts ...trace.SpanEndOption) {
	w.span.End(opts...)
}

// messagesWire renders messages in the interchange JSON shape: plain content
// as a string, part lists as typed objects.
func messagesWire(ms []payload.Message) []map[string]any {
	out := make([]map[string]any, 0, len(ms))
	for _, m := range ms {
		entry := map[string]any{"role": m.Role}
		if m.IsPlain() {
			entry["content"] = m.Content
		} else {
			parts := make([]map[string]string, 0, len(m.Parts))
			for _, p := range m.Parts {
				part := map[string]string{"type": string(p.Kind)}
				if p.Text != "" {
					part["text"] = p.Text
				}
				if p.URL != "" {
					part["url"] = p.URL
				}
				parts = append(parts, part)
			}
			entry["content"] = parts
		}
		out = append(out, entry)
	}
	return out
}
