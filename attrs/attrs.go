/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package attrs converts payload values into flat OpenInference attribute
// sequences. Every function here is pure: no state, no I/O, and no errors.
// A value that cannot be JSON-serialized falls back to its fmt coercion, and
// absent optional fields are skipped rather than emitted as empty.
//
// Attribute order within one call is deterministic; dashboards key off the
// dotted paths and index layout, so the index rules below (skip continuity,
// message/tool-call slot sharing) must not change.
package attrs

import (
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"chainguard.dev/llmtrace/payload"
	"chainguard.dev/llmtrace/semconv"
)

// JSONString serializes v, degrading to a fmt coercion when v is not
// JSON-serializable. It never fails.
func JSONString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// FromMessage maps one chat message to attributes below prefix (an indexed
// llm.input_messages.{i} / llm.output_messages.{i} path).
//
// String content is emitted verbatim as message.content. List content is
// emitted per part at message.contents.{i} with text and refusal parts both
// normalized to type "text"; image, file, and unsupported parts are skipped,
// but their index is still consumed so sibling parts keep stable positions.
//
// Input messages whose parts are all plain text collapse into a single
// newline-joined message.content instead of a content list. Output messages
// never collapse; their per-part indices are kept. The asymmetry is
// deliberate: inputs are usually simple and read better flat, outputs are
// structured and consumed per part.
func FromMessage(prefix string, m payload.Message, input bool) []attribute.KeyValue {
	out := []attribute.KeyValue{
		attribute.String(prefix+"."+semconv.MessageRole, m.Role),
	}

	if m.IsPlain() {
		return append(out, attribute.String(prefix+"."+semconv.MessageContent, m.Content))
	}

	if input && allText(m.Parts) && len(m.Parts) > 0 {
		joined := m.Parts[0].Text
		for _, p := range m.Parts[1:] {
			joined += "\n" + p.Text
		}
		return append(out, attribute.String(prefix+"."+semconv.MessageContent, joined))
	}

	for i, p := range m.Parts {
		switch p.Kind {
		case payload.ContentText, payload.ContentRefusal:
			out = append(out,
				attribute.String(semconv.MessageContentAttr(prefix, i, semconv.MessageContentType), "text"),
				attribute.String(semconv.MessageContentAttr(prefix, i, semconv.MessageContentText), p.Text),
			)
		case payload.ContentImage, payload.ContentFile, payload.ContentUnsupported:
			// Skipped, but i keeps counting.
		}
	}
	return out
}

func allText(parts []payload.ContentPart) bool {
	for _, p := range parts {
		if p.Kind != payload.ContentText {
			return false
		}
	}
	return true
}

// FromToolCall maps one tool call to attributes below prefix (a path ending
// in message.tool_calls.{i}). The arguments attribute is suppressed when the
// argument string is absent, or exactly the two-character empty-object
// literal "{}" (no-arg calls would otherwise spray noise). Any other encoding
// of an empty object is emitted verbatim.
func FromToolCall(prefix string, tc payload.ToolCall) []attribute.KeyValue {
	out := []attribute.KeyValue{
		attribute.String(prefix+"."+semconv.ToolCallID, tc.ID),
		attribute.String(prefix+"."+semconv.ToolCallFunctionName, tc.Name),
	}
	if tc.Arguments != "" && tc.Arguments != "{}" {
		out = append(out, attribute.String(prefix+"."+semconv.ToolCallFunctionArguments, tc.Arguments))
	}
	return out
}

// toolWire is the serialized form of a declared tool. Field order matters:
// the emitted JSON is consumed as an opaque document but compared in tests.
type toolWire struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
	Strict      bool            `json:"strict"`
}

// FromToolSchema maps one declared tool to its llm.tools.{index} json_schema
// attribute. An absent description is omitted from the serialized object, not
// emitted as null.
func FromToolSchema(index int, ts payload.ToolSchema) []attribute.KeyValue {
	wire := toolWire{
		Type: "function",
		Function: toolFunction{
			Name:        ts.Name,
			Description: ts.Description,
			Parameters:  ts.Parameters,
			Strict:      ts.Strict,
		},
	}
	return []attribute.KeyValue{
		attribute.String(semconv.ToolAttr(index, semconv.ToolJSONSchema), JSONString(wire)),
	}
}

// FromChatUsage maps a legacy chat-completions usage record. Zero prompt and
// completion counts are suppressed: providers that do not report usage leave
// them zero, and emitting misleading zero counts is worse than emitting
// nothing. The response-style mapper below deliberately does NOT share this
// rule.
func FromChatUsage(u *payload.ChatUsage) []attribute.KeyValue {
	if u == nil {
		return nil
	}
	var out []attribute.KeyValue
	if u.PromptTokens != 0 {
		out = append(out, attribute.Int64(semconv.LLMTokenCountPrompt, u.PromptTokens))
	}
	if u.CompletionTokens != 0 {
		out = append(out, attribute.Int64(semconv.LLMTokenCountCompletion, u.CompletionTokens))
	}
	out = append(out, attribute.Int64(semconv.LLMTokenCountTotal, u.TotalTokens))
	if u.CachedTokens != nil {
		out = append(out, attribute.Int64(semconv.LLMTokenCountPromptCacheRead, *u.CachedTokens))
	}
	if u.ReasoningTokens != nil {
		out = append(out, attribute.Int64(semconv.LLMTokenCountCompletionReasoning, *u.ReasoningTokens))
	}
	return out
}

// FromResponseUsage maps a response-API usage record. Input and output counts
// are always emitted, including zero; the detail counters are emitted when
// present.
func FromResponseUsage(u *payload.ResponseUsage) []attribute.KeyValue {
	if u == nil {
		return nil
	}
	out := []attribute.KeyValue{
		attribute.Int64(semconv.LLMTokenCountPrompt, u.InputTokens),
		attribute.Int64(semconv.LLMTokenCountCompletion, u.OutputTokens),
	}
	if u.TotalTokens != nil {
		out = append(out, attribute.Int64(semconv.LLMTokenCountTotal, *u.TotalTokens))
	}
	if u.CachedTokens != nil {
		out = append(out, attribute.Int64(semconv.LLMTokenCountPromptCacheRead, *u.CachedTokens))
	}
	if u.ReasoningTokens != nil {
		out = append(out, attribute.Int64(semconv.LLMTokenCountCompletionReasoning, *u.ReasoningTokens))
	}
	return out
}

// FromOutputItems maps a response output list to llm.output_messages
// attributes. Message items each claim a message slot and advance the slot
// index; function-call and custom-tool-call items attach to the current slot
// without advancing it, each with its own tool_calls sub-index. The effect is
// that a run of tool calls with no interleaved message shares one assistant
// message slot. Unsupported item kinds consume neither index.
func FromOutputItems(items []payload.OutputItem) []attribute.KeyValue {
	var out []attribute.KeyValue
	messageIndex := 0
	toolCallIndex := 0
	for _, item := range items {
		switch item.Kind {
		case payload.OutputMessage:
			if item.Message == nil {
				continue
			}
			out = append(out, FromMessage(semconv.OutputMessagePrefix(messageIndex), *item.Message, false)...)
			messageIndex++
		case payload.OutputFunctionCall, payload.OutputCustomToolCall:
			if item.Call == nil {
				continue
			}
			prefix := semconv.OutputToolCallPrefix(messageIndex, toolCallIndex)
			out = append(out, FromToolCall(prefix, *item.Call)...)
			toolCallIndex++
		case payload.OutputReasoning, payload.OutputWebSearchCall,
			payload.OutputFileSearchCall, payload.OutputUnsupported:
			// Not extracted yet.
		}
	}
	return out
}

// Top-level response fields that are modeled explicitly and therefore never
// belong in llm.invocation_parameters.
var reservedResponseFields = map[string]struct{}{
	"object": {}, "tools": {}, "usage": {}, "output": {}, "error": {}, "status": {},
}

// FromResponse maps a full response object: declared tool schemas, usage,
// output items, a synthesized system message from non-empty instructions
// (always at input-message index 0; callers appending raw input items must
// start their own indexing at 1), the model name, and the filtered remaining
// top-level fields as llm.invocation_parameters.
func FromResponse(r *payload.Response) []attribute.KeyValue {
	if r == nil {
		return nil
	}
	var out []attribute.KeyValue
	for i, ts := range r.Tools {
		out = append(out, FromToolSchema(i, ts)...)
	}
	out = append(out, FromResponseUsage(r.Usage)...)
	out = append(out, FromOutputItems(r.Output)...)
	if r.Instructions != "" {
		out = append(out,
			attribute.String(semconv.InputMessageAttr(0, semconv.MessageRole), "system"),
			attribute.String(semconv.InputMessageAttr(0, semconv.MessageContent), r.Instructions),
		)
	}
	if r.Model != "" {
		out = append(out, attribute.String(semconv.LLMModelName, r.Model))
	}
	if params := filterParams(r.Params); len(params) > 0 {
		out = append(out, attribute.String(semconv.LLMInvocationParameters, JSONString(params)))
	}
	return out
}

// filterParams drops reserved fields and values with nothing to say: nil,
// empty string, empty object. Empty arrays are kept: an explicitly empty
// list is a real parameter value.
func filterParams(params map[string]any) map[string]any {
	if len(params) == 0 {
		return nil
	}
	kept := make(map[string]any, len(params))
	for k, v := range params {
		if _, reserved := reservedResponseFields[k]; reserved {
			continue
		}
		switch val := v.(type) {
		case nil:
			continue
		case string:
			if val == "" {
				continue
			}
		case map[string]any:
			if len(val) == 0 {
				continue
			}
		}
		kept[k] = v
	}
	return kept
}

// FromGeneration maps a raw generation record: model, per-message input and
// output attributes, model config as invocation parameters, and legacy usage.
func FromGeneration(g *payload.GenerationData) []attribute.KeyValue {
	if g == nil {
		return nil
	}
	var out []attribute.KeyValue
	if g.Model != "" {
		out = append(out, attribute.String(semconv.LLMModelName, g.Model))
	}
	for i, m := range g.Input {
		out = append(out, FromMessage(semconv.InputMessagePrefix(i), m, true)...)
	}
	for i, m := range g.Output {
		out = append(out, FromMessage(semconv.OutputMessagePrefix(i), m, false)...)
	}
	if len(g.ModelConfig) > 0 {
		out = append(out, attribute.String(semconv.LLMInvocationParameters, JSONString(g.ModelConfig)))
	}
	out = append(out, FromChatUsage(g.Usage)...)
	return out
}
