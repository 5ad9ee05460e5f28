/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package payload defines the normalized data model that provider responses
// are converted into before attribute extraction. Each family of shapes the
// source providers emit (messages, content parts, tool calls, usage records,
// response output items, agent events) is a closed tagged union with an
// explicit Kind discriminant, so every switch over a union is exhaustive and
// new variants cannot be ignored silently.
package payload

import "encoding/json"

// ContentKind discriminates the typed parts of a message content list.
type ContentKind string

const (
	ContentText    ContentKind = "text"
	ContentImage   ContentKind = "image"
	ContentRefusal ContentKind = "refusal"
	ContentFile    ContentKind = "file"
	// ContentUnsupported covers part types the SDK does not extract yet
	// (audio, video). They are skipped during mapping but still consume an
	// index so that sibling parts keep stable positions.
	ContentUnsupported ContentKind = "unsupported"
)

// ContentPart is one element of a message's typed content list.
type ContentPart struct {
	Kind ContentKind
	// Text carries the body for ContentText and ContentRefusal parts.
	Text string
	// URL carries the location for ContentImage and ContentFile parts.
	URL string
}

// Message is a chat message. Content is either a plain string or an ordered
// list of typed parts; Parts != nil selects the list form, and an empty
// non-nil Parts slice is still the list form.
type Message struct {
	Role    string
	Content string
	Parts   []ContentPart
}

// IsPlain reports whether the message carries string content rather than a
// typed part list.
func (m Message) IsPlain() bool { return m.Parts == nil }

// ToolCall is a function invocation requested by the model. Arguments is the
// provider's JSON-encoded argument string, kept verbatim.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolSchema declares a tool available to the model. Parameters is the raw
// JSON schema for the tool's arguments. Description is a pointer so that an
// absent description can be omitted from serialization rather than emitted
// as null.
type ToolSchema struct {
	Name        string
	Description *string
	Parameters  json.RawMessage
	Strict      bool
}

// ChatUsage is the legacy chat-completions usage record. Zero prompt or
// completion counts are treated as "provider did not report usage" by the
// attribute mapper; the detail counters are pointers because most providers
// omit them entirely.
type ChatUsage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	CachedTokens     *int64
	ReasoningTokens  *int64
}

// ResponseUsage is the response-API usage record. Unlike ChatUsage, zero
// input/output counts are real and always emitted.
type ResponseUsage struct {
	InputTokens     int64
	OutputTokens    int64
	TotalTokens     *int64
	CachedTokens    *int64
	ReasoningTokens *int64
}

// OutputKind discriminates response output items.
type OutputKind string

const (
	OutputMessage        OutputKind = "message"
	OutputFunctionCall   OutputKind = "function_call"
	OutputCustomToolCall OutputKind = "custom_tool_call"
	// The remaining kinds are recognized but not yet extracted; they are
	// explicit variants rather than a silent default so a future handler is
	// a compile-visible addition.
	OutputReasoning      OutputKind = "reasoning"
	OutputWebSearchCall  OutputKind = "web_search_call"
	OutputFileSearchCall OutputKind = "file_search_call"
	OutputUnsupported    OutputKind = "unsupported"
)

// OutputItem is one element of a response's output list. Exactly one of
// Message/Call is populated, selected by Kind.
type OutputItem struct {
	Kind    OutputKind
	Message *Message
	Call    *ToolCall
}

// Response is a full response-API object. Params holds every remaining
// top-level field that is not modeled explicitly; the attribute mapper
// serializes the non-empty ones into llm.invocation_parameters.
type Response struct {
	Model        string
	Instructions string
	Tools        []ToolSchema
	Usage        *ResponseUsage
	Output       []OutputItem
	Params       map[string]any
}
