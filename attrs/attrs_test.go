/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package attrs

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/attribute"

	"chainguard.dev/llmtrace/payload"
)

func attrMap(kvs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func int64p(v int64) *int64 { return &v }

func TestFromMessagePlainContent(t *testing.T) {
	got := attrMap(FromMessage("llm.input_messages.0", payload.Message{
		Role:    "user",
		Content: "hello",
	}, true))
	want := map[string]any{
		"llm.input_messages.0.message.role":    "user",
		"llm.input_messages.0.message.content": "hello",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromMessage() mismatch (-want +got):\n%s", diff)
	}
}

func TestFromMessageIndexContinuity(t *testing.T) {
	// Skipped image/file parts still consume their index: the two text
	// parts land at 0 and 3, not 0 and 1.
	got := attrMap(FromMessage("llm.output_messages.0", payload.Message{
		Role: "assistant",
		Parts: []payload.ContentPart{
			{Kind: payload.ContentText, Text: "first"},
			{Kind: payload.ContentImage, URL: "http://example.com/a.png"},
			{Kind: payload.ContentFile, URL: "http://example.com/b.pdf"},
			{Kind: payload.ContentText, Text: "second"},
		},
	}, false))
	want := map[string]any{
		"llm.output_messages.0.message.role":                                    "assistant",
		"llm.output_messages.0.message.contents.0.message_content.type":         "text",
		"llm.output_messages.0.message.contents.0.message_content.text":         "first",
		"llm.output_messages.0.message.contents.3.message_content.type":         "text",
		"llm.output_messages.0.message.contents.3.message_content.text":         "second",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromMessage() mismatch (-want +got):\n%s", diff)
	}
}

func TestFromMessageInputCollapse(t *testing.T) {
	// All-text input parts collapse into one newline-joined content.
	got := attrMap(FromMessage("llm.input_messages.1", payload.Message{
		Role: "user",
		Parts: []payload.ContentPart{
			{Kind: payload.ContentText, Text: "line one"},
			{Kind: payload.ContentText, Text: "line two"},
		},
	}, true))
	want := map[string]any{
		"llm.input_messages.1.message.role":    "user",
		"llm.input_messages.1.message.content": "line one\nline two",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromMessage() mismatch (-want +got):\n%s", diff)
	}
}

func TestFromMessageOutputNeverCollapses(t *testing.T) {
	got := attrMap(FromMessage("llm.output_messages.0", payload.Message{
		Role: "assistant",
		Parts: []payload.ContentPart{
			{Kind: payload.ContentText, Text: "a"},
			{Kind: payload.ContentText, Text: "b"},
		},
	}, false))
	if _, ok := got["llm.output_messages.0.message.content"]; ok {
		t.Errorf("output message collapsed to message.content, wanted per-part contents")
	}
	if got["llm.output_messages.0.message.contents.1.message_content.text"] != "b" {
		t.Errorf("contents.1 = %v, wanted = b", got["llm.output_messages.0.message.contents.1.message_content.text"])
	}
}

func TestFromMessageRefusalIsText(t *testing.T) {
	got := attrMap(FromMessage("llm.output_messages.0", payload.Message{
		Role: "assistant",
		Parts: []payload.ContentPart{
			{Kind: payload.ContentRefusal, Text: "cannot help"},
		},
	}, false))
	if got["llm.output_messages.0.message.contents.0.message_content.type"] != "text" {
		t.Errorf("refusal part type = %v, wanted = text", got["llm.output_messages.0.message.contents.0.message_content.type"])
	}
}

func TestFromToolCallArguments(t *testing.T) {
	tests := []struct {
		name      string
		arguments string
		wantAttr  bool
	}{{
		name:      "real arguments",
		arguments: `{"city":"Sitka"}`,
		wantAttr:  true,
	}, {
		name:      "exact empty object literal suppressed",
		arguments: "{}",
		wantAttr:  false,
	}, {
		name:      "absent arguments suppressed",
		arguments: "",
		wantAttr:  false,
	}, {
		name:      "whitespace empty object still emitted",
		arguments: "{ }",
		wantAttr:  true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := attrMap(FromToolCall("p", payload.ToolCall{
				ID:        "call_1",
				Name:      "get_weather",
				Arguments: tt.arguments,
			}))
			if got["p.tool_call.id"] != "call_1" || got["p.tool_call.function.name"] != "get_weather" {
				t.Errorf("id/name attributes = %v, wanted call_1/get_weather", got)
			}
			_, ok := got["p.tool_call.function.arguments"]
			if ok != tt.wantAttr {
				t.Errorf("arguments attribute present = %v, wanted = %v", ok, tt.wantAttr)
			}
		})
	}
}

func TestFromToolSchemaRoundTrip(t *testing.T) {
	desc := "look up current weather"
	params := json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`)

	for _, tt := range []struct {
		name     string
		schema   payload.ToolSchema
		wantDesc bool
	}{{
		name:     "with description",
		schema:   payload.ToolSchema{Name: "get_weather", Description: &desc, Parameters: params, Strict: true},
		wantDesc: true,
	}, {
		name:     "without description",
		schema:   payload.ToolSchema{Name: "get_weather", Parameters: params},
		wantDesc: false,
	}} {
		t.Run(tt.name, func(t *testing.T) {
			got := attrMap(FromToolSchema(2, tt.schema))
			raw, ok := got["llm.tools.2.tool.json_schema"].(string)
			if !ok {
				t.Fatalf("missing llm.tools.2.tool.json_schema attribute, got %v", got)
			}

			var parsed struct {
				Type     string `json:"type"`
				Function struct {
					Name        string          `json:"name"`
					Description *string         `json:"description"`
					Parameters  json.RawMessage `json:"parameters"`
					Strict      bool            `json:"strict"`
				} `json:"function"`
			}
			if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
				t.Fatalf("unmarshal json_schema: %v", err)
			}
			if parsed.Type != "function" {
				t.Errorf("type = %v, wanted = function", parsed.Type)
			}
			if parsed.Function.Name != tt.schema.Name {
				t.Errorf("name = %v, wanted = %v", parsed.Function.Name, tt.schema.Name)
			}
			if parsed.Function.Strict != tt.schema.Strict {
				t.Errorf("strict = %v, wanted = %v", parsed.Function.Strict, tt.schema.Strict)
			}
			if (parsed.Function.Description != nil) != tt.wantDesc {
				t.Errorf("description present = %v, wanted = %v", parsed.Function.Description != nil, tt.wantDesc)
			}
			if diff := cmp.Diff(string(params), string(parsed.Function.Parameters)); diff != "" {
				t.Errorf("parameters mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUsageZeroAsymmetry(t *testing.T) {
	// Response-style usage emits zero counts; legacy chat usage suppresses
	// them.
	response := attrMap(FromResponseUsage(&payload.ResponseUsage{
		InputTokens:  0,
		OutputTokens: 0,
		TotalTokens:  int64p(0),
	}))
	if response["llm.token_count.prompt"] != int64(0) || response["llm.token_count.completion"] != int64(0) {
		t.Errorf("FromResponseUsage() dropped zero counts: %v", response)
	}

	legacy := attrMap(FromChatUsage(&payload.ChatUsage{}))
	if _, ok := legacy["llm.token_count.prompt"]; ok {
		t.Errorf("FromChatUsage() emitted zero prompt count: %v", legacy)
	}
	if _, ok := legacy["llm.token_count.completion"]; ok {
		t.Errorf("FromChatUsage() emitted zero completion count: %v", legacy)
	}
	if legacy["llm.token_count.total"] != int64(0) {
		t.Errorf("FromChatUsage() total = %v, wanted = 0", legacy["llm.token_count.total"])
	}
}

func TestFromChatUsageDetails(t *testing.T) {
	got := attrMap(FromChatUsage(&payload.ChatUsage{
		PromptTokens:     100,
		CompletionTokens: 40,
		TotalTokens:      140,
		CachedTokens:     int64p(25),
		ReasoningTokens:  int64p(10),
	}))
	want := map[string]any{
		"llm.token_count.prompt":                        int64(100),
		"llm.token_count.completion":                    int64(40),
		"llm.token_count.total":                         int64(140),
		"llm.token_count.prompt_details.cache_read":     int64(25),
		"llm.token_count.completion_details.reasoning":  int64(10),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromChatUsage() mismatch (-want +got):\n%s", diff)
	}
}

func TestFromOutputItemsIndexing(t *testing.T) {
	// Two tool calls before any message share message slot 0 with tool-call
	// indices 0 and 1; the message then claims slot 0's successor only after
	// itself landing at slot 0. A later tool call attaches to slot 1.
	items := []payload.OutputItem{
		{Kind: payload.OutputFunctionCall, Call: &payload.ToolCall{ID: "c1", Name: "a", Arguments: `{"x":1}`}},
		{Kind: payload.OutputCustomToolCall, Call: &payload.ToolCall{ID: "c2", Name: "b", Arguments: `{"y":2}`}},
		{Kind: payload.OutputMessage, Message: &payload.Message{Role: "assistant", Content: "done"}},
		{Kind: payload.OutputFunctionCall, Call: &payload.ToolCall{ID: "c3", Name: "c", Arguments: `{"z":3}`}},
		{Kind: payload.OutputReasoning},
	}
	got := attrMap(FromOutputItems(items))

	for key, want := range map[string]any{
		"llm.output_messages.0.message.tool_calls.0.tool_call.id": "c1",
		"llm.output_messages.0.message.tool_calls.1.tool_call.id": "c2",
		"llm.output_messages.0.message.role":                      "assistant",
		"llm.output_messages.0.message.content":                   "done",
		"llm.output_messages.1.message.tool_calls.2.tool_call.id": "c3",
	} {
		if got[key] != want {
			t.Errorf("attribute %s = %v, wanted = %v", key, got[key], want)
		}
	}
}

func TestFromResponseInstructions(t *testing.T) {
	got := attrMap(FromResponse(&payload.Response{
		Model:        "gpt-5",
		Instructions: "be terse",
		Output: []payload.OutputItem{
			{Kind: payload.OutputMessage, Message: &payload.Message{Role: "assistant", Content: "ok"}},
		},
	}))
	if got["llm.input_messages.0.message.role"] != "system" {
		t.Errorf("instructions role = %v, wanted = system", got["llm.input_messages.0.message.role"])
	}
	if got["llm.input_messages.0.message.content"] != "be terse" {
		t.Errorf("instructions content = %v, wanted = be terse", got["llm.input_messages.0.message.content"])
	}
	if got["llm.model_name"] != "gpt-5" {
		t.Errorf("model = %v, wanted = gpt-5", got["llm.model_name"])
	}
}

func TestFromResponseInvocationParameters(t *testing.T) {
	got := attrMap(FromResponse(&payload.Response{
		Model: "gpt-5",
		Params: map[string]any{
			"temperature":  0.2,
			"stop":         []any{},
			"user":         "",
			"metadata":     map[string]any{},
			"tool_choice":  nil,
			"status":       "completed",
			"parallelism":  map[string]any{"max": 4},
		},
	}))
	raw, ok := got["llm.invocation_parameters"].(string)
	if !ok {
		t.Fatalf("missing llm.invocation_parameters, got %v", got)
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		t.Fatalf("unmarshal invocation parameters: %v", err)
	}
	want := map[string]any{
		"temperature": 0.2,
		"stop":        []any{},
		"parallelism": map[string]any{"max": 4.0},
	}
	if diff := cmp.Diff(want, params); diff != "" {
		t.Errorf("invocation parameters mismatch (-want +got):\n%s", diff)
	}
}

func TestFromResponseEmptyParamsOmitted(t *testing.T) {
	got := attrMap(FromResponse(&payload.Response{
		Model:  "gpt-5",
		Params: map[string]any{"user": "", "status": "completed"},
	}))
	if _, ok := got["llm.invocation_parameters"]; ok {
		t.Errorf("invocation parameters emitted for empty filtered set: %v", got)
	}
}

func TestJSONStringFallback(t *testing.T) {
	if got := JSONString(map[string]string{"a": "b"}); got != `{"a":"b"}` {
		t.Errorf("JSONString() = %v, wanted = %v", got, `{"a":"b"}`)
	}
	// Channels are not JSON-serializable; the fmt fallback still produces a
	// non-empty string.
	if got := JSONString(make(chan int)); got == "" {
		t.Errorf("JSONString() fallback produced empty string")
	}
}
