/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package anthropicmsg

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"chainguard.dev/llmtrace/payload"
)

func sampleMessage() *anthropic.Message {
	return &anthropic.Message{
		Model: "claude-sonnet-4-5",
		Role:  constant.Assistant("assistant"),
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "checking the weather"},
			{Type: "tool_use", ID: "toolu_1", Name: "get_weather", Input: json.RawMessage(`{"city":"Sitka"}`)},
			{Type: "thinking", Thinking: "internal"},
		},
		Usage: anthropic.Usage{
			InputTokens:          120,
			OutputTokens:         30,
			CacheReadInputTokens: 15,
		},
	}
}

func TestOutputMessage(t *testing.T) {
	got := OutputMessage(sampleMessage())
	if got.Role != "assistant" {
		t.Errorf("role = %v, wanted = assistant", got.Role)
	}
	// Thinking and tool-use blocks do not appear as content parts.
	if len(got.Parts) != 1 || got.Parts[0].Kind != payload.ContentText {
		t.Fatalf("parts = %v, wanted one text part", got.Parts)
	}
	if got.Parts[0].Text != "checking the weather" {
		t.Errorf("text = %v, wanted = checking the weather", got.Parts[0].Text)
	}
}

func TestToolCalls(t *testing.T) {
	got := ToolCalls(sampleMessage())
	if len(got) != 1 {
		t.Fatalf("tool calls = %d, wanted = 1", len(got))
	}
	if got[0].ID != "toolu_1" || got[0].Name != "get_weather" {
		t.Errorf("tool call = %+v, wanted toolu_1/get_weather", got[0])
	}
	if got[0].Arguments != `{"city":"Sitka"}` {
		t.Errorf("arguments = %v, wanted verbatim JSON", got[0].Arguments)
	}
}

func TestUsage(t *testing.T) {
	got := Usage(sampleMessage())
	if got.PromptTokens != 120 || got.CompletionTokens != 30 || got.TotalTokens != 150 {
		t.Errorf("usage = %+v, wanted 120/30/150", got)
	}
	if got.CachedTokens == nil || *got.CachedTokens != 15 {
		t.Errorf("cached tokens = %v, wanted = 15", got.CachedTokens)
	}
}

func TestInputMessagesSystemFirst(t *testing.T) {
	params := anthropic.MessageNewParams{
		System: []anthropic.TextBlockParam{{Text: "be helpful"}},
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock("what's the weather"),
			},
		}},
	}
	got := InputMessages(params)
	if len(got) != 2 {
		t.Fatalf("messages = %d, wanted = 2", len(got))
	}
	if got[0].Role != "system" || got[0].Content != "be helpful" {
		t.Errorf("first message = %+v, wanted the system prompt", got[0])
	}
	if got[1].Role != "user" || got[1].Parts[0].Text != "what's the weather" {
		t.Errorf("second message = %+v, wanted the user turn", got[1])
	}
}

func TestRecordRequiresInstall(t *testing.T) {
	ctx := context.Background()
	integ := New()
	if err := integ.Install(ctx); err != nil {
		t.Fatalf("Install() error = %v, wanted = nil", err)
	}
	if !enabled.Load() {
		t.Errorf("enabled = false after Install, wanted = true")
	}
	if err := integ.Uninstall(ctx); err != nil {
		t.Fatalf("Uninstall() error = %v, wanted = nil", err)
	}
	if enabled.Load() {
		t.Errorf("enabled = true after Uninstall, wanted = false")
	}
}
