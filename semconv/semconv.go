/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package semconv defines the OpenInference semantic conventions used by the
// SDK. Every attribute this repository writes onto a span is keyed by one of
// the constants below; dashboards consume these keys verbatim, so the dotted
// paths and index layout are load-bearing and must not drift.
//
// See: https://github.com/Arize-ai/openinference/blob/main/spec/semantic_conventions.md
package semconv

import "fmt"

// SpanKindKey identifies the type of operation; required on every
// OpenInference span.
const SpanKindKey = "openinference.span.kind"

// OpenInference span kind values.
const (
	SpanKindLLM       = "LLM"
	SpanKindAgent     = "AGENT"
	SpanKindTool      = "TOOL"
	SpanKindChain     = "CHAIN"
	SpanKindRetriever = "RETRIEVER"
	SpanKindGuardrail = "GUARDRAIL"
)

// Input/output capture.
const (
	InputValue     = "input.value"
	InputMimeType  = "input.mime_type"
	OutputValue    = "output.value"
	OutputMimeType = "output.mime_type"

	MimeTypeJSON = "application/json"
	MimeTypeText = "text/plain"
)

// LLM operation attributes.
const (
	LLMModelName            = "llm.model_name"
	LLMInvocationParameters = "llm.invocation_parameters"
	LLMInputMessages        = "llm.input_messages"
	LLMOutputMessages       = "llm.output_messages"
	LLMTools                = "llm.tools"
)

// Token counts, including the detail breakdowns reported by response-style
// usage records.
const (
	LLMTokenCountPrompt              = "llm.token_count.prompt"     //nolint:gosec // not a credential
	LLMTokenCountCompletion          = "llm.token_count.completion" //nolint:gosec // not a credential
	LLMTokenCountTotal               = "llm.token_count.total"      //nolint:gosec // not a credential
	LLMTokenCountPromptCacheRead     = "llm.token_count.prompt_details.cache_read"
	LLMTokenCountCompletionReasoning = "llm.token_count.completion_details.reasoning"
)

// Message sub-keys, appended below an indexed llm.input_messages /
// llm.output_messages prefix.
const (
	MessageRole      = "message.role"
	MessageContent   = "message.content"
	MessageContents  = "message.contents"
	MessageToolCalls = "message.tool_calls"

	MessageContentType = "message_content.type"
	MessageContentText = "message_content.text"

	ToolCallID                = "tool_call.id"
	ToolCallFunctionName      = "tool_call.function.name"
	ToolCallFunctionArguments = "tool_call.function.arguments"

	ToolJSONSchema = "tool.json_schema"
)

// Flat attributes for TOOL spans and agent-framework span payloads.
const (
	ToolName       = "tool.name"
	ToolParameters = "tool.parameters"

	AgentHandoffs   = "agent.handoffs"
	AgentTools      = "agent.tools"
	AgentOutputType = "agent.output_type"

	HandoffFromAgent = "handoff.from_agent"
	HandoffToAgent   = "handoff.to_agent"

	GuardrailTriggered = "guardrail.triggered"

	MCPServer = "mcp.server"

	ErrorData = "error.data"
)

// Trace-level attributes stamped on root spans.
const (
	Metadata            = "metadata"
	Environment         = "environment"
	ExperimentName      = "experiment.name"
	ExperimentDesc      = "experiment.description"
	OutcomeMark         = "trace.mark"
	NormalizedScope     = "llmtrace.scope"
	GitRepository       = "git.repository"
	GitBranch           = "git.branch"
	GitCommitHash       = "git.commit.hash"
	GitCommitMessage    = "git.commit.message"
	GitCommitTimestamp  = "git.commit.timestamp"
	GitSemverTag        = "git.tag"
	EnvironmentValueDev = "dev"
)

// Outcome mark values. The -1 sentinel distinguishes "ran but never marked"
// from either explicit outcome.
const (
	OutcomeUnset   int64 = -1
	OutcomeFailure int64 = 0
	OutcomeSuccess int64 = 1
)

// InputMessageAttr builds llm.input_messages.{index}.{suffix}.
func InputMessageAttr(index int, suffix string) string {
	return fmt.Sprintf("%s.%d.%s", LLMInputMessages, index, suffix)
}

// InputMessagePrefix builds the attribute prefix for input message {index}.
func InputMessagePrefix(index int) string {
	return fmt.Sprintf("%s.%d", LLMInputMessages, index)
}

// OutputMessagePrefix builds the attribute prefix for output message {index}.
func OutputMessagePrefix(index int) string {
	return fmt.Sprintf("%s.%d", LLMOutputMessages, index)
}

// MessageContentAttr builds {prefix}.message.contents.{index}.{suffix} for a
// typed content part inside a message.
func MessageContentAttr(prefix string, contentIndex int, suffix string) string {
	return fmt.Sprintf("%s.%s.%d.%s", prefix, MessageContents, contentIndex, suffix)
}

// OutputToolCallPrefix builds the attribute prefix for tool call
// {toolCallIndex} attached to output message slot {messageIndex}.
func OutputToolCallPrefix(messageIndex, toolCallIndex int) string {
	return fmt.Sprintf("%s.%s.%d", OutputMessagePrefix(messageIndex), MessageToolCalls, toolCallIndex)
}

// ToolAttr builds llm.tools.{index}.{suffix} for a declared tool schema.
func ToolAttr(index int, suffix string) string {
	return fmt.Sprintf("%s.%d.%s", LLMTools, index, suffix)
}
