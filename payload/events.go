/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package payload

import "time"

// The agent-orchestration framework reports its runs as a flat stream of
// trace/span lifecycle events carrying framework-assigned IDs. The types
// below model that stream; correlation back into OpenTelemetry spans happens
// in the agentrun package.

// TraceStarted opens a new logical agent trace.
type TraceStarted struct {
	TraceID string
	Name    string
}

// TraceEnded closes a logical agent trace.
type TraceEnded struct {
	TraceID string
}

// SpanStarted opens a span within a trace. ParentID is the framework span ID
// of the parent, empty for direct children of the trace root.
type SpanStarted struct {
	SpanID    string
	TraceID   string
	ParentID  string
	StartedAt time.Time
	Data      SpanData
}

// SpanEnded closes a span. Data carries the final payload for the span; the
// same span's start and end events may carry different amounts of detail
// (e.g. a handoff's target agent is often unknown until the end event).
type SpanEnded struct {
	SpanID  string
	TraceID string
	EndedAt time.Time
	Error   *SpanError
	Data    SpanData
}

// SpanError is a framework-reported span failure.
type SpanError struct {
	Message string
	Data    map[string]any
}

// SpanDataKind discriminates the payload attached to a span event.
type SpanDataKind string

const (
	SpanDataAgent        SpanDataKind = "agent"
	SpanDataFunction     SpanDataKind = "function"
	SpanDataGeneration   SpanDataKind = "generation"
	SpanDataResponse     SpanDataKind = "response"
	SpanDataHandoff      SpanDataKind = "handoff"
	SpanDataGuardrail    SpanDataKind = "guardrail"
	SpanDataCustom       SpanDataKind = "custom"
	SpanDataMCPListTools SpanDataKind = "mcp_tools"
)

// SpanData is the tagged union of span event payloads. Exactly one of the
// pointer fields matching Kind is populated.
type SpanData struct {
	Kind SpanDataKind

	Agent        *AgentData
	Function     *FunctionData
	Generation   *GenerationData
	Response     *ResponseData
	Handoff      *HandoffData
	Guardrail    *GuardrailData
	Custom       *CustomData
	MCPListTools *MCPListToolsData
}

// Name returns the explicit display name for the payload, or "" when the
// variant has none and the caller must synthesize one.
func (d SpanData) Name() string {
	switch d.Kind {
	case SpanDataAgent:
		if d.Agent != nil {
			return d.Agent.Name
		}
	case SpanDataFunction:
		if d.Function != nil {
			return d.Function.Name
		}
	case SpanDataGuardrail:
		if d.Guardrail != nil {
			return d.Guardrail.Name
		}
	case SpanDataCustom:
		if d.Custom != nil {
			return d.Custom.Name
		}
	case SpanDataGeneration, SpanDataResponse, SpanDataHandoff, SpanDataMCPListTools:
	}
	return ""
}

// AgentData describes an agent invocation span.
type AgentData struct {
	Name       string
	Handoffs   []string
	Tools      []string
	OutputType string
}

// FunctionData describes a tool-function execution span. Input is the raw
// JSON argument string, Output the stringified result.
type FunctionData struct {
	Name   string
	Input  string
	Output string
}

// GenerationData describes a raw generation span: loosely-typed message maps
// as the framework recorded them, plus model, parameters, and usage.
type GenerationData struct {
	Model       string
	Input       []Message
	Output      []Message
	ModelConfig map[string]any
	Usage       *ChatUsage
}

// ResponseData wraps a full response-API object observed by the framework.
type ResponseData struct {
	Response *Response
}

// HandoffData describes control transfer between agents.
type HandoffData struct {
	FromAgent string
	ToAgent   string
}

// GuardrailData describes a guardrail evaluation span.
type GuardrailData struct {
	Name      string
	Triggered bool
}

// CustomData is a framework escape hatch for user-defined spans.
type CustomData struct {
	Name string
	Data map[string]any
}

// MCPListToolsData records the tool listing returned by an MCP server.
type MCPListToolsData struct {
	Server string
	Result []string
}
