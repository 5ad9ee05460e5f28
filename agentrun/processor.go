/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package agentrun correlates the flat span-event stream emitted by an
// agent-orchestration framework back into nested OpenTelemetry spans.
//
// The framework assigns its own trace and span IDs and reports lifecycle
// events out-of-band; this processor keeps the ID-to-span bookkeeping, opens
// one root span per framework trace, parents child spans by the framework's
// parent IDs, and closes everything out as end events arrive. Events for
// unknown IDs are silently ignored: the stream can be partial, duplicated,
// or out of order, and correlation misses must never surface to the caller.
package agentrun

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chainguard.dev/llmtrace/attrs"
	"chainguard.dev/llmtrace/metrics"
	"chainguard.dev/llmtrace/payload"
	"chainguard.dev/llmtrace/semconv"
	"chainguard.dev/llmtrace/spans"
)

// DefaultHandoffCapacity bounds the reverse parent-lookup index for agent
// handoffs.
const DefaultHandoffCapacity = 1000

// Span kind per framework payload kind.
var kindTable = map[payload.SpanDataKind]string{
	payload.SpanDataAgent:        semconv.SpanKindAgent,
	payload.SpanDataFunction:     semconv.SpanKindTool,
	payload.SpanDataGeneration:   semconv.SpanKindLLM,
	payload.SpanDataResponse:     semconv.SpanKindLLM,
	payload.SpanDataHandoff:      semconv.SpanKindTool,
	payload.SpanDataGuardrail:    semconv.SpanKindChain,
	payload.SpanDataCustom:       semconv.SpanKindChain,
	payload.SpanDataMCPListTools: semconv.SpanKindChain,
}

// Processor turns framework span events into OpenTelemetry spans. All methods
// are safe for concurrent use; one mutex guards the correlation maps.
type Processor struct {
	tracer trace.Tracer
	genai  *metrics.GenAI

	mu       sync.Mutex
	spans    map[string]trace.Span      // framework span ID -> open span
	ctxs     map[string]context.Context // framework span ID -> context with that span current
	roots    map[string]trace.Span      // framework trace ID -> root span
	rootCtxs map[string]context.Context
	tools    map[string]map[string]payload.ToolSchema // framework trace ID -> tool name -> schema
	handoffs *handoffIndex
}

// Option configures a Processor.
type Option func(*Processor) error

// WithHandoffCapacity overrides the handoff index bound.
func WithHandoffCapacity(n int) Option {
	return func(p *Processor) error {
		if n <= 0 {
			return fmt.Errorf("handoff capacity must be positive, got %d", n)
		}
		p.handoffs = newHandoffIndex(n)
		return nil
	}
}

// New builds a Processor using the global tracer provider.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		tracer:   otel.Tracer(spans.TracerName),
		genai:    metrics.NewGenAI(spans.TracerName),
		spans:    make(map[string]trace.Span),
		ctxs:     make(map[string]context.Context),
		roots:    make(map[string]trace.Span),
		rootCtxs: make(map[string]context.Context),
		tools:    make(map[string]map[string]payload.ToolSchema),
		handoffs: newHandoffIndex(DefaultHandoffCapacity),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// TraceStarted opens the root span for a framework trace.
func (p *Processor) TraceStarted(ctx context.Context, e payload.TraceStarted) {
	name := e.Name
	if name == "" {
		name = "Agent workflow"
	}
	// The framework trace is its own trace; do not parent under whatever
	// span happens to be ambient at registration time.
	rootCtx, span := p.tracer.Start(trace.ContextWithSpanContext(ctx, trace.SpanContext{}), name,
		trace.WithAttributes(attribute.String(semconv.SpanKindKey, semconv.SpanKindAgent)))

	p.mu.Lock()
	defer p.mu.Unlock()
	p.roots[e.TraceID] = span
	p.rootCtxs[e.TraceID] = rootCtx
}

// TraceEnded closes a framework trace's root span with status OK and drops
// the trace's bookkeeping, including its tool cache and handoff entries.
func (p *Processor) TraceEnded(_ context.Context, e payload.TraceEnded) {
	p.mu.Lock()
	span, ok := p.roots[e.TraceID]
	delete(p.roots, e.TraceID)
	delete(p.rootCtxs, e.TraceID)
	delete(p.tools, e.TraceID)
	p.handoffs.dropPrefix(e.TraceID + "/")
	p.mu.Unlock()

	if !ok {
		return
	}
	span.SetStatus(codes.Ok, "")
	span.End()
}

// SpanStarted opens a child span for a framework span event. The parent is
// the open span for the event's parent ID when known, else a pending handoff
// targeting this agent, else the trace's root span, else the ambient context.
func (p *Processor) SpanStarted(ctx context.Context, e payload.SpanStarted) {
	p.mu.Lock()
	parent := ctx
	if pc, ok := p.ctxs[e.ParentID]; e.ParentID != "" && ok {
		parent = pc
	} else if hc, ok := p.handoffTarget(e); ok {
		parent = hc
	} else if rc, ok := p.rootCtxs[e.TraceID]; ok {
		parent = rc
	}
	p.mu.Unlock()

	var startOpts []trace.SpanStartOption
	if kind, ok := kindTable[e.Data.Kind]; ok {
		startOpts = append(startOpts, trace.WithAttributes(attribute.String(semconv.SpanKindKey, kind)))
	}
	if !e.StartedAt.IsZero() {
		startOpts = append(startOpts, trace.WithTimestamp(e.StartedAt))
	}
	spanCtx, span := p.tracer.Start(parent, spanName(e.Data), startOpts...)

	p.mu.Lock()
	p.spans[e.SpanID] = span
	p.ctxs[e.SpanID] = spanCtx
	p.mu.Unlock()
}

// handoffTarget resolves and consumes a pending handoff whose target matches
// a starting agent span. Callers must hold p.mu.
func (p *Processor) handoffTarget(e payload.SpanStarted) (context.Context, bool) {
	if e.Data.Kind != payload.SpanDataAgent || e.Data.Agent == nil {
		return nil, false
	}
	return p.handoffs.take(e.TraceID + "/" + e.Data.Agent.Name)
}

// SpanEnded finalizes a framework span: refreshes its display name from the
// end payload, applies the payload's attribute mapping, sets status, and
// closes it at the event's end time. Unknown span IDs are no-ops.
func (p *Processor) SpanEnded(ctx context.Context, e payload.SpanEnded) {
	p.mu.Lock()
	span, ok := p.spans[e.SpanID]
	spanCtx := p.ctxs[e.SpanID]
	delete(p.spans, e.SpanID)
	delete(p.ctxs, e.SpanID)
	p.mu.Unlock()
	if !ok {
		return
	}

	// End events often carry detail the start event lacked, a handoff's
	// target in particular.
	span.SetName(spanName(e.Data))

	p.applyData(ctx, spanCtx, span, e)

	if e.Error != nil {
		span.SetStatus(codes.Error, e.Error.Message)
		if len(e.Error.Data) > 0 {
			span.SetAttributes(attribute.String(semconv.ErrorData, attrs.JSONString(e.Error.Data)))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if e.EndedAt.IsZero() {
		span.End(trace.WithTimestamp(time.Now()))
	} else {
		span.End(trace.WithTimestamp(e.EndedAt))
	}
}

func (p *Processor) applyData(ctx context.Context, spanCtx context.Context, span trace.Span, e payload.SpanEnded) {
	switch e.Data.Kind {
	case payload.SpanDataResponse:
		if r := e.Data.Response; r != nil && r.Response != nil {
			span.SetAttributes(attrs.FromResponse(r.Response)...)
			p.cacheTools(e.TraceID, r.Response.Tools)
			if u := r.Response.Usage; u != nil {
				p.genai.RecordTokens(ctx, r.Response.Model, u.InputTokens, u.OutputTokens)
			}
		}
	case payload.SpanDataGeneration:
		if g := e.Data.Generation; g != nil {
			span.SetAttributes(attrs.FromGeneration(g)...)
			if g.Usage != nil {
				p.genai.RecordTokens(ctx, g.Model, g.Usage.PromptTokens, g.Usage.CompletionTokens)
			}
		}
	case payload.SpanDataFunction:
		if f := e.Data.Function; f != nil {
			span.SetAttributes(
				attribute.String(semconv.ToolName, f.Name),
				attribute.String(semconv.InputValue, f.Input),
				attribute.String(semconv.OutputValue, f.Output),
			)
			if schema, ok := p.cachedTool(e.TraceID, f.Name); ok {
				span.SetAttributes(attribute.String(semconv.ToolParameters, string(schema.Parameters)))
			}
			p.genai.RecordToolCall(ctx, "", f.Name)
		}
	case payload.SpanDataHandoff:
		if h := e.Data.Handoff; h != nil {
			span.SetAttributes(
				attribute.String(semconv.HandoffFromAgent, h.FromAgent),
				attribute.String(semconv.HandoffToAgent, h.ToAgent),
			)
			if h.ToAgent != "" && spanCtx != nil {
				p.mu.Lock()
				p.handoffs.put(e.TraceID+"/"+h.ToAgent, spanCtx)
				p.mu.Unlock()
			}
		}
	case payload.SpanDataAgent:
		if a := e.Data.Agent; a != nil {
			if len(a.Handoffs) > 0 {
				span.SetAttributes(attribute.StringSlice(semconv.AgentHandoffs, a.Handoffs))
			}
			if len(a.Tools) > 0 {
				span.SetAttributes(attribute.StringSlice(semconv.AgentTools, a.Tools))
			}
			if a.OutputType != "" {
				span.SetAttributes(attribute.String(semconv.AgentOutputType, a.OutputType))
			}
		}
	case payload.SpanDataGuardrail:
		if g := e.Data.Guardrail; g != nil {
			span.SetAttributes(attribute.Bool(semconv.GuardrailTriggered, g.Triggered))
		}
	case payload.SpanDataCustom:
		if c := e.Data.Custom; c != nil && len(c.Data) > 0 {
			span.SetAttributes(attribute.String(semconv.OutputValue, attrs.JSONString(c.Data)))
		}
	case payload.SpanDataMCPListTools:
		if m := e.Data.MCPListTools; m != nil {
			span.SetAttributes(
				attribute.String(semconv.MCPServer, m.Server),
				attribute.String(semconv.OutputValue, attrs.JSONString(m.Result)),
			)
		}
	}
}

func (p *Processor) cacheTools(traceID string, tools []payload.ToolSchema) {
	if len(tools) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	cache, ok := p.tools[traceID]
	if !ok {
		cache = make(map[string]payload.ToolSchema, len(tools))
		p.tools[traceID] = cache
	}
	for _, t := range tools {
		cache[t.Name] = t
	}
}

func (p *Processor) cachedTool(traceID, name string) (payload.ToolSchema, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	schema, ok := p.tools[traceID][name]
	return schema, ok
}

// spanName picks the display name for a framework span: the payload's
// explicit name, a synthesized handoff name, or the raw kind tag.
func spanName(d payload.SpanData) string {
	if n := d.Name(); n != "" {
		return n
	}
	if d.Kind == payload.SpanDataHandoff {
		if d.Handoff != nil && d.Handoff.ToAgent != "" {
			return "Handoff to " + d.Handoff.ToAgent
		}
		return "Handoff"
	}
	return string(d.Kind)
}
