/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package rootspan stamps trace-level defaults onto root spans at span start:
// the unset outcome mark, git provenance, experiment labels, and metadata.
// It runs as a span processor registered ahead of the export stage, so every
// downstream processor and any attribute read right after span creation
// observes these defaults.
package rootspan

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"chainguard.dev/llmtrace/semconv"
	"chainguard.dev/llmtrace/tracectx"
)

// Instrumentation scope names that report under our published scope. Spans
// cannot change scope after creation, so the normalization is recorded as an
// attribute consumers key off instead.
var normalizedScopes = map[string]string{
	"github.com/openai/openai-go":            "chainguard.dev/llmtrace",
	"github.com/anthropics/anthropic-sdk-go": "chainguard.dev/llmtrace",
	"google.golang.org/genai":                "chainguard.dev/llmtrace",
}

// Processor is a start-hook span processor. OnEnd, Shutdown, and ForceFlush
// are no-ops; everything happens synchronously in OnStart.
type Processor struct {
	provenance []attribute.KeyValue
}

var _ sdktrace.SpanProcessor = (*Processor)(nil)

// New builds a Processor, resolving git provenance once. Resolution failures
// degrade to fewer attributes, never to an error.
func New(ctx context.Context) *Processor {
	return &Processor{provenance: provenance(ctx)}
}

// OnStart normalizes the reporting scope, then stamps root-span defaults.
// Root means no valid parent span context: the span opens a new trace.
func (p *Processor) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	if published, ok := normalizedScopes[s.InstrumentationScope().Name]; ok {
		s.SetAttributes(attribute.String(semconv.NormalizedScope, published))
	}

	if trace.SpanContextFromContext(parent).IsValid() {
		return
	}

	s.SetAttributes(p.provenance...)
	s.SetAttributes(attribute.Int64(semconv.OutcomeMark, semconv.OutcomeUnset))

	state := tracectx.FromContext(parent)
	if exp := state.Experiment; exp != nil {
		s.SetAttributes(
			attribute.String(semconv.Environment, semconv.EnvironmentValueDev),
			attribute.String(semconv.ExperimentName, exp.Name),
		)
		if exp.Description != "" {
			s.SetAttributes(attribute.String(semconv.ExperimentDesc, exp.Description))
		}
	}

	if md := tracectx.GetMetadata(parent); len(md) > 0 {
		if b, err := json.Marshal(md); err == nil {
			s.SetAttributes(attribute.String(semconv.Metadata, string(b)))
		}
	}
}

func (p *Processor) OnEnd(sdktrace.ReadOnlySpan) {}

func (p *Processor) Shutdown(context.Context) error { return nil }

func (p *Processor) ForceFlush(context.Context) error { return nil }
