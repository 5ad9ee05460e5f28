/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package tracectx carries the SDK's per-call-chain state through
// context.Context: the trace's root span, the instrumentation-suppression
// flag, scoped metadata, and the active experiment.
//
// Every With* function copies the current state into a fresh context link, so
// updates are visible only to the subtree of calls made with the derived
// context and unwind naturally when it goes out of scope. Concurrent call
// chains each see their own chain of links; nothing here is shared mutable
// state except the process-wide default metadata, which is mutex-guarded.
package tracectx

import (
	"context"
	"sync"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel/trace"
)

// Experiment is a grouping label applied to a trace's root span.
type Experiment struct {
	Name        string
	Description string
}

// State is the ambient SDK state for one logical call chain. The zero value
// is the valid empty state.
type State struct {
	// RootSpan is the span that receives trace-level outcome and metadata
	// marks. Set once per chain by the first instrumented call; never
	// overwritten.
	RootSpan trace.Span
	// Suppress disables span creation entirely for the scope.
	Suppress bool
	// Metadata is the scoped metadata override; nil means "fall back to the
	// process-wide default".
	Metadata map[string]string
	// Experiment tags the chain's root span, if set.
	Experiment *Experiment
}

type contextKey struct{}

// FromContext returns the ambient state, or the empty state when none is set.
func FromContext(ctx context.Context) State {
	if s, ok := ctx.Value(contextKey{}).(State); ok {
		return s
	}
	return State{}
}

func withState(ctx context.Context, s State) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// WithRootSpan binds span as the chain's root span. First writer wins: if the
// ambient state already carries a root span, the context is returned
// unchanged.
func WithRootSpan(ctx context.Context, span trace.Span) context.Context {
	s := FromContext(ctx)
	if s.RootSpan != nil {
		return ctx
	}
	s.RootSpan = span
	return withState(ctx, s)
}

// WithSuppression sets the instrumentation-suppression flag for the scope.
func WithSuppression(ctx context.Context, suppress bool) context.Context {
	s := FromContext(ctx)
	s.Suppress = suppress
	return withState(ctx, s)
}

// WithExperiment attaches an experiment descriptor to the scope.
func WithExperiment(ctx context.Context, exp Experiment) context.Context {
	s := FromContext(ctx)
	s.Experiment = &exp
	return withState(ctx, s)
}

// WithMetadata sets validated md as the scope's metadata override.
func WithMetadata(ctx context.Context, md map[string]string) context.Context {
	s := FromContext(ctx)
	s.Metadata = Validate(ctx, md)
	return withState(ctx, s)
}

// ── Process-wide default metadata ──────────────────────────────────────────

var (
	globalMu       sync.Mutex
	globalMetadata map[string]string
)

// SetGlobal replaces the process-wide default metadata with a validated copy
// of md.
func SetGlobal(ctx context.Context, md map[string]string) {
	validated := Validate(ctx, md)
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetadata = validated
}

// Global returns a copy of the process-wide default metadata.
func Global() map[string]string {
	globalMu.Lock()
	defer globalMu.Unlock()
	out := make(map[string]string, len(globalMetadata))
	for k, v := range globalMetadata {
		out[k] = v
	}
	return out
}

// GetMetadata resolves the effective metadata for the scope: the scoped
// override when present, else the process-wide default, else an empty map.
// Never nil.
func GetMetadata(ctx context.Context) map[string]string {
	if s := FromContext(ctx); s.Metadata != nil {
		out := make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			out[k] = v
		}
		return out
	}
	return Global()
}

// SetMetadata merges the validated update over the currently-resolved
// metadata, stamps the serialized result onto the active span, and returns a
// context carrying the merged map as the scope's override.
func SetMetadata(ctx context.Context, update map[string]string) context.Context {
	merged := GetMetadata(ctx)
	for k, v := range Validate(ctx, update) {
		merged[k] = v
	}
	stampSpan(ctx, merged)
	s := FromContext(ctx)
	s.Metadata = merged
	return withState(ctx, s)
}

// ClearMetadata removes the scope's metadata override, restamping the active
// span with the process-wide default.
func ClearMetadata(ctx context.Context) context.Context {
	stampSpan(ctx, Global())
	s := FromContext(ctx)
	s.Metadata = nil
	return withState(ctx, s)
}

func stampSpan(ctx context.Context, md map[string]string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(metadataAttribute(md))
}

// clog is threaded through every diagnostic so callers can silence or route
// the soft-validation warnings the way the rest of their process logs.
func logger(ctx context.Context) *clog.Logger {
	return clog.FromContext(ctx)
}
