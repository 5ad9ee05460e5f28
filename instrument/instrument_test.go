/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package instrument

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"chainguard.dev/llmtrace/tracectx"
)

func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder
}

func TestWrapSuccess(t *testing.T) {
	recorder := setupRecorder(t)

	wrapped := Wrap("F", func(ctx context.Context) (string, error) {
		return "result", nil
	})
	got, err := wrapped(context.Background())
	if err != nil {
		t.Fatalf("wrapped() error = %v, wanted = nil", err)
	}
	if got != "result" {
		t.Errorf("wrapped() = %v, wanted = result", got)
	}

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, wanted = 1", len(ended))
	}
	if ended[0].Name() != "F" {
		t.Errorf("span name = %v, wanted = F", ended[0].Name())
	}
}

func TestWrapErrorRecordedAndReturned(t *testing.T) {
	recorder := setupRecorder(t)

	boom := errors.New("boom")
	wrapped := Wrap("failing", func(ctx context.Context) (int, error) {
		return 0, boom
	})
	_, err := wrapped(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("wrapped() error = %v, wanted = boom", err)
	}

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, wanted = 1", len(ended))
	}
	span := ended[0]
	if span.Status().Code != codes.Error {
		t.Errorf("status = %v, wanted = Error", span.Status().Code)
	}
	var sawException bool
	for _, ev := range span.Events() {
		if ev.Name == "exception" {
			sawException = true
		}
	}
	if !sawException {
		t.Errorf("span events = %v, wanted an exception event", span.Events())
	}
}

func TestWrapSuppression(t *testing.T) {
	recorder := setupRecorder(t)

	ran := false
	wrapped := Wrap("suppressed", func(ctx context.Context) (struct{}, error) {
		ran = true
		return struct{}{}, nil
	})
	ctx := tracectx.WithSuppression(context.Background(), true)
	if _, err := wrapped(ctx); err != nil {
		t.Fatalf("wrapped() error = %v, wanted = nil", err)
	}
	if !ran {
		t.Errorf("wrapped function did not run under suppression")
	}
	if got := len(recorder.Started()); got != 0 {
		t.Errorf("started spans = %d, wanted = 0", got)
	}
}

func TestNestedCallsShareRoot(t *testing.T) {
	recorder := setupRecorder(t)

	var outerRoot, innerRoot any
	inner := Wrap("inner", func(ctx context.Context) (struct{}, error) {
		innerRoot = tracectx.FromContext(ctx).RootSpan
		return struct{}{}, nil
	})
	outer := Wrap("outer", func(ctx context.Context) (struct{}, error) {
		outerRoot = tracectx.FromContext(ctx).RootSpan
		return inner(ctx)
	})

	if _, err := outer(context.Background()); err != nil {
		t.Fatalf("outer() error = %v, wanted = nil", err)
	}
	if outerRoot == nil || outerRoot != innerRoot {
		t.Errorf("inner root %v != outer root %v, wanted identical", innerRoot, outerRoot)
	}

	ended := recorder.Ended()
	if len(ended) != 2 {
		t.Fatalf("ended spans = %d, wanted = 2", len(ended))
	}
	// Inner ends first and reports as a child of outer.
	if ended[0].Name() != "inner" || ended[1].Name() != "outer" {
		t.Errorf("span order = %v, %v, wanted = inner, outer", ended[0].Name(), ended[1].Name())
	}
	if ended[0].Parent().SpanID() != ended[1].SpanContext().SpanID() {
		t.Errorf("inner span parent = %v, wanted = outer span", ended[0].Parent().SpanID())
	}
}

func namedTestFunc(context.Context) (string, error) { return "", nil }

func TestFuncName(t *testing.T) {
	if got := FuncName(namedTestFunc); got != "namedTestFunc" {
		t.Errorf("FuncName(namedTestFunc) = %v, wanted = namedTestFunc", got)
	}
	closure := func(context.Context) (string, error) { return "", nil }
	if got := FuncName(closure); got != AnonymousName {
		t.Errorf("FuncName(closure) = %v, wanted = %v", got, AnonymousName)
	}
}
