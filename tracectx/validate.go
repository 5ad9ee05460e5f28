/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package tracectx

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"chainguard.dev/llmtrace/semconv"
)

// Metadata limits. Violations truncate rather than reject: tracing must never
// block the host application's business logic.
const (
	MaxMetadataFields   = 25
	MaxMetadataKeyLen   = 40
	MaxMetadataValueLen = 100
)

// Validate enforces the metadata limits on md and returns the corrected copy.
// Oversized keys and values are truncated, excess fields are dropped, and one
// diagnostic per violation class is logged per call regardless of how many
// fields tripped it. A nil input means "no metadata" and returns nil.
//
// Dropping excess fields is deterministic by sorted key: Go maps have no
// insertion order to preserve, and a stable rule beats a random one.
func Validate(ctx context.Context, md map[string]string) map[string]string {
	if md == nil {
		return nil
	}
	log := logger(ctx)

	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) > MaxMetadataFields {
		log.Warnf("metadata has %d fields, keeping the first %d", len(keys), MaxMetadataFields)
		keys = keys[:MaxMetadataFields]
	}

	out := make(map[string]string, len(keys))
	keyTruncated, valueTruncated := false, false
	for _, k := range keys {
		v := md[k]
		if kt, cut := truncate(k, MaxMetadataKeyLen); cut {
			keyTruncated = true
			k = kt
		}
		if vt, cut := truncate(v, MaxMetadataValueLen); cut {
			valueTruncated = true
			v = vt
		}
		out[k] = v
	}
	if keyTruncated {
		log.Warnf("metadata keys longer than %d characters were truncated", MaxMetadataKeyLen)
	}
	if valueTruncated {
		log.Warnf("metadata values longer than %d characters were truncated", MaxMetadataValueLen)
	}
	return out
}

// truncate cuts s to at most max characters. The limits are character counts,
// not byte counts, so the cut lands on a rune boundary and never produces
// invalid UTF-8.
func truncate(s string, max int) (string, bool) {
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	return string([]rune(s)[:max]), true
}

// Coerce converts a loosely-typed mapping (as deserialized framework
// payloads carry it) into validated string metadata. Non-string values are
// stringified with a diagnostic; a nil input means "no metadata".
func Coerce(ctx context.Context, md map[string]any) map[string]string {
	if md == nil {
		return nil
	}
	coerced := false
	out := make(map[string]string, len(md))
	for k, v := range md {
		s, ok := v.(string)
		if !ok {
			coerced = true
			s = fmt.Sprintf("%v", v)
		}
		out[k] = s
	}
	if coerced {
		logger(ctx).Warnf("non-string metadata values were coerced to strings")
	}
	return Validate(ctx, out)
}

// ValidateAny accepts untyped input from dynamic call sites. A nil input is
// "no metadata"; string maps are validated, loose maps are coerced, and
// anything else (arrays, scalars) is a hard validation error, the one
// metadata failure mode that does not degrade.
func ValidateAny(ctx context.Context, v any) (map[string]string, error) {
	switch md := v.(type) {
	case nil:
		return nil, nil
	case map[string]string:
		return Validate(ctx, md), nil
	case map[string]any:
		return Coerce(ctx, md), nil
	default:
		return nil, fmt.Errorf("metadata must be a string mapping, got %T", v)
	}
}

// metadataAttribute serializes md for the span-level metadata attribute. Maps
// marshal with sorted keys, so the serialization is deterministic.
func metadataAttribute(md map[string]string) attribute.KeyValue {
	b, err := json.Marshal(md)
	if err != nil {
		// Unreachable for string maps; fmt coercion keeps the contract of
		// never failing anyway.
		return attribute.String(semconv.Metadata, fmt.Sprintf("%v", md))
	}
	return attribute.String(semconv.Metadata, string(b))
}
