/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agentrun

import (
	"context"
	"strings"
)

// handoffIndex is a bounded reverse parent-lookup table: target-agent key to
// the context carrying the handoff span that transferred control to it. When
// full, the oldest inserted entry is evicted first. Insertion order, not
// access order: a long-lived busy entry ages out the same as an idle one.
type handoffIndex struct {
	capacity int
	order    []string
	entries  map[string]context.Context
}

func newHandoffIndex(capacity int) *handoffIndex {
	return &handoffIndex{
		capacity: capacity,
		entries:  make(map[string]context.Context, capacity),
	}
}

func (h *handoffIndex) put(key string, ctx context.Context) {
	if _, ok := h.entries[key]; !ok {
		if len(h.order) >= h.capacity {
			oldest := h.order[0]
			h.order = h.order[1:]
			delete(h.entries, oldest)
		}
		h.order = append(h.order, key)
	}
	h.entries[key] = ctx
}

// take removes and returns the entry for key. An entry resolves exactly one
// agent start; leaving it behind would re-parent later same-named agents under
// a stale handoff and pin a capacity slot for the rest of the trace.
func (h *handoffIndex) take(key string) (context.Context, bool) {
	ctx, ok := h.entries[key]
	if !ok {
		return nil, false
	}
	delete(h.entries, key)
	for i, k := range h.order {
		if k == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return ctx, true
}

// dropPrefix discards every entry whose key starts with prefix, used when a
// trace ends to release its handoff entries.
func (h *handoffIndex) dropPrefix(prefix string) {
	kept := h.order[:0]
	for _, k := range h.order {
		if strings.HasPrefix(k, prefix) {
			delete(h.entries, k)
			continue
		}
		kept = append(kept, k)
	}
	h.order = kept
}
