/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sdk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/llmtrace/tracectx"
)

// Integration is one provider hookup: installing it routes that provider's
// calls through the SDK's span recording, uninstalling restores the provider
// untouched. Implementations live under integrations/.
type Integration interface {
	Name() string
	Install(context.Context) error
	Uninstall(context.Context) error
}

var (
	regMu    sync.Mutex
	registry = map[string]Integration{}
)

// Instrument installs an integration. Requires a prior Configure. Installing
// under the same name replaces: the previous integration uninstalls first, so
// repeated calls are idempotent rather than stacking. Under suppression the
// call is a no-op.
func Instrument(ctx context.Context, integ Integration) error {
	if !configured.Load() {
		return fmt.Errorf("%w: call Configure before instrumenting %s", ErrNotConfigured, integ.Name())
	}
	if tracectx.FromContext(ctx).Suppress {
		return nil
	}

	regMu.Lock()
	defer regMu.Unlock()
	if old, ok := registry[integ.Name()]; ok {
		if err := old.Uninstall(ctx); err != nil {
			clog.FromContext(ctx).Warnf("uninstalling previous %s integration: %v", integ.Name(), err)
		}
	}
	if err := integ.Install(ctx); err != nil {
		delete(registry, integ.Name())
		return fmt.Errorf("installing %s integration: %w", integ.Name(), err)
	}
	registry[integ.Name()] = integ
	return nil
}

// Uninstrument removes an installed integration by name. Unknown names are
// no-ops.
func Uninstrument(ctx context.Context, name string) error {
	regMu.Lock()
	integ, ok := registry[name]
	delete(registry, name)
	regMu.Unlock()
	if !ok {
		return nil
	}
	return integ.Uninstall(ctx)
}

// WithInstrumented installs integ for the duration of fn, uninstalling on the
// way out regardless of how fn returns.
func WithInstrumented(ctx context.Context, integ Integration, fn func(context.Context) error) error {
	if err := Instrument(ctx, integ); err != nil {
		return err
	}
	defer func() {
		if err := Uninstrument(ctx, integ.Name()); err != nil {
			clog.FromContext(ctx).Warnf("uninstalling %s integration: %v", integ.Name(), err)
		}
	}()
	return fn(ctx)
}

// uninstallAll tears down every installed integration, joining errors.
func uninstallAll(ctx context.Context) error {
	regMu.Lock()
	installed := make([]Integration, 0, len(registry))
	for _, integ := range registry {
		installed = append(installed, integ)
	}
	registry = map[string]Integration{}
	regMu.Unlock()

	var errs []error
	for _, integ := range installed {
		if err := integ.Uninstall(ctx); err != nil {
			errs = append(errs, fmt.Errorf("uninstalling %s: %w", integ.Name(), err))
		}
	}
	return errors.Join(errs...)
}
