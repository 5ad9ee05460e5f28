/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sdk

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"chainguard.dev/llmtrace/instrument"
	"chainguard.dev/llmtrace/tracectx"
)

// Experiment describes a run of RunExperiment. Both fields are optional: an
// empty Name gets a generated one, and the Description is recorded only when
// set.
type Experiment struct {
	Name        string
	Description string
}

// RunExperiment runs fn inside an instrumented span whose trace is tagged as
// an experiment. The experiment's name and description land on the trace's
// root span, and the run's environment classification is forced to dev; fn's
// result and error pass through unchanged.
func RunExperiment[T any](ctx context.Context, exp Experiment, fn func(context.Context) (T, error)) (T, error) {
	if !configured.Load() {
		var zero T
		return zero, ErrNotConfigured
	}
	if exp.Name == "" {
		exp.Name = ExperimentName()
	}
	runID := uuid.NewString()
	log := clog.FromContext(ctx)
	log.Infof("starting experiment %q run %s", exp.Name, runID)

	ctx = tracectx.WithExperiment(ctx, tracectx.Experiment{
		Name:        exp.Name,
		Description: exp.Description,
	})
	out, err := instrument.Wrap(exp.Name, fn)(ctx)
	if err != nil {
		log.Errorf("experiment %q run %s failed: %v", exp.Name, runID, err)
		return out, err
	}
	log.Infof("experiment %q run %s complete", exp.Name, runID)
	return out, nil
}

var experimentWords = []string{
	"amber", "basalt", "cedar", "delta", "ember", "fjord", "granite", "harbor",
	"indigo", "juniper", "kestrel", "lagoon", "meadow", "nimbus", "onyx",
	"prairie", "quartz", "ridge", "summit", "thicket", "umber", "vortex",
	"willow", "zephyr",
}

// ExperimentName generates a readable unique name: four random words and an
// eight-character hex suffix.
func ExperimentName() string {
	parts := make([]string, 0, 5)
	for range 4 {
		parts = append(parts, experimentWords[rand.IntN(len(experimentWords))])
	}
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strings.Join(append(parts, hex), "-")
}
