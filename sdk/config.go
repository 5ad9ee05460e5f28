/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sdk

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// Config holds everything Configure needs. Token is the only required field.
type Config struct {
	// Token authenticates against the collector. Required.
	Token string `env:"LLMTRACE_TOKEN"`

	// Endpoint is the OTLP/HTTP trace ingest URL.
	Endpoint string `env:"LLMTRACE_ENDPOINT, default=https://ingest.llmtrace.dev/v1/traces"`

	// ServiceName labels exported spans.
	ServiceName string `env:"LLMTRACE_SERVICE, default=llmtrace-app"`

	// Metadata becomes the process-wide default metadata, subject to the
	// usual validation limits.
	Metadata map[string]string `env:"LLMTRACE_METADATA"`
}

// ConfigFromEnv populates a Config from the process environment.
func ConfigFromEnv(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
