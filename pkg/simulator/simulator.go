// Package simulator provides the public API for embedding the edge
// pipeline simulator. This is the stable API for external consumers.
package simulator

import (
	"github.com/ryanolee/serverless-offline-edge-lambda/internal/runtime"
)

// Simulator is the main entry point for running the simulator.
// See internal/runtime.Simulator for full documentation.
type Simulator = runtime.Simulator

// Option is a functional option for configuring a Simulator.
type Option = runtime.Option

// New creates a new Simulator with the given options.
// Example:
//
//	sim, err := simulator.New(
//	    simulator.WithFileConfig("config.yaml"),
//	)
var New = runtime.New

// Configuration options
var (
	WithFileConfig = runtime.WithFileConfig
	WithConfig     = runtime.WithConfig
	WithLogger     = runtime.WithLogger
	WithCacheStore = runtime.WithCacheStore
	WithFetcher    = runtime.WithFetcher
)
