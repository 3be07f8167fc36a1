// Package logging provides a minimal logging interface and adapters for statemesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that reducers, stores and notification buses use for diagnostics. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - StructuredLogger with app and component context plus dispatch helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	app := statemesh.Init("my-app", manager, statemesh.WithLogger(logger))
//
// The interface stays minimal so hosts can plug in any structured logger.
package logging
