// Package logging provides a minimal logging interface and adapters.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that agents, tools and surfaces use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ZapAdapter wrapping go.uber.org/zap
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger, err := logging.New(logging.Config{Level: logging.LogLevelInfo, Backend: "zap", Format: "json"})
//	d := agentcrew.New(team, func(o *agentcrew.Options) { o.Logger = logger })
//
// Event names are dotted lowercase identifiers ("agent.respond.start") followed
// by key/value pairs.
package logging
