// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. Components log event-style messages ("engine.plan.start",
// "tool.call.success") with key/value attributes.
package logging
