/*
Package log provides structured logging for WarpGraph using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support
filtering by severity level for production debugging.

# Core components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized via log.Init(), defaulting to info level on package load
  - Accessible from every WarpGraph package without being passed around

Context loggers:
  - WithComponent: tag logs with a subsystem name ("reducer", "syncproto",
    "doctor", "checkpoint", "trust")
  - WithGraph: tag logs with a graph name
  - WithWriter: tag logs with a writer id
  - WithPeer: tag logs with a sync peer address

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	reducerLog := log.WithComponent("reducer")
	reducerLog.Info().Int("ops", len(patch.Ops)).Msg("applied patch")

	syncLog := log.WithComponent("syncproto").With().
		Str("peer", peerAddr).Logger()
	syncLog.Warn().Err(err).Msg("sync round failed, retrying")

# Security

Never log secret material: HMAC keys, patch blob contents that may carry
user data via PropSet blob values, or raw signing keys. Structured fields
only ever carry identifiers (writer id, graph name, commit digest), never
payload bytes.
*/
package log
