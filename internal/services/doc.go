// Package services defines shared utilities consumed by the extraction
// pipeline and its model integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, video names, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent run statuses (completed, cancelled, rejected, failed).
//
// Use these helpers when wiring new pipeline stages so operational behaviour
// (error handling, observability) stays uniform.
package services
