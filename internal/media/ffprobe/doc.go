// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties including dimensions and frame rate
//
// Inspect is the entry point. Helper methods on Result pick the primary video
// stream and resolve the duration used to close the final key-frame run.
package ffprobe
