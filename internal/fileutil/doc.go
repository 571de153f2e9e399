// Package fileutil provides atomic file writes and content digests for
// exported artifacts.
package fileutil
