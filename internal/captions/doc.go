// Package captions reads and writes WebVTT caption files, aligns cues to the
// key-frame spans they were spoken over, and applies caption correction.
//
// Align assigns every cue to exactly one span by its start time. Correctors
// rewrite the cue text of one segment at a time; timings are never changed.
// LLMCorrector discards rewrites that drift too far from the original words so
// a misbehaving model cannot replace the transcript.
package captions
