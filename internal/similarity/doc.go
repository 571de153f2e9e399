// Package similarity provides replaceable policies for scoring how visually
// close two sampled frames are.
//
// Both scorers work on a Rec.601 grayscale plane area-averaged to a bounded
// size, which keeps them insensitive to encoding noise and cheap enough to run
// once per sampled frame. SSIM is the default; PixelDelta is a simpler
// alternative that is easier to reason about when tuning thresholds.
package similarity
