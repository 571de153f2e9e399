// Package keyframe turns an ordered stream of scored frames into key frames.
//
// Machine folds observations into runs of visually equivalent frames. A frame
// scoring at or above the similarity threshold against the run reference
// joins the run; anything else closes it and opens a new one. Selector picks
// each run's sharpest frame, preferring the earliest on ties, and Machine
// emits one KeyFrame per run in order.
package keyframe
