// Package extract wires frame decoding, similarity scoring, and run
// segmentation into a single cancellable pipeline.
//
// Parallelism is limited to decode-ahead and per-frame analysis. Every
// observation re-enters the state machine in strict frame-index order, so
// output is identical regardless of worker count.
package extract
