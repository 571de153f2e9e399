// Package textutil provides text helpers shared by caption correction, frame
// descriptions, and artifact naming.
//
// Fingerprints are case-folded term-frequency vectors used to measure how far
// a model rewrite drifted from its input. Normalize and SingleLine clean model
// output before it is written to disk.
package textutil
