// Package index stores slide fingerprints in Postgres with pgvector so slides
// can be found again across lectures.
//
// Fingerprint reduces an image to a 64-dimension luma layout vector that is
// insensitive to overall brightness and contrast. Store implements
// export.Exporter and answers nearest-slide queries ordered by cosine
// distance. The index is optional; nothing else in the pipeline depends on it.
package index
