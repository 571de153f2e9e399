// Package export writes the key frames of a run to disk: one JPEG per key
// frame, a PDF deck, and a keyframes.json manifest.
//
// Exporters share a Job describing the source video and output directory.
// Images records the files it writes in Job.Artifacts so later exporters in a
// Multi (the manifest, the catalog) can refer to them. All files are written
// atomically. LockDir guards an output directory against concurrent runs.
package export
