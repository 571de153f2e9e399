// Package catalog records extraction history and cached frame descriptions in
// a local SQLite database.
//
// Each extraction is a run with its parameters, outcome, and exported key
// frames. Descriptions are keyed by image digest and model so unchanged
// slides are never sent to the vision model twice.
package catalog
