// Package preflight provides readiness checks for the tools, directories, and
// services autocaption depends on.
//
// The CLI "autocaption doctor" command runs RunAll and renders the results as
// a table. The extract and caption commands run the same checks before
// decoding so a missing binary or unreachable model is reported up front
// rather than after minutes of work.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
