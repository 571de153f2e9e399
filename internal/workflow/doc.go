// Package workflow runs the end-to-end lecture jobs behind the CLI.
//
// A Manager binds one configuration to its collaborators (the catalog, the
// optional slide index, the vision describer, and the caption corrector) and
// exposes the jobs the commands need: ExtractVideo decodes a video into key
// frames and writes every enabled export, DescribeFrames turns an exported
// frame folder into descriptions, Caption aligns generated captions with the
// slides and corrects them, and SweepThresholds segments one decode at a
// grid of similarity thresholds.
//
// Each job tags its context with the run, video, and stage so log lines from
// the lower packages carry the same fields. Extraction failures are written
// back to the catalog with the status services.FailureStatus derives from the
// error.
package workflow
