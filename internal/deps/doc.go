// Package deps checks that the external binaries autocaption shells out to
// (ffmpeg, ffprobe) are resolvable before any work starts.
package deps
