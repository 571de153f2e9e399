// Package frames produces the time-ordered sequence of sampled video frames
// that feeds key-frame extraction.
//
// FFmpegReader decodes with ffmpeg at a wall-clock sampling interval and owns
// the decoder process exclusively. SliceReader serves in-memory frames for
// synthetic inputs. Prefetch adds bounded decode-ahead with backpressure.
package frames
