// Package vision describes key-frame images with a vision-capable language
// model.
//
// LLMDescriber downsizes each image, sends it as a JPEG data URL, and parses a
// JSON reply with a summary and the text visible on the slide. Cached wraps any
// Describer with the catalog so identical slides are described once per
// model. DescribeAll fans work out over a bounded worker group while keeping
// results in input order.
//
// Failures carry services.ErrModelUnavailable when the model could not be
// reached and services.ErrInference when its reply was unusable.
package vision
