// Package features computes acoustic descriptors (energy, zero-crossing rate,
// pitch, spectral centroid, log-spectrum timbre) from a mono clip and derives
// coarse gender and emotion classes from them.
//
// Frames are 1024 samples with a 512-sample hop. Pitch uses normalised
// autocorrelation over 60-400 Hz and is only reported for voiced frames.
package features
