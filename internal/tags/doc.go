// Package tags turns raw shelf vote counts into a thresholded tag list.
//
// A Counter accumulates votes per tag after shelves are mapped through a
// Mapping. Thresholds then prune it twice: once with an absolute minimum and
// once with a percentage of the average count found at configured ranks.
// Counters remember insertion order so rank ties resolve the same way on
// every run.
package tags
