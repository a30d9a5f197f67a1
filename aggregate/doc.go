// Package aggregate implements the map-reduce content aggregation used to
// analyze or summarize item collections too large for a single inference
// call. Each item is evaluated independently in the map phase (optionally in
// parallel, bounded by a concurrency limit), then a single reduce call
// synthesizes the per-item outputs into one result.
//
// Two modes exist: analysis (1-10 score plus reasoning per dimension) and
// summary (free-text synthesis per dimension). Item normalization into Units
// happens upstream, in the toolkit package.
package aggregate
