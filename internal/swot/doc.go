// Package swot is the aggregation engine behind group SWOT workshops.
//
// Groups fill four quadrant lists and four cross-impact grids, analyses are
// recomputed from grid state on demand, and a plan consolidates its filled
// groups into a capped final matrix with its own risk classification set.
//
// Everything here is synchronous and works on in-memory snapshots. Loading,
// storing and caching those snapshots is the caller's job.
package swot
