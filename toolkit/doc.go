// Package toolkit provides the domain tools wired into engines: date
// computations, issue-tracker search, code-host retrieval, and the analysis
// and summary tools that run the map-reduce aggregator over fetched data.
//
// Retrieval tools do not return raw data to the model. They store the
// structured results in shared memory under a producer-namespaced key and
// return only that key; the analysis and summary tools accept a memory key
// and read the data back out. This keeps large payloads out of the
// conversation while letting later steps reference earlier results.
package toolkit
