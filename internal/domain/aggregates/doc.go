// Package aggregates defines domain-facing aggregate contracts.
//
// These contracts avoid persistence/transport details and mark the write
// boundaries whose invariants must be enforced atomically.
package aggregates
