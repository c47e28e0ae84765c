// Package dedup derives deterministic identities for workflow content.
//
// A Key is computed from a canonical projection of the workflow (its name,
// the ordered node type and position pairs, and the connection graph),
// serialized compactly and reduced with a 32-bit rolling hash over UTF-16
// code units. The key ignores file names and paths. Distinct projections can
// collide; the key is an approximation, not a cryptographic digest.
package dedup
