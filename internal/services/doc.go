// Package services defines shared utilities consumed by the import pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, queue item IDs, and step request
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that separate per-item
//     failures (parse, analysis) from failures that abort a processing step.
package services
