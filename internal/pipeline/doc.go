// Package pipeline drains import sessions one item per step.
//
// A Processor is driven from outside: each Step call claims the oldest
// pending item of a session, parses and analyzes it, upserts the analysis
// into the catalog, and records the outcome on the item and the session
// counters. Parse and analysis failures fail the item and never the session.
// Storage failures propagate and leave the item processing until a later
// step reclaims it as stale. When nothing is left the session is completed.
//
// Status projects session and queue state into a Progress snapshot without
// side effects.
package pipeline
