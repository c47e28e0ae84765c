// Package analysis turns parsed workflows into catalog analyses.
//
// Heuristic derives categories, triggers, and a complexity rating locally from
// node types and is always available. LLM asks an OpenRouter-compatible chat
// model for a description and categories, seeded with the heuristic result,
// and authenticates with the credential of the session being processed.
// New picks one based on the analyzer mode in config.
package analysis
