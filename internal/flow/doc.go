// Package flow defines the structured workflow values exchanged between the
// parser, the analyzer, and the catalog.
//
// A Workflow is the parsed form of an exported automation definition: its
// name, its nodes with their editor positions, and the connection graph.
// Analysis is the structured record the analyzer produces and the catalog
// persists. JSON encoding of these values is confined to the parser and the
// catalog store.
package flow
