// Package catalog stores analyzed workflows in SQLite.
//
// Entries are keyed by the workflow's content key, so re-importing identical
// content updates the existing entry rather than adding a new one. Structured
// fields (categories, node types, triggers) are plain slices at the package
// boundary and JSON-encoded columns inside the database.
//
// The catalog lives in its own database file. Import queue rows refer to
// entries by id without a foreign key, so deleting an entry never cascades
// into import history.
package catalog
