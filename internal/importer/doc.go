// Package importer validates a batch of workflow files and turns it into an
// import session.
//
// Files whose content key repeats an earlier file in the batch, or is already
// in the catalog, are skipped. Content that cannot be keyed falls back to a
// name and path identity. The session and its queue items are written in one
// transaction.
package importer
