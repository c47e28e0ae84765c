// Package maintenance runs catalog cleanups that also touch queue history:
// deleting entries by tag, collapsing entries that share a name, and
// renaming duplicate names apart. Queue rows that reference a deleted entry
// are removed first so no item points at a missing workflow.
package maintenance
