// Command flowcat imports workflow exports into a local catalog.
//
// `flowcat import` creates an import session from files or directories,
// `flowcat process` advances it one item at a time (or drains it), and
// `flowcat status` and `flowcat cancel` inspect and stop it. Catalog cleanups
// live under `flowcat catalog`.
package main
