// Package logs reads the JSON log file written by the CLI.
//
// Tail returns the last lines of the file, optionally waiting for new ones,
// and reports the byte offset to resume from. Filter narrows JSON records to
// those carrying a given field value, such as a session id.
package logs
