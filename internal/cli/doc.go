// Package cli is responsible for parsing command-line arguments, validating
// user input, and running a graph file end to end: load, backward, report
// and optional export.
package cli
