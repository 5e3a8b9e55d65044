package main

import (
	"fmt"
	"os"
)

// logger gates the verbose progress output of the commands: a false
// logger drops every message.
type logger bool

// Logf writes the given message to STDERR followed by a newline when
// the logger is enabled.
func (l logger) Logf(format string, a ...interface{}) {
	if !l {
		return
	}
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintln(os.Stderr, "")
}
