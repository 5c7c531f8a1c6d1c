// Package logs exposes the info, warning and error loggers used across the server.
package logs

import (
	"io"
	"log"
	"os"
)

var (
	Info    = log.New(os.Stdout, "I ", log.LstdFlags|log.Lshortfile)
	Warning = log.New(os.Stdout, "W ", log.LstdFlags|log.Lshortfile)
	Error   = log.New(os.Stderr, "E ", log.LstdFlags|log.Lshortfile)
)

// Init points all three loggers at w. Passing nil restores stdout/stderr.
func Init(w io.Writer) {
	if w == nil {
		Info.SetOutput(os.Stdout)
		Warning.SetOutput(os.Stdout)
		Error.SetOutput(os.Stderr)
		return
	}
	Info.SetOutput(w)
	Warning.SetOutput(w)
	Error.SetOutput(w)
}
