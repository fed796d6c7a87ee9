package main

import (
	"errors"
	"fmt"
)

const (
	exitSuccess      = 0
	exitTestsFailed  = 1
	exitCommandError = 2
)

// exitError is an error that determines the process exit code.
type exitError struct {
	code    int
	message string
	err     error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *exitError) Unwrap() error { return e.err }

func commandError(message string, err error) error {
	return &exitError{code: exitCommandError, message: message, err: err}
}

// errTestsFailed is returned when the run completed but had failures. The summary has already
// been printed, so it is not printed again.
var errTestsFailed = &exitError{code: exitTestsFailed, message: "one or more tests failed"}

// exitCode maps an error returned by the root command to a process exit code. Errors that did
// not come from the run itself, such as unknown flags, are command errors.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return exitCommandError
}
