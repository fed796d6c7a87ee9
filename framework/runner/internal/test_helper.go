// Package internal contains test helpers for the runner package.
package internal

// RunAction is used only in unit tests, but exported because it has to be in a separate package
// so that it shows up in stacktraces that exclude the runner package.
func RunAction(action func()) {
	action()
}
