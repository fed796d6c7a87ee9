// Package runner contains the test runner used by the contract test suite. It is similar to Go's
// testing package, but it runs as regular application code against a live service rather than as
// Go tests, and it turns each test case into an explicit result value instead of letting failures
// unwind the run.
//
// Test cases are registered in a Registry and executed strictly one at a time, in registration
// order. A case that fails never prevents the remaining cases from running.
package runner
