// Package regtests contains the contract tests for the user registration endpoint.
//
// Each test case resets the users table, talks to the service through a serviceclient.Client,
// and verifies what was persisted through a dbprobe.Store. The suite is run with
// RunRegistrationTestSuite.
package regtests
