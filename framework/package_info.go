// Package framework contains the low-level infrastructure shared by the contract test runner and
// the registration test suite: the Logger abstraction used for debug output, and the error
// taxonomy that separates assertion failures from infrastructure and configuration failures.
//
// The general model is:
//
// 1. A configuration value is resolved once at startup and passed explicitly to every component.
//
// 2. Tests talk to the service under test over HTTP, and to its database through a short-lived
// probe connection that is opened and closed for every statement.
//
// 3. The runner in the runner subpackage executes registered test cases one at a time and turns
// each one into an explicit result value.
package framework
