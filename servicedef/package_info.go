// Package servicedef contains definitions for the registration service's HTTP and storage
// contract, as consumed by the contract tests.
//
// The package does not implement the service. It only describes what the tests send and what
// they expect to observe.
package servicedef
