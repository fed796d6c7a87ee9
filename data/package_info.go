// Package data provides the request fixtures used by the registration contract tests. The
// fixtures live in YAML files under data-files, which are embedded in the executable.
package data
