package runner

import (
	"errors"
	"fmt"
)

var (
	errEmptyTestName = errors.New("test name must not be empty")
	errNilAction     = errors.New("test action must not be nil")
)

// TestCase is a named, independently runnable check.
type TestCase struct {
	Name   string
	Action func(*T)
}

// Registry is an ordered collection of test cases with unique names. It is populated once at
// startup and then handed to Run.
type Registry struct {
	cases []TestCase
	names map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Add appends a test case. It fails if the name is empty or already registered.
func (r *Registry) Add(name string, action func(*T)) error {
	if name == "" {
		return errEmptyTestName
	}
	if action == nil {
		return fmt.Errorf("%q: %w", name, errNilAction)
	}
	if r.names == nil {
		r.names = make(map[string]bool)
	}
	if r.names[name] {
		return fmt.Errorf("duplicate test name %q", name)
	}
	r.names[name] = true
	r.cases = append(r.cases, TestCase{Name: name, Action: action})
	return nil
}

// MustAdd is like Add but panics on error. It is meant for suites whose tests are declared in
// code, where a bad name is a programming error.
func (r *Registry) MustAdd(name string, action func(*T)) *Registry {
	if err := r.Add(name, action); err != nil {
		panic(err)
	}
	return r
}

// Cases returns the registered test cases in registration order.
func (r *Registry) Cases() []TestCase {
	return append([]TestCase(nil), r.cases...)
}

func (r *Registry) Len() int {
	return len(r.cases)
}
