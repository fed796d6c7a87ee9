package framework

import (
	"errors"
	"fmt"
)

// Kind classifies a failure that can occur during a contract test run.
type Kind int

const (
	// KindAssertion means an observed value did not match the expected contract.
	KindAssertion Kind = iota
	// KindInfrastructure means a transport or database operation failed before any value
	// could be observed.
	KindInfrastructure
	// KindConfiguration means the run cannot start because its configuration is invalid.
	KindConfiguration
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindAssertion:
		return "assertion"
	case KindInfrastructure:
		return "infrastructure"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is an error tagged with a Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s failure: %s", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s failure (%s): %s", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Infrastructure wraps err as a KindInfrastructure error. It returns nil if err is nil.
func Infrastructure(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindInfrastructure, Op: op, Err: err}
}

// Configuration wraps err as a KindConfiguration error. It returns nil if err is nil.
func Configuration(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindConfiguration, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindAssertion, false
}

// IsInfrastructure returns true if err is, or wraps, an infrastructure failure.
func IsInfrastructure(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindInfrastructure
}

// IsConfiguration returns true if err is, or wraps, a configuration failure.
func IsConfiguration(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindConfiguration
}
