package runner

import (
	"fmt"
	"strings"
	"time"

	"apollo.io/contract-tests/framework"
)

// Outcome is the state of a single test case. A case starts Pending, becomes Running while its
// action executes, and ends as Passed or Failed. Cases excluded by a filter go straight from
// Pending to Skipped.
type Outcome int

const (
	Pending Outcome = iota
	Running
	Passed
	Failed
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// IsTerminal returns true for the outcomes that a finished TestResult can carry.
func (o Outcome) IsTerminal() bool {
	return o == Passed || o == Failed || o == Skipped
}

type TestID []string

func (t TestID) String() string {
	return strings.Join(t, "/")
}

func (t TestID) Plus(name string) TestID {
	return append(append(TestID(nil), t...), name)
}

// TestResult is the immutable record of one test case invocation.
type TestResult struct {
	TestID     TestID
	Outcome    Outcome
	Errors     []error
	SkipReason string
	Duration   time.Duration
}

// Diagnostic returns the failure messages of the test, one per line.
func (r TestResult) Diagnostic() string {
	messages := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		messages = append(messages, e.Error())
	}
	return strings.Join(messages, "\n")
}

// Stacktrace returns the stacktrace captured for the first failure that has one.
func (r TestResult) Stacktrace() []StacktraceInfo {
	for _, e := range r.Errors {
		if es, ok := e.(ErrorWithStacktrace); ok && len(es.Stacktrace) != 0 {
			return es.Stacktrace
		}
	}
	return nil
}

// FailureKind reports whether a failed test failed because of the infrastructure (the service or
// database could not be reached, a query could not run) or because an assertion did not hold.
func (r TestResult) FailureKind() framework.Kind {
	for _, e := range r.Errors {
		if framework.IsInfrastructure(e) {
			return framework.KindInfrastructure
		}
	}
	return framework.KindAssertion
}

// Summary is the aggregate count for one run. Skipped tests are not included.
type Summary struct {
	Passed int
	Failed int
	Total  int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d passed, %d failed, %d total", s.Passed, s.Failed, s.Total)
}

// Results holds every TestResult of a run, in the order the tests were registered.
type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

func (r *Results) add(result TestResult) {
	r.Tests = append(r.Tests, result)
	if result.Outcome == Failed {
		r.Failures = append(r.Failures, result)
	}
}

// Summary folds the results into passed/failed/total counts.
func (r Results) Summary() Summary {
	var s Summary
	for _, t := range r.Tests {
		switch t.Outcome {
		case Passed:
			s.Passed++
		case Failed:
			s.Failed++
		}
	}
	s.Total = s.Passed + s.Failed
	return s
}

// Skipped returns the results of tests that were excluded or skipped.
func (r Results) Skipped() []TestResult {
	var ret []TestResult
	for _, t := range r.Tests {
		if t.Outcome == Skipped {
			ret = append(ret, t)
		}
	}
	return ret
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}
