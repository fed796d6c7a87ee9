package runner

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"apollo.io/contract-tests/framework"
)

type environment struct {
	config TestConfiguration
}

// T represents the scope of one running test case. It is very similar to Go's testing.T, and
// satisfies the assert.TestingT and require.TestingT interfaces so that testify and matchers
// assertions can be used directly.
type T struct {
	env         *environment
	id          TestID
	debugLogger framework.CapturingLogger
	outcome     Outcome
	failed      bool
	skipped     bool
	skipReason  string
	cleanups    []func()
	errors      []error
	helperFns   []string
}

// TestConfiguration contains options for the entire test run.
type TestConfiguration struct {
	// Filter is an optional Filter for determining which tests to run based on their names.
	Filter Filter

	// TestLogger receives status information about each test.
	TestLogger TestLogger

	// Context is an optional value of any type defined by the application which can be accessed from tests.
	Context interface{}
}

// Run executes every test case in the registry, one at a time, in registration order. Each case
// runs to completion, including its deferred cleanups, before the next one starts.
func Run(config TestConfiguration, registry *Registry) Results {
	if config.TestLogger == nil {
		config.TestLogger = nullTestLogger{}
	}
	env := &environment{config: config}
	var results Results
	for _, tc := range registry.Cases() {
		results.add(env.runCase(tc))
	}
	return results
}

func (env *environment) runCase(tc TestCase) TestResult {
	id := TestID{tc.Name}
	logger := env.config.TestLogger

	logger.TestStarted(id)
	if env.config.Filter != nil && !env.config.Filter.Match(id) {
		const reason = "excluded by filter parameters"
		logger.TestSkipped(id, reason)
		return TestResult{TestID: id, Outcome: Skipped, SkipReason: reason}
	}

	t := &T{env: env, id: id, outcome: Pending}
	result := t.run(tc.Action)
	if result.Outcome == Skipped {
		logger.TestSkipped(id, result.SkipReason)
	} else {
		logger.TestFinished(id, result, t.debugLogger.Output())
	}
	return result
}

func (t *T) run(action func(*T)) (result TestResult) {
	result.TestID = t.id
	t.outcome = Running
	startTime := time.Now()
	defer func() {
		if r := recover(); r != nil {
			t.recoverFrom(r)
		}
		t.runCleanups()
		switch {
		case t.failed:
			if len(t.errors) == 0 {
				t.addError(errors.New("test failed with no failure message"))
			}
			t.outcome = Failed
		case t.skipped:
			t.outcome = Skipped
		default:
			t.outcome = Passed
		}
		result.Outcome = t.outcome
		result.Errors = t.errors
		result.SkipReason = t.skipReason
		result.Duration = time.Since(startTime)
	}()

	action(t)
	return result
}

func (t *T) recoverFrom(r interface{}) {
	if _, ok := r.(*T); ok {
		return // FailNow or Skip
	}
	t.failed = true
	t.addError(fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack())))
}

func (t *T) runCleanups() {
	for i := len(t.cleanups) - 1; i >= 0; i-- {
		func() {
			defer func() {
				if r := recover(); r != nil && r != t {
					t.failed = true
					t.addError(fmt.Errorf("unexpected panic in cleanup: %+v", r))
				}
			}()
			t.cleanups[i]()
		}()
	}
	t.cleanups = nil
}

func (t *T) addError(err error) {
	t.errors = append(t.errors, err)
	t.env.config.TestLogger.TestError(t.id, err)
}

// ID returns the full name of the current test.
func (t *T) ID() TestID {
	return t.id
}

// Outcome returns the current state of the test. While the test's action is executing this is
// always Running.
func (t *T) Outcome() Outcome {
	return t.outcome
}

// Failed returns true if the test has already been marked as failed.
func (t *T) Failed() bool {
	return t.failed
}

// Errorf reports a test failure. It is equivalent to Go's testing.T.Errorf. It does not cause the test
// to terminate, but adds the failure message to the output and marks the test as failed.
//
// You will rarely use this method directly; it is part of this type's implementation of the base
// interfaces testing.T and assert.TestingT, allowing it to be called from assertion helpers.
func (t *T) Errorf(format string, args ...interface{}) {
	t.failed = true
	err := fmt.Errorf(format, args...)
	t.addError(transformError(err, getStacktrace(false, t.helperFns)))
}

// FailWithError marks the test as failed with the given error and terminates it immediately.
// Unlike Errorf, the error chain is preserved, so that an infrastructure failure can still be
// recognized as one in the TestResult.
func (t *T) FailWithError(err error) {
	if err == nil {
		err = errors.New("FailWithError called with nil error")
	}
	t.failed = true
	t.addError(transformError(err, getStacktrace(false, t.helperFns)))
	t.FailNow()
}

// FailNow causes the test to immediately terminate and be marked as failed.
//
// You will rarely use this method directly; it is part of this type's implementation of the base
// interfaces testing.T and assert.TestingT, allowing it to be called from assertion helpers.
func (t *T) FailNow() {
	t.failed = true
	panic(t)
}

// Skip causes the test to immediately terminate and be marked as skipped.
func (t *T) Skip() {
	t.skipped = true
	panic(t)
}

// SkipWithReason is equivalent to Skip but provides a message.
func (t *T) SkipWithReason(reason string) {
	t.skipReason = reason
	t.Skip()
}

// Debug writes a message to the output for this test scope.
func (t *T) Debug(message string, args ...interface{}) {
	t.debugLogger.Printf(message, args...)
}

// DebugLogger returns a Logger instance for writing output for this test scope.
//
// The output that is captured for a test will be passed to TestLogger.TestFinished at the end of
// the test. The console logger shows it or not based on command-line options.
func (t *T) DebugLogger() framework.Logger {
	return &t.debugLogger
}

// Defer schedules a cleanup function which is guaranteed to be called when this test scope
// exits for any reason. Cleanups run in reverse order, before the next test starts.
func (t *T) Defer(cleanupFn func()) {
	t.cleanups = append(t.cleanups, cleanupFn)
}

// Context returns the application-defined context value, if any, that was specified in the
// TestConfiguration.
func (t *T) Context() interface{} {
	return t.env.config.Context
}

// Helper marks the function that calls it as a test helper that shouldn't appear in stacktraces.
// Equivalent to Go's testing.T.Helper().
func (t *T) Helper() {
	pc, _, _, ok := runtime.Caller(1) // 0 is Helper() itself, 1 is who called it
	if !ok {
		return
	}
	f := runtime.FuncForPC(pc)
	if f == nil {
		return
	}
	t.helperFns = append(t.helperFns, f.Name())
}
