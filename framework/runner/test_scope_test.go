package runner

import (
	"errors"
	"fmt"
	"testing"

	"apollo.io/contract-tests/framework"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryOf(cases ...TestCase) *Registry {
	r := NewRegistry()
	for _, c := range cases {
		r.MustAdd(c.Name, c.Action)
	}
	return r
}

func TestTestScopeInheritsContext(t *testing.T) {
	myContextValue := "hi"
	var seen interface{}
	_ = Run(TestConfiguration{Context: myContextValue}, registryOf(
		TestCase{"a", func(rt *T) { seen = rt.Context() }},
	))
	assert.Equal(t, myContextValue, seen)
}

func TestTestScopeExitsImmediatelyOnFailNow(t *testing.T) {
	executed1 := false
	executed2 := false
	executed3 := false
	_ = Run(TestConfiguration{}, registryOf(
		TestCase{"a", func(rt *T) {
			executed1 = true
			rt.FailNow()
			executed2 = true
		}},
		TestCase{"b", func(rt *T) { executed3 = true }},
	))
	assert.True(t, executed1)
	assert.False(t, executed2)
	assert.True(t, executed3)
}

func TestTestScopeExitsImmediatelyOnSkip(t *testing.T) {
	executed1 := false
	executed2 := false
	result := Run(TestConfiguration{}, registryOf(
		TestCase{"a", func(rt *T) {
			executed1 = true
			rt.SkipWithReason("why not")
			executed2 = true
		}},
	))
	assert.True(t, executed1)
	assert.False(t, executed2)
	require.Len(t, result.Tests, 1)
	assert.Equal(t, Skipped, result.Tests[0].Outcome)
	assert.Equal(t, "why not", result.Tests[0].SkipReason)
	assert.Equal(t, Summary{}, result.Summary())
}

func TestTestScopePassedResult(t *testing.T) {
	var outcomeDuringRun Outcome
	result := Run(TestConfiguration{}, registryOf(
		TestCase{"first", func(rt *T) { outcomeDuringRun = rt.Outcome() }},
		TestCase{"second", func(rt *T) {}},
	))

	assert.Equal(t, Running, outcomeDuringRun)
	assert.True(t, result.OK())
	assert.Len(t, result.Tests, 2)
	assert.Len(t, result.Failures, 0)
	assert.Equal(t, Summary{Passed: 2, Failed: 0, Total: 2}, result.Summary())

	assert.Equal(t, TestID{"first"}, result.Tests[0].TestID)
	assert.Equal(t, Passed, result.Tests[0].Outcome)
	assert.Len(t, result.Tests[0].Errors, 0)

	assert.Equal(t, TestID{"second"}, result.Tests[1].TestID)
	assert.Equal(t, Passed, result.Tests[1].Outcome)
}

func TestTestScopeFailedResult(t *testing.T) {
	result := Run(TestConfiguration{}, registryOf(
		TestCase{"passes", func(rt *T) {}},
		TestCase{"fails", func(rt *T) {
			rt.Errorf("failed because %s", "reasons")
			rt.Errorf("and failed some more")
		}},
		TestCase{"also passes", func(rt *T) {}},
	))

	assert.False(t, result.OK())
	assert.Len(t, result.Tests, 3)
	assert.Len(t, result.Failures, 1)
	assert.Equal(t, Summary{Passed: 2, Failed: 1, Total: 3}, result.Summary())

	failed := result.Tests[1]
	assert.Equal(t, TestID{"fails"}, failed.TestID)
	assert.Equal(t, Failed, failed.Outcome)
	require.Len(t, failed.Errors, 2)
	assert.Equal(t, "failed because reasons", failed.Errors[0].Error())
	assert.Equal(t, "and failed some more", failed.Errors[1].Error())
	assert.Equal(t, "failed because reasons\nand failed some more", failed.Diagnostic())
	assert.Equal(t, framework.KindAssertion, failed.FailureKind())
	assert.Equal(t, failed, result.Failures[0])
}

func TestTestScopeFailureIsolation(t *testing.T) {
	var ran []string
	cases := []TestCase{
		{"one", func(rt *T) { ran = append(ran, "one"); rt.FailNow() }},
		{"two", func(rt *T) { ran = append(ran, "two"); panic("boom") }},
		{"three", func(rt *T) { ran = append(ran, "three") }},
		{"four", func(rt *T) { ran = append(ran, "four"); rt.Errorf("nope") }},
	}
	registry := registryOf(cases...)
	result := Run(TestConfiguration{}, registry)

	assert.Equal(t, []string{"one", "two", "three", "four"}, ran)
	summary := result.Summary()
	assert.Equal(t, registry.Len(), summary.Total)
	assert.Equal(t, summary.Total, summary.Passed+summary.Failed)
	assert.Equal(t, Summary{Passed: 1, Failed: 3, Total: 4}, summary)

	assert.Equal(t, "test failed with no failure message", result.Tests[0].Diagnostic())
	assert.Contains(t, result.Tests[1].Diagnostic(), "unexpected panic in test: boom")
}

func TestTestScopeFailWithErrorKeepsInfrastructureKind(t *testing.T) {
	cause := errors.New("connection refused")
	executedAfter := false
	result := Run(TestConfiguration{}, registryOf(
		TestCase{"a", func(rt *T) {
			rt.FailWithError(framework.Infrastructure("reset users", cause))
			executedAfter = true
		}},
	))

	assert.False(t, executedAfter)
	require.Len(t, result.Failures, 1)
	failure := result.Failures[0]
	assert.Equal(t, framework.KindInfrastructure, failure.FailureKind())
	assert.ErrorIs(t, failure.Errors[0], cause)
	assert.Equal(t, "infrastructure failure (reset users): connection refused", failure.Diagnostic())
}

func TestTestScopeDeferredCleanupsRunInReverseOrder(t *testing.T) {
	var calls []string
	result := Run(TestConfiguration{}, registryOf(
		TestCase{"a", func(rt *T) {
			rt.Defer(func() { calls = append(calls, "first") })
			rt.Defer(func() { calls = append(calls, "second") })
			rt.FailNow()
		}},
		TestCase{"b", func(rt *T) { calls = append(calls, "next test") }},
	))
	assert.Equal(t, []string{"second", "first", "next test"}, calls)
	assert.Len(t, result.Failures, 1)
}

func TestTestScopePanicInCleanupFailsTest(t *testing.T) {
	result := Run(TestConfiguration{}, registryOf(
		TestCase{"a", func(rt *T) {
			rt.Defer(func() { panic("cleanup broke") })
		}},
	))
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0].Diagnostic(), "unexpected panic in cleanup: cleanup broke")
}

func TestTestScopeFilter(t *testing.T) {
	filter := FilterFunc(func(id TestID) bool {
		return id[0] == "b"
	})
	ran := false
	result := Run(TestConfiguration{Filter: filter}, registryOf(
		TestCase{"a", func(rt *T) { ran = true }},
		TestCase{"b", func(rt *T) {}},
	))

	assert.False(t, ran)
	assert.True(t, result.OK())
	require.Len(t, result.Tests, 2)
	assert.Equal(t, Skipped, result.Tests[0].Outcome)
	assert.Equal(t, "excluded by filter parameters", result.Tests[0].SkipReason)
	assert.Equal(t, Passed, result.Tests[1].Outcome)
	assert.Len(t, result.Skipped(), 1)
	assert.Equal(t, Summary{Passed: 1, Total: 1}, result.Summary())
}

type recordingTestLogger struct {
	events []string
}

func (r *recordingTestLogger) TestStarted(id TestID) {
	r.events = append(r.events, "started "+id.String())
}

func (r *recordingTestLogger) TestError(id TestID, err error) {
	r.events = append(r.events, fmt.Sprintf("error %s: %s", id, err))
}

func (r *recordingTestLogger) TestFinished(id TestID, result TestResult, debugOutput framework.CapturedOutput) {
	r.events = append(r.events, fmt.Sprintf("finished %s %s (%d debug)", id, result.Outcome, len(debugOutput)))
}

func (r *recordingTestLogger) TestSkipped(id TestID, reason string) {
	r.events = append(r.events, fmt.Sprintf("skipped %s: %s", id, reason))
}

func (r *recordingTestLogger) EndLog(Results) error { return nil }

func TestTestLoggerEventsAreInRegistrationOrder(t *testing.T) {
	logger := &recordingTestLogger{}
	filter := FilterFunc(func(id TestID) bool { return id[0] != "skipped" })
	_ = Run(TestConfiguration{TestLogger: logger, Filter: filter}, registryOf(
		TestCase{"ok", func(rt *T) { rt.Debug("hello %s", "there") }},
		TestCase{"skipped", func(rt *T) {}},
		TestCase{"bad", func(rt *T) { rt.Errorf("nope") }},
	))
	assert.Equal(t, []string{
		"started ok",
		"finished ok passed (1 debug)",
		"started skipped",
		"skipped skipped: excluded by filter parameters",
		"started bad",
		"error bad: nope",
		"finished bad failed (0 debug)",
	}, logger.events)
}
