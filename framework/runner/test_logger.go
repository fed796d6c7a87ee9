package runner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"apollo.io/contract-tests/framework"

	"github.com/fatih/color"
)

var consoleTestPassedColor = color.New(color.FgGreen)              //nolint:gochecknoglobals
var consoleTestFailedColor = color.New(color.FgRed)                //nolint:gochecknoglobals
var consoleTestErrorColor = color.New(color.FgYellow)              //nolint:gochecknoglobals
var consoleTestSkippedColor = color.New(color.Faint, color.FgBlue) //nolint:gochecknoglobals
var consoleDebugOutputColor = color.New(color.Faint)               //nolint:gochecknoglobals

// TestLogger receives status information about each test as the run progresses, and the final
// Results when the run is over.
type TestLogger interface {
	TestStarted(id TestID)
	TestError(id TestID, err error)
	TestFinished(id TestID, result TestResult, debugOutput framework.CapturedOutput)
	TestSkipped(id TestID, reason string)
	EndLog(results Results) error
}

type nullTestLogger struct{}

func (n nullTestLogger) TestStarted(TestID)                                        {}
func (n nullTestLogger) TestError(TestID, error)                                   {}
func (n nullTestLogger) TestFinished(TestID, TestResult, framework.CapturedOutput) {}
func (n nullTestLogger) TestSkipped(TestID, string)                                {}
func (n nullTestLogger) EndLog(Results) error                                      { return nil }

// MultiTestLogger forwards every call to each of its Loggers in turn.
type MultiTestLogger struct {
	Loggers []TestLogger
}

func (m *MultiTestLogger) TestStarted(id TestID) {
	for _, l := range m.Loggers {
		l.TestStarted(id)
	}
}

func (m *MultiTestLogger) TestError(id TestID, err error) {
	for _, l := range m.Loggers {
		l.TestError(id, err)
	}
}

func (m *MultiTestLogger) TestFinished(id TestID, result TestResult, debugOutput framework.CapturedOutput) {
	for _, l := range m.Loggers {
		l.TestFinished(id, result, debugOutput)
	}
}

func (m *MultiTestLogger) TestSkipped(id TestID, reason string) {
	for _, l := range m.Loggers {
		l.TestSkipped(id, reason)
	}
}

func (m *MultiTestLogger) EndLog(results Results) error {
	var errs []error
	for _, l := range m.Loggers {
		if err := l.EndLog(results); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ConsoleTestLogger prints one PASS or FAIL line per test as soon as the test finishes. A FAIL
// line is followed right away by the failure messages and the stacktrace of the test code.
type ConsoleTestLogger struct {
	// Output defaults to os.Stdout.
	Output               io.Writer
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
}

func (c ConsoleTestLogger) out() io.Writer {
	if c.Output == nil {
		return os.Stdout
	}
	return c.Output
}

func (c ConsoleTestLogger) TestStarted(TestID) {}

// TestError does nothing; errors are printed together with the FAIL line so that they appear
// under the name of the test.
func (c ConsoleTestLogger) TestError(TestID, error) {}

func (c ConsoleTestLogger) TestFinished(id TestID, result TestResult, debugOutput framework.CapturedOutput) {
	w := c.out()
	failed := result.Outcome == Failed
	if failed {
		_, _ = consoleTestFailedColor.Fprintf(w, "  FAIL  %s\n", id)
		for _, err := range result.Errors {
			c.printError(err)
		}
	} else {
		_, _ = consoleTestPassedColor.Fprintf(w, "  PASS  %s\n", id)
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		_, _ = consoleDebugOutputColor.Fprintln(w, debugOutput.ToString("    DEBUG "))
	}
}

func (c ConsoleTestLogger) printError(err error) {
	w := c.out()
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			_, _ = consoleTestErrorColor.Fprintf(w, "    %s\n", line)
		}
	}
	var es ErrorWithStacktrace
	if errors.As(err, &es) && len(es.Stacktrace) != 0 {
		_, _ = consoleTestErrorColor.Fprintln(w, "    Stacktrace:")
		for _, s := range es.Stacktrace {
			_, _ = consoleTestErrorColor.Fprintf(w, "      %s\n", s)
		}
	}
}

func (c ConsoleTestLogger) TestSkipped(id TestID, reason string) {
	if reason == "" {
		_, _ = consoleTestSkippedColor.Fprintf(c.out(), "  SKIP  %s\n", id)
	} else {
		_, _ = consoleTestSkippedColor.Fprintf(c.out(), "  SKIP  %s (%s)\n", id, reason)
	}
}

// EndLog prints the run summary line.
func (c ConsoleTestLogger) EndLog(results Results) error {
	w := c.out()
	summary := results.Summary()
	fmt.Fprintln(w)
	if results.OK() {
		_, _ = consoleTestPassedColor.Fprintln(w, summary)
	} else {
		_, _ = consoleTestFailedColor.Fprintln(w, summary)
	}
	if skipped := len(results.Skipped()); skipped != 0 {
		_, _ = consoleTestSkippedColor.Fprintf(w, "%d skipped\n", skipped)
	}
	return nil
}
