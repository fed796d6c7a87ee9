package runner

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"apollo.io/contract-tests/framework"
	o "apollo.io/contract-tests/framework/opt"
)

// RunInfo describes the test run for the properties section of the JUnit report.
type RunInfo struct {
	RunID   string
	Version string
	BaseURL string
}

// JUnitTestLogger accumulates test results and writes them as a JUnit XML document in EndLog.
type JUnitTestLogger struct {
	filePath string
	runInfo  RunInfo
	filters  RegexFilters
	output   io.Writer
	testIDs  []TestID // this slice preserves the order that the tests were run in
	tests    map[string]jUnitTestStatus
	lock     sync.Mutex
}

type jUnitTestStatus struct {
	failures  []error
	skipped   o.Maybe[string]
	output    string
	startTime time.Time
	duration  time.Duration
}

// Struct definitions for the JUnit XML schema - see https://github.com/jstemmer/go-junit-report

type jUnitXMLDocument struct {
	XMLName xml.Name            `xml:"testsuites"`
	Suites  []jUnitXMLTestSuite `xml:"testsuite"`
}

type jUnitXMLTestSuite struct {
	XMLName    xml.Name           `xml:"testsuite"`
	Tests      int                `xml:"tests,attr"`
	Failures   int                `xml:"failures,attr"`
	Skipped    int                `xml:"skipped,attr"`
	Time       string             `xml:"time,attr"`
	Name       string             `xml:"name,attr"`
	Properties []jUnitXMLProperty `xml:"properties>property,omitempty"`
	TestCases  []jUnitXMLTestCase `xml:"testcase"`
}

type jUnitXMLTestCase struct {
	XMLName     xml.Name             `xml:"testcase"`
	Classname   string               `xml:"classname,attr"`
	Name        string               `xml:"name,attr"`
	Time        string               `xml:"time,attr"`
	SkipMessage *jUnitXMLSkipMessage `xml:"skipped,omitempty"`
	Failure     *jUnitXMLFailure     `xml:"failure,omitempty"`
}

type jUnitXMLSkipMessage struct {
	Message string `xml:"message,attr"`
}

type jUnitXMLProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type jUnitXMLFailure struct {
	Message  string `xml:"message,attr"`
	Type     string `xml:"type,attr"`
	Contents string `xml:",chardata"`
}

const jUnitSuiteName = "registration contract tests"

func NewJUnitTestLogger(
	filePath string,
	runInfo RunInfo,
	filters RegexFilters,
) *JUnitTestLogger {
	return &JUnitTestLogger{
		filePath: filePath,
		runInfo:  runInfo,
		filters:  filters,
		output:   os.Stdout,
		tests:    make(map[string]jUnitTestStatus),
	}
}

func (j *JUnitTestLogger) TestStarted(id TestID) {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.testIDs = append(j.testIDs, id)
	j.tests[id.String()] = jUnitTestStatus{
		startTime: time.Now(),
	}
}

func (j *JUnitTestLogger) TestError(id TestID, err error) {
	j.lock.Lock()
	defer j.lock.Unlock()
	status := j.tests[id.String()]
	status.failures = append(status.failures, err)
	j.tests[id.String()] = status
}

func (j *JUnitTestLogger) TestFinished(id TestID, result TestResult, debugOutput framework.CapturedOutput) {
	j.lock.Lock()
	defer j.lock.Unlock()
	status := j.tests[id.String()]
	status.output = debugOutput.ToString("")
	status.duration = result.Duration
	j.tests[id.String()] = status
}

func (j *JUnitTestLogger) TestSkipped(id TestID, reason string) {
	j.lock.Lock()
	defer j.lock.Unlock()
	status := j.tests[id.String()]
	status.skipped = o.Some(reason)
	j.tests[id.String()] = status
}

func (j *JUnitTestLogger) EndLog(results Results) error {
	fmt.Fprintf(j.output, "Writing JUnit data to %s\n", j.filePath)

	data, err := j.render()
	if err != nil {
		return err
	}
	return os.WriteFile(j.filePath, data, 0644) //nolint:gosec
}

func (j *JUnitTestLogger) render() ([]byte, error) {
	j.lock.Lock()
	defer j.lock.Unlock()

	suite := jUnitXMLTestSuite{
		Name: jUnitSuiteName,
		Properties: []jUnitXMLProperty{
			{Name: "tests.run.id", Value: j.runInfo.RunID},
			{Name: "tests.version", Value: j.runInfo.Version},
			{Name: "tests.service.baseURL", Value: j.runInfo.BaseURL},
			{Name: "tests.filter.mustMatch", Value: j.filters.MustMatch.String()},
			{Name: "tests.filter.mustNotMatch", Value: j.filters.MustNotMatch.String()},
		},
	}
	suiteTotalDuration := time.Duration(0)
	for _, testID := range j.testIDs {
		status := j.tests[testID.String()]

		suite.Tests++
		suiteTotalDuration += status.duration

		testCase := jUnitXMLTestCase{
			Classname: jUnitSuiteName,
			Name:      testID.String(),
			Time:      jUnitDurationString(status.duration),
		}
		if status.skipped.IsDefined() {
			suite.Skipped++
			testCase.SkipMessage = &jUnitXMLSkipMessage{Message: status.skipped.Value()}
		}
		if len(status.failures) != 0 {
			suite.Failures++
			testCase.Failure = &jUnitXMLFailure{
				Message:  jUnitFailureMessage(status.failures),
				Type:     jUnitFailureType(status.failures),
				Contents: status.output,
			}
		}
		suite.TestCases = append(suite.TestCases, testCase)
	}
	suite.Time = jUnitDurationString(suiteTotalDuration)

	doc := jUnitXMLDocument{Suites: []jUnitXMLTestSuite{suite}}
	bytes, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(bytes, '\n'), nil
}

func jUnitFailureMessage(failures []error) string {
	messages := make([]string, 0, len(failures))
	for _, e := range failures {
		message := e.Error()
		if es, ok := e.(ErrorWithStacktrace); ok && len(es.Stacktrace) != 0 {
			message += "\n  Stacktrace:"
			for _, s := range es.Stacktrace {
				message += "\n    " + s.String()
			}
		}
		messages = append(messages, message)
	}
	return strings.Join(messages, "\n")
}

func jUnitFailureType(failures []error) string {
	return TestResult{Errors: failures}.FailureKind().String()
}

func jUnitDurationString(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
