package regtests

import (
	"io"

	"apollo.io/contract-tests/framework/runner"
)

// RunRegistrationTestSuite runs every registration test case against the service and database
// described by testContext. If the filter can describe itself, the description is written to
// output first.
func RunRegistrationTestSuite(
	testContext TestContext,
	filter runner.Filter,
	testLogger runner.TestLogger,
	output io.Writer,
) runner.Results {
	if sdf, ok := filter.(interface{ Describe(io.Writer) }); ok && output != nil {
		sdf.Describe(output)
	}

	config := runner.TestConfiguration{
		Filter:     filter,
		TestLogger: testLogger,
		Context:    testContext,
	}
	return runner.Run(config, NewRegistry())
}
