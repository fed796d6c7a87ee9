package main

import (
	"time"

	"apollo.io/contract-tests/framework/runner"

	"github.com/spf13/cobra"
)

type commandParams struct {
	filters        runner.RegexFilters
	skipFile       string
	recordFailures string
	debug          bool
	debugAll       bool
	jUnitFile      string
	wait           time.Duration
}

func newRootCommand(params *commandParams, runFn func(cmd *cobra.Command) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract-tests",
		Short: "Black-box contract tests for the user registration endpoint",
		Long: `Runs the registration contract tests against a running service and its database.

The service and database are configured with environment variables:
  BASE_URL             service base URL (default http://localhost:8080)
  TEST_DATABASE_URL    PostgreSQL connection string
  REQUEST_TIMEOUT      per-request and per-query timeout, 0 for none (default 0s)
  RUN_LOCK_REDIS_ADDR  Redis host:port for the cross-process run lock (default disabled)
  RUN_LOCK_TTL         expiry of the run lock (default 5m)

Exit codes:
  0 - All tests passed
  1 - One or more tests failed
  2 - Configuration or command error; no tests were run`,
		Version:       version(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFn(cmd)
		},
	}

	flags := cmd.Flags()
	flags.Var(&params.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	flags.Var(&params.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	flags.StringVar(&params.skipFile, "skip-from", "", "file with test names to skip, one per line")
	flags.StringVar(&params.recordFailures, "record-failures", "", "write the names of failed tests to this file")
	flags.BoolVar(&params.debug, "debug", false, "enable debug logging for failed tests")
	flags.BoolVar(&params.debugAll, "debug-all", false, "enable debug logging for all tests")
	flags.StringVar(&params.jUnitFile, "junit", "", "write JUnit XML output to the specified path")
	flags.DurationVar(&params.wait, "wait", 0, "wait up to this long for the service to respond before running tests")

	return cmd
}
