package main

import (
	"bufio"
	"context"
	_ "embed" // this is required in order for go:embed to work
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"

	"apollo.io/contract-tests/config"
	"apollo.io/contract-tests/data"
	"apollo.io/contract-tests/dbprobe"
	"apollo.io/contract-tests/framework"
	"apollo.io/contract-tests/framework/harness"
	"apollo.io/contract-tests/framework/runner"
	"apollo.io/contract-tests/regtests"
	"apollo.io/contract-tests/runlock"
	"apollo.io/contract-tests/serviceclient"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

//go:embed VERSION
var versionString string // comes from the VERSION file which we update for each release

func version() string {
	return strings.TrimSpace(versionString)
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	var params commandParams
	cmd := newRootCommand(&params, func(cmd *cobra.Command) error {
		return run(cmd.Context(), params, stdout)
	})
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err != nil && err != errTestsFailed {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func run(ctx context.Context, params commandParams, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintf(stdout, "registration contract tests v%s\n", version())

	cfg, err := config.Load()
	if err != nil {
		return commandError("invalid configuration", err)
	}
	if params.skipFile != "" {
		if err := loadSuppressions(&params); err != nil {
			return commandError("invalid suppression file", err)
		}
	}
	fixtures, err := data.LoadRegistrations()
	if err != nil {
		return commandError("invalid registration fixtures", err)
	}

	mainDebugLogger := framework.NullLogger()
	if params.debugAll {
		mainDebugLogger = log.New(stdout, "", log.LstdFlags)
	}

	probe, err := dbprobe.NewPostgresProbe(cfg.DatabaseURL)
	if err != nil {
		return commandError("invalid database configuration", err)
	}
	fmt.Fprintf(stdout, "Service:  %s\n", cfg.BaseURL)
	fmt.Fprintf(stdout, "Database: %s\n", probe.DSN())
	mainDebugLogger.Printf("Request timeout: %s", cfg.RequestTimeout)

	if cfg.RunLockRedisAddr != "" {
		release, err := acquireRunLock(ctx, cfg, mainDebugLogger)
		if err != nil {
			return commandError("cannot acquire run lock", err)
		}
		defer release()
	}

	if params.wait > 0 {
		if err := harness.WaitForService(ctx, cfg.BaseURL, params.wait, stdout); err != nil {
			return commandError("service did not become ready", err)
		}
	}
	fmt.Fprintln(stdout)

	testContext := regtests.NewTestContext(
		regtests.ServiceClients(cfg.BaseURL, serviceclient.WithTimeout(cfg.RequestTimeout)),
		regtests.PostgresStores(cfg.DatabaseURL, dbprobe.WithTimeout(cfg.RequestTimeout)),
		fixtures,
	)

	var testLogger runner.TestLogger
	consoleLogger := runner.ConsoleTestLogger{
		Output:               stdout,
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}
	if params.jUnitFile == "" {
		testLogger = consoleLogger
	} else {
		runInfo := runner.RunInfo{RunID: uuid.NewString(), Version: version(), BaseURL: cfg.BaseURL}
		testLogger = &runner.MultiTestLogger{Loggers: []runner.TestLogger{
			consoleLogger,
			runner.NewJUnitTestLogger(params.jUnitFile, runInfo, params.filters),
		}}
	}

	results := regtests.RunRegistrationTestSuite(testContext, params.filters, testLogger, stdout)

	if err := testLogger.EndLog(results); err != nil {
		return &exitError{code: exitTestsFailed, message: "error writing log", err: err}
	}

	if params.recordFailures != "" {
		if err := recordFailures(params.recordFailures, results); err != nil {
			return &exitError{code: exitTestsFailed, message: "cannot write failures file", err: err}
		}
	}

	if !results.OK() {
		return errTestsFailed
	}
	return nil
}

func acquireRunLock(ctx context.Context, cfg config.Config, logger framework.Logger) (func(), error) {
	client := runlock.NewClient(cfg.RunLockRedisAddr)
	lock := runlock.New(client, cfg.RunLockTTL)
	if err := lock.Acquire(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	logger.Printf("Acquired run lock %s with token %s", lock.Key(), lock.Token())
	return func() {
		if err := lock.Release(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to release run lock: %s\n", err)
		}
		_ = client.Close()
	}, nil
}

func loadSuppressions(params *commandParams) error {
	file, err := os.Open(params.skipFile)
	if err != nil {
		return fmt.Errorf("cannot open provided suppression file: %w", err)
	}
	defer func() { _ = file.Close() }()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		// Ignore blank lines
		if strings.TrimSpace(line) == "" {
			continue
		}
		escaped := "^" + regexp.QuoteMeta(strings.TrimSpace(line)) + "$"
		if err := params.filters.MustNotMatch.Set(escaped); err != nil {
			return fmt.Errorf("cannot parse suppression: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("while processing suppression file: %w", err)
	}
	return nil
}

func recordFailures(path string, results runner.Results) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	for _, test := range results.Failures {
		fmt.Fprintln(f, test.TestID)
	}
	return f.Close()
}
