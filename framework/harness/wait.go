// Package harness contains helpers for managing the service under test from outside the test cases.
package harness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"apollo.io/contract-tests/framework"

	"github.com/sethvargo/go-retry"
)

const waitPollInterval = time.Millisecond * 100

// WaitForService polls the service's base URL until it returns any HTTP response, or until the
// timeout elapses. The status code does not matter; only that something is listening. Progress
// is written to output as a line of dots.
func WaitForService(ctx context.Context, baseURL string, timeout time.Duration, output io.Writer) error {
	if output == nil {
		output = io.Discard
	}
	fmt.Fprintf(output, "Connecting to service at %s", baseURL)

	client := &http.Client{
		Timeout:   waitPollInterval * 10,
		Transport: &http.Transport{DisableKeepAlives: true},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	backoff := retry.WithMaxDuration(timeout, retry.NewConstant(waitPollInterval))
	var lastErr error
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fmt.Fprint(output, ".")
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			return retry.RetryableError(err)
		}
		_ = resp.Body.Close()
		fmt.Fprintf(output, " HTTP %d\n", resp.StatusCode)
		return nil
	})
	if err == nil {
		return nil
	}
	fmt.Fprintln(output)
	if lastErr == nil {
		return framework.Infrastructure("wait for service", err)
	}
	return framework.Infrastructure("wait for service",
		fmt.Errorf("timed out after %s, result of last query was: %w", timeout, lastErr))
}
