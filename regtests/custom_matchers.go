package regtests

import (
	"fmt"
	"net/http"

	"apollo.io/contract-tests/framework/runner"
	"apollo.io/contract-tests/serviceclient"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
)

// The functions in this file adapt the matchers API to *serviceclient.Response and
// dbprobe.User values.

func StatusCode() m.MatcherTransform {
	return m.Transform(
		"status code",
		func(value interface{}) (interface{}, error) {
			return value.(*serviceclient.Response).StatusCode, nil
		}).
		EnsureInputValueType(&serviceclient.Response{})
}

func ResponseHeader(name string) m.MatcherTransform {
	return m.Transform(
		fmt.Sprintf("response header %q", name),
		func(value interface{}) (interface{}, error) {
			return value.(*serviceclient.Response).Header.Get(name), nil
		}).
		EnsureInputValueType(&serviceclient.Response{})
}

// ResponseJSONProperty takes a top-level property of a JSON response body as an ldvalue.Value.
// It fails if the response is not declared or not parseable as JSON.
func ResponseJSONProperty(name string) m.MatcherTransform {
	return m.Transform(
		fmt.Sprintf("JSON property %q of response body", name),
		func(value interface{}) (interface{}, error) {
			body, err := value.(*serviceclient.Response).JSON()
			if err != nil {
				return nil, err
			}
			if body.Type() != ldvalue.ObjectType {
				return nil, fmt.Errorf("response body is not a JSON object: %s", body.JSONString())
			}
			return body.GetByKey(name), nil
		}).
		EnsureInputValueType(&serviceclient.Response{})
}

func HasStatus(status int) m.Matcher {
	return StatusCode().Should(m.Equal(status))
}

func HasSuccessMessage(message string) m.Matcher {
	return ResponseJSONProperty("success").Should(m.Equal(ldvalue.String(message)))
}

func HasErrorMessage(message string) m.Matcher {
	return ResponseJSONProperty("error").Should(m.Equal(ldvalue.String(message)))
}

func requireCreated(t *runner.T, resp *serviceclient.Response) {
	t.Helper()
	m.In(t).Require(resp, HasStatus(http.StatusCreated))
}
