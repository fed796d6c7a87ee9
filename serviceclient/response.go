package serviceclient

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// ContentTypeJSON is the media type of JSON request and response bodies.
const ContentTypeJSON = "application/json"

// ErrNotJSON is returned by Response.JSON when the response does not declare a JSON content type.
var ErrNotJSON = errors.New("response content type is not JSON")

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	jsonOnce  sync.Once
	jsonValue ldvalue.Value
	jsonErr   error
}

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// IsJSON returns true if the content type is application/json or a +json type.
func (r *Response) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.ContentType())
	if err != nil {
		return false
	}
	return mediaType == ContentTypeJSON || strings.HasSuffix(mediaType, "+json")
}

// JSON returns the parsed body. It is parsed at most once. If the content type is not JSON,
// it returns ErrNotJSON without looking at the body.
func (r *Response) JSON() (ldvalue.Value, error) {
	r.jsonOnce.Do(func() {
		if !r.IsJSON() {
			r.jsonErr = fmt.Errorf("%w (got %q)", ErrNotJSON, r.ContentType())
			return
		}
		value := ldvalue.Parse(r.Body)
		if value.IsNull() && strings.TrimSpace(string(r.Body)) != "null" {
			r.jsonErr = fmt.Errorf("response body is not valid JSON: %q", string(r.Body))
			return
		}
		r.jsonValue = value
	})
	return r.jsonValue, r.jsonErr
}
