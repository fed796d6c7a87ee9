package harness

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"apollo.io/contract-tests/framework"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForServiceThatIsUp(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	var output bytes.Buffer
	err := WaitForService(context.Background(), server.URL, time.Second, &output)
	require.NoError(t, err)
	assert.Equal(t, "Connecting to service at "+server.URL+". HTTP 404\n", output.String())
}

func TestWaitForServiceThatStartsLate(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	server := &http.Server{Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	go func() {
		time.Sleep(300 * time.Millisecond)
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return
		}
		_ = server.Serve(l)
	}()
	defer server.Close()

	var output bytes.Buffer
	err = WaitForService(context.Background(), "http://"+addr, 5*time.Second, &output)
	require.NoError(t, err)
	progress := strings.TrimPrefix(output.String(), "Connecting to service at http://"+addr)
	assert.Greater(t, strings.Count(progress, "."), 1)
}

func TestWaitForServiceTimesOut(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	var output bytes.Buffer
	err := WaitForService(context.Background(), url, 300*time.Millisecond, &output)
	require.Error(t, err)
	assert.True(t, framework.IsInfrastructure(err))
	assert.Contains(t, err.Error(), "timed out after 300ms")
}
