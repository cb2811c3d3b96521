package interceptors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

func recordingServer(t *testing.T) (*httptest.Server, *http.Header) {
	t.Helper()
	var seen http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestRoundTripperOutsideActivity(t *testing.T) {
	srv, seen := recordingServer(t)
	c := &http.Client{Transport: NewActivityRoundTripper(nil)}

	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, seen.Get(HeaderWorkflowID))
	assert.Empty(t, seen.Get(HeaderActivityType))
}

func TestRoundTripperInsideActivity(t *testing.T) {
	srv, seen := recordingServer(t)
	c := &http.Client{Transport: NewActivityRoundTripper(http.DefaultTransport)}

	fetch := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		if err != nil {
			return err
		}
		resp, err := c.Do(req)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	}

	s := &testsuite.WorkflowTestSuite{}
	env := s.NewTestActivityEnvironment()
	env.RegisterActivity(fetch)
	_, err := env.ExecuteActivity(fetch)
	require.NoError(t, err)

	assert.NotEmpty(t, seen.Get(HeaderWorkflowID))
	assert.NotEmpty(t, seen.Get(HeaderRunID))
	assert.NotEmpty(t, seen.Get(HeaderActivityType))
}
