// Package interceptors tags outbound tool traffic with the Temporal execution
// it belongs to.
package interceptors

import (
	"context"
	"net/http"

	"go.temporal.io/sdk/activity"
)

// Headers set on requests made from inside an activity.
const (
	HeaderWorkflowID   = "X-Workflow-ID"
	HeaderRunID        = "X-Run-ID"
	HeaderActivityType = "X-Activity-Type"
)

// ActivityRoundTripper adds execution headers to requests issued from an
// activity context and passes other requests through untouched.
type ActivityRoundTripper struct {
	base http.RoundTripper
}

func NewActivityRoundTripper(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &ActivityRoundTripper{base: base}
}

func (a *ActivityRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if info, ok := activityInfo(req.Context()); ok && info.WorkflowExecution.ID != "" {
		req = req.Clone(req.Context())
		req.Header.Set(HeaderWorkflowID, info.WorkflowExecution.ID)
		req.Header.Set(HeaderRunID, info.WorkflowExecution.RunID)
		req.Header.Set(HeaderActivityType, info.ActivityType.Name)
	}
	return a.base.RoundTrip(req)
}

// activityInfo reports the activity info of ctx. activity.GetInfo panics
// outside an activity.
func activityInfo(ctx context.Context) (info activity.Info, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return activity.GetInfo(ctx), true
}
