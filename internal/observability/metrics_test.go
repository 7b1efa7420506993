package observability

import (
	"testing"
	"time"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("identd-a", "GET", "/v1/node/id", 200, 12*time.Millisecond)
	RecordIdentityFetch("http://127.0.0.1:7400", true, 24*time.Millisecond)
	RecordIdentityFetch("http://127.0.0.1:7400", false, 8*time.Millisecond)
}
