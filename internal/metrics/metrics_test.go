package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveMerge(t *testing.T) {
	before := testutil.ToFloat64(MergeItems.WithLabelValues("added"))
	ObserveMerge(2, 1, 0)
	after := testutil.ToFloat64(MergeItems.WithLabelValues("added"))
	if after-before != 2 {
		t.Errorf("added counter grew by %v, want 2", after-before)
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	Ingests.WithLabelValues(IngestOK).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "popis_ingest_total") {
		t.Error("expected popis_ingest_total in exposition")
	}
}
