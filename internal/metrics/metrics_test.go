package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "/api/v1/projects", "200"))

	ObserveRequest("GET", "/api/v1/projects", 200, 42*time.Millisecond)

	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "/api/v1/projects", "200"))
	assert.Equal(t, before+1, after)
}

func TestPipelineExecutionCounter(t *testing.T) {
	before := testutil.ToFloat64(PipelineExecutions.WithLabelValues("success"))

	PipelineExecutions.WithLabelValues("success").Inc()

	after := testutil.ToFloat64(PipelineExecutions.WithLabelValues("success"))
	assert.Equal(t, before+1, after)
}
