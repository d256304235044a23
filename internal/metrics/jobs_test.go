package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveJob(t *testing.T) {
	start := time.Date(2024, 6, 15, 16, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Second)

	ObserveJob("test-job", ResultSent, start, end)
	assert.Equal(t, float64(1), testutil.ToFloat64(jobRunsTotal.WithLabelValues("test-job", ResultSent)))
	assert.Equal(t, float64(end.Unix()), testutil.ToFloat64(jobLastSuccess.WithLabelValues("test-job")))

	ObserveJob("test-job", ResultFailed, start, end.Add(time.Hour))
	assert.Equal(t, float64(1), testutil.ToFloat64(jobRunsTotal.WithLabelValues("test-job", ResultFailed)))
	assert.Equal(t, float64(end.Unix()), testutil.ToFloat64(jobLastSuccess.WithLabelValues("test-job")), "failure keeps the last success")

	ObserveJob("test-job", ResultSkipped, start, end)
	assert.Equal(t, float64(1), testutil.ToFloat64(jobRunsTotal.WithLabelValues("test-job", ResultSkipped)))
}
