package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordQuotaDecision(t *testing.T) {
	before := testutil.ToFloat64(QuotaDecisionsTotal.WithLabelValues("free", "search", "rejected"))
	RecordQuotaDecision("free", "search", false, nil)
	after := testutil.ToFloat64(QuotaDecisionsTotal.WithLabelValues("free", "search", "rejected"))
	assert.Equal(t, before+1, after)

	beforeErr := testutil.ToFloat64(QuotaDecisionsTotal.WithLabelValues("free", "search", "error"))
	RecordQuotaDecision("free", "search", false, errors.New("down"))
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(QuotaDecisionsTotal.WithLabelValues("free", "search", "error")))
}

func TestRecordUpstreamCall_CircuitOpenSkipsDuration(t *testing.T) {
	before := testutil.CollectAndCount(UpstreamRequestDuration)
	RecordUpstreamCall("metrics-test-upstream", "circuit_open", time.Second)
	assert.Equal(t, before, testutil.CollectAndCount(UpstreamRequestDuration))

	RecordUpstreamCall("metrics-test-upstream", "success", time.Second)
	assert.Equal(t, before+1, testutil.CollectAndCount(UpstreamRequestDuration))
}

func TestSetQueueDepth(t *testing.T) {
	SetQueueDepth("beacon", 2, 17)
	assert.Equal(t, 17.0, testutil.ToFloat64(QueueDepth.WithLabelValues("beacon", "2")))
}

func TestRecordAcknowledge(t *testing.T) {
	before := testutil.ToFloat64(TasksAcknowledgedTotal.WithLabelValues("missing"))
	RecordAcknowledge(false)
	assert.Equal(t, before+1, testutil.ToFloat64(TasksAcknowledgedTotal.WithLabelValues("missing")))
}
