package prom

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagingMetrics(t *testing.T) {
	// Helpers are silent no-ops until Create registers the collectors, so a
	// process that increments counters without calling Create exports nothing.
	IncMessageSend("accepted")
	assert.False(t, MetricSystemEnabled)

	require.NoError(t, Create("test-host", "test", "buildflow"))
	assert.True(t, MetricSystemEnabled)

	IncMessageSend("accepted")
	IncMessageSend("accepted")
	IncMessageSend("refused")
	IncConsentDecision("granted")
	IncCallback("status", "applied")
	AddDeliveryDuration(1.5, "delivered")

	sends := MetricCollectionCounterVec[SystemMessages+MetricMessageSendTotal]
	require.NotNil(t, sends)
	assert.Equal(t, 2.0, testutil.ToFloat64(sends.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sends.WithLabelValues("refused")))

	consents := MetricCollectionCounterVec[SystemMessages+MetricConsentDecisionsTotal]
	require.NotNil(t, consents)
	assert.Equal(t, 1.0, testutil.ToFloat64(consents.WithLabelValues("granted")))

	callbacks := MetricCollectionCounterVec[SystemCallbacks+MetricCallbackTotal]
	require.NotNil(t, callbacks)
	assert.Equal(t, 1.0, testutil.ToFloat64(callbacks.WithLabelValues("status", "applied")))
}
