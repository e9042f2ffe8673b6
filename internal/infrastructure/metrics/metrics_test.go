package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/janhq/reno-server/internal/domain/intent"
)

func TestCollectorsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.TurnCompleted("chat", "ok")
	c.TurnCompleted("chat", "ok")
	c.TurnCompleted("action", "unknown_action")
	c.StageDegraded("context")
	c.IntentClassified(intent.CostEstimate, "")
	c.AgentOutcome("cost", "success")
	c.SummaryCreated()
	c.ObserveStage("generate", 150*time.Millisecond)
	c.RecordRequest("POST", "/v1/chat/message", 200, time.Second)
	c.StreamOpened()
	c.StreamOpened()
	c.StreamClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.TurnsTotal.WithLabelValues("chat", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.TurnsTotal.WithLabelValues("action", "unknown_action")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DegradedTotal.WithLabelValues("context")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.IntentsTotal.WithLabelValues(string(intent.CostEstimate), "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SummariesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ActiveStreams))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RequestsTotal.WithLabelValues("POST", "/v1/chat/message", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.StageDuration))
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) }, "duplicate registration")
}
