package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldCounters(t *testing.T) {
	m := NewFold(prometheus.NewRegistry())

	m.Applied("Swap", time.Millisecond)
	m.Applied("Swap", time.Millisecond)
	m.Dropped("Mint", "missing_prerequisite")
	m.Skipped("Burn")
	m.Cursor("1", 42)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsApplied.WithLabelValues("Swap")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped.WithLabelValues("Mint", "missing_prerequisite")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsSkipped.WithLabelValues("Burn")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.CursorBlock.WithLabelValues("1")))
}

func TestNilFoldIsNoop(t *testing.T) {
	var m *Fold
	m.Applied("Swap", time.Second)
	m.Dropped("Swap", "x")
	m.Skipped("Swap")
	m.Cursor("1", 1)
}

func TestHandlerServesRegistry(t *testing.T) {
	m := NewFold(prometheus.NewRegistry())
	m.Applied("Mint", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "poolscope_fold_events_total"))
}
