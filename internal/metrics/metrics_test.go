package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordBuild(t *testing.T) {
	before := testutil.ToFloat64(buildsTotal.WithLabelValues("failure"))
	errsBefore := testutil.ToFloat64(buildDiagnostics.WithLabelValues("error"))

	RecordBuild(false, false, 10*time.Millisecond, 2, 1)

	assert.Equal(t, before+1, testutil.ToFloat64(buildsTotal.WithLabelValues("failure")))
	assert.Equal(t, errsBefore+2, testutil.ToFloat64(buildDiagnostics.WithLabelValues("error")))
}

func TestGauges(t *testing.T) {
	SetDependencyLocators(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(dependencyLocators))

	base := testutil.ToFloat64(wsConnectionsActive)
	AddWSConnections(1)
	AddWSConnections(1)
	AddWSConnections(-1)
	assert.Equal(t, base+1, testutil.ToFloat64(wsConnectionsActive))
}

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(buildCacheLookups.WithLabelValues("hit"))
	RecordCacheLookup(true)
	RecordCacheLookup(false)
	assert.Equal(t, hits+1, testutil.ToFloat64(buildCacheLookups.WithLabelValues("hit")))
}
