package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMustRegister_Idempotent(t *testing.T) {
	assert.NotPanics(t, MustRegister)
	assert.NotPanics(t, MustRegister)
}

func TestGreetingLookups_ByResult(t *testing.T) {
	before := testutil.ToFloat64(GreetingLookups.WithLabelValues(LookupNotFound))

	GreetingLookups.WithLabelValues(LookupNotFound).Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(GreetingLookups.WithLabelValues(LookupNotFound)))
}
