package observability

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/trace"
)

func TestGetGlobalTracerConcurrentFirstUse(t *testing.T) {
	tracers := make([]trace.Tracer, 16)
	var wg sync.WaitGroup
	for i := range tracers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tracers[i] = GetGlobalTracer()
		}(i)
	}
	wg.Wait()

	require.NotNil(t, tracers[0])
	for _, tracer := range tracers[1:] {
		assert.Equal(t, tracers[0], tracer)
	}
}
