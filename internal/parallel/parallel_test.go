package parallel_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/graphgrad/internal/parallel"
)

func TestFor_VisitsEveryIndexOnce(t *testing.T) {
	configs := map[string]parallel.Config{
		"sequential": parallel.Sequential(),
		"parallel":   {Enabled: true, NumWorkers: 4, MinChunkSize: 1},
		"default":    parallel.DefaultConfig(),
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			const n = 257
			var hits [n]int32
			var total atomic.Int32

			parallel.For(n, func(i int) {
				atomic.AddInt32(&hits[i], 1)
				total.Add(1)
			}, cfg)

			assert.Equal(t, int32(n), total.Load())
			for i, h := range hits {
				assert.Equalf(t, int32(1), h, "index %d", i)
			}
		})
	}
}

func TestFor_ZeroItems(t *testing.T) {
	called := false
	parallel.For(0, func(int) { called = true }, parallel.DefaultConfig())
	assert.False(t, called)
}
