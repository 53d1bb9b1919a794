package worker

import (
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/swapbnb/exchange-coordinator/internal/metrics"
)

func TestPoolRunsAllTasksBeforeStop(t *testing.T) {
	p := NewPool(3, 100)
	var n atomic.Int32
	for i := 0; i < 50; i++ {
		assert.True(t, p.Submit(func() { n.Add(1) }))
	}
	p.Stop()
	assert.Equal(t, int32(50), n.Load())
}

func TestSubmitAfterStop(t *testing.T) {
	p := NewPool(1, 1)
	p.Stop()
	assert.False(t, p.Submit(func() {}))
	p.Stop() // idempotent
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	p := NewPool(1, 10)
	var ran atomic.Bool
	p.Submit(func() { panic("boom") })
	p.Submit(func() { ran.Store(true) })
	p.Stop()
	assert.True(t, ran.Load())
}

func TestSubmitFullQueue(t *testing.T) {
	p := NewPool(1, 1)
	block := make(chan struct{})
	started := make(chan struct{})
	p.Submit(func() { close(started); <-block })
	<-started
	assert.True(t, p.Submit(func() {}))  // fills the queue
	assert.False(t, p.Submit(func() {})) // no room
	close(block)
	p.Stop()
}

func TestQueueDepthTracksAcceptedTasksOnly(t *testing.T) {
	before := testutil.ToFloat64(metrics.WorkerQueueDepth)
	p := NewPool(1, 1)
	block := make(chan struct{})
	started := make(chan struct{})
	p.Submit(func() { close(started); <-block })
	<-started
	assert.Equal(t, before, testutil.ToFloat64(metrics.WorkerQueueDepth))

	assert.True(t, p.Submit(func() {}))
	assert.False(t, p.Submit(func() {}))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.WorkerQueueDepth), "a rejected submit is not counted")

	close(block)
	p.Stop()
	assert.Equal(t, before, testutil.ToFloat64(metrics.WorkerQueueDepth))
}
