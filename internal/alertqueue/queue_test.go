package alertqueue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tipcast/tipcast/internal/config"
	"go.uber.org/zap"
)

type recordingDispatcher struct {
	mu         sync.Mutex
	delivered  []Alert
	timestamps []time.Time
	done       chan struct{}
	expect     int
}

func newRecordingDispatcher(expect int) *recordingDispatcher {
	return &recordingDispatcher{done: make(chan struct{}), expect: expect}
}

func (d *recordingDispatcher) DeliverAlert(alert Alert) {
	d.mu.Lock()
	d.delivered = append(d.delivered, alert)
	d.timestamps = append(d.timestamps, time.Now())
	if len(d.delivered) == d.expect {
		close(d.done)
	}
	d.mu.Unlock()
}

func (d *recordingDispatcher) RefreshTotals(string) {}

func (d *recordingDispatcher) wait(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-d.done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for deliveries")
	}
}

func newTestQueue(dispatcher Dispatcher, delay time.Duration) *Queue {
	cfg := config.Config{}
	cfg.Alert.Delay = delay
	return New(Params{Cfg: cfg, Log: zap.NewNop(), Dispatcher: dispatcher})
}

func TestFIFOOrderingAndSpacing(t *testing.T) {
	dispatcher := newRecordingDispatcher(3)
	queue := newTestQueue(dispatcher, 30*time.Millisecond)

	for _, ref := range []string{"A", "B", "C"} {
		queue.Enqueue(Alert{StreamerID: "s1", Reference: ref, DonorName: "Anonymous", Amount: 1000, Currency: "VND"})
	}
	dispatcher.wait(t, 2*time.Second)

	require.Len(t, dispatcher.delivered, 3)
	assert.Equal(t, "A", dispatcher.delivered[0].Reference)
	assert.Equal(t, "B", dispatcher.delivered[1].Reference)
	assert.Equal(t, "C", dispatcher.delivered[2].Reference)

	for i := 1; i < len(dispatcher.timestamps); i++ {
		gap := dispatcher.timestamps[i].Sub(dispatcher.timestamps[i-1])
		assert.GreaterOrEqual(t, gap, 25*time.Millisecond, "deliveries %d and %d too close", i-1, i)
	}
}

func TestDuplicateReferenceSuppressed(t *testing.T) {
	dispatcher := newRecordingDispatcher(1)
	queue := newTestQueue(dispatcher, 50*time.Millisecond)

	assert.True(t, queue.Enqueue(Alert{StreamerID: "s1", Reference: "R1", Amount: 500}))
	assert.False(t, queue.Enqueue(Alert{StreamerID: "s1", Reference: "R1", Amount: 500}))

	dispatcher.wait(t, time.Second)
	time.Sleep(100 * time.Millisecond)

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	assert.Len(t, dispatcher.delivered, 1)
}

func TestQueueDroppedWhenDrained(t *testing.T) {
	dispatcher := newRecordingDispatcher(1)
	queue := newTestQueue(dispatcher, time.Millisecond)

	queue.Enqueue(Alert{StreamerID: "s1", Reference: "R1"})
	dispatcher.wait(t, time.Second)

	assert.Eventually(t, func() bool {
		queue.mu.Lock()
		defer queue.mu.Unlock()
		_, exists := queue.streams["s1"]
		return !exists
	}, time.Second, 10*time.Millisecond)

	// a later enqueue recreates the stream and restarts delivery
	dispatcher2 := newRecordingDispatcher(1)
	queue.dispatcher = dispatcher2
	queue.Enqueue(Alert{StreamerID: "s1", Reference: "R2"})
	dispatcher2.wait(t, time.Second)
}

func TestStreamersIndependent(t *testing.T) {
	dispatcher := newRecordingDispatcher(2)
	queue := newTestQueue(dispatcher, 200*time.Millisecond)

	queue.Enqueue(Alert{StreamerID: "s1", Reference: "R1"})
	queue.Enqueue(Alert{StreamerID: "s2", Reference: "R1"})

	// both first deliveries happen without waiting on each other's delay
	dispatcher.wait(t, time.Second)
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	assert.Len(t, dispatcher.delivered, 2)
}
