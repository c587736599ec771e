package alertqueue

import (
	"sync"
	"time"

	"github.com/tipcast/tipcast/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Alert is one in-flight donation awaiting display. Entries are
// process-local and lost on restart; the stored transaction row keeps
// re-polling from re-enqueueing the same reference.
type Alert struct {
	StreamerID string `json:"streamer_id"`
	DonorName  string `json:"donor_name"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Message    string `json:"message"`
	Reference  string `json:"reference"`
}

// Dispatcher receives alerts popped off a streamer's queue.
type Dispatcher interface {
	DeliverAlert(alert Alert)
	RefreshTotals(streamerID string)
}

// Queue serializes alert delivery per streamer: strict FIFO, a fixed
// delay between deliveries, exactly one delivery loop per streamer.
// Queues are created on first enqueue and dropped once drained.
type Queue struct {
	mu         sync.Mutex
	streams    map[string]*stream
	delay      time.Duration
	dispatcher Dispatcher
	log        *zap.Logger
}

type stream struct {
	entries []Alert
	// pending holds references queued or in flight; an entry leaves
	// only after its alert has been handed to the dispatcher.
	pending map[string]struct{}
	running bool
}

type Params struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	Dispatcher Dispatcher
}

func New(p Params) *Queue {
	delay := p.Cfg.Alert.Delay
	if delay <= 0 {
		delay = 3 * time.Second
	}
	return &Queue{
		streams:    make(map[string]*stream),
		delay:      delay,
		dispatcher: p.Dispatcher,
		log:        p.Log.Named("alertqueue"),
	}
}

// Enqueue appends alert to its streamer's queue and starts the delivery
// loop if none is running. A reference already queued or in flight for
// that streamer makes the call a silent no-op. Reports whether the
// alert was accepted.
func (q *Queue) Enqueue(alert Alert) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := q.streams[alert.StreamerID]
	if s == nil {
		s = &stream{pending: make(map[string]struct{})}
		q.streams[alert.StreamerID] = s
	}

	if alert.Reference != "" {
		if _, dup := s.pending[alert.Reference]; dup {
			return false
		}
		s.pending[alert.Reference] = struct{}{}
	}
	s.entries = append(s.entries, alert)

	if !s.running {
		s.running = true
		go q.run(alert.StreamerID, s)
	}
	return true
}

// Pending reports how many alerts are queued or in flight for a streamer.
func (q *Queue) Pending(streamerID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.streams[streamerID]
	if s == nil {
		return 0
	}
	return len(s.pending)
}

func (q *Queue) run(streamerID string, s *stream) {
	for {
		q.mu.Lock()
		if len(s.entries) == 0 {
			s.running = false
			if len(s.pending) == 0 {
				delete(q.streams, streamerID)
			}
			q.mu.Unlock()
			return
		}
		alert := s.entries[0]
		s.entries = s.entries[1:]
		q.mu.Unlock()

		q.dispatcher.DeliverAlert(alert)
		q.dispatcher.RefreshTotals(streamerID)

		q.mu.Lock()
		delete(s.pending, alert.Reference)
		q.mu.Unlock()

		time.Sleep(q.delay)
	}
}
