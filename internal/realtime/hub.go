package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tipcast/tipcast/internal/alertqueue"
	"github.com/tipcast/tipcast/internal/metrics"
	"github.com/tipcast/tipcast/internal/overlay"
	txdomain "github.com/tipcast/tipcast/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Wire event names. The widget client switches on these.
const (
	EventJoinedStreamerRoom = "joinedStreamerRoom"
	EventDonationAlert      = "donationAlert"
	EventTestAlert          = "testAlert"
	EventBankTotalUpdate    = "bankDonationTotalUpdate"
	EventPong               = "pong"
)

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

func marshalEvent(event string, data any) []byte {
	payload, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return []byte(`{"event":"` + event + `"}`)
	}
	return payload
}

type alertPayload struct {
	DonorName string `json:"donorName"`
	Amount    string `json:"amount"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	IsTest    bool   `json:"isTest,omitempty"`
	// Settings rides along on test alerts only, so widgets can render a
	// preview without the streamer saving first.
	Settings *overlay.EffectiveSettings `json:"settings,omitempty"`
}

// Hub fans events out to connected widget sessions. Sessions live in
// per-streamer rooms; the bank-total room is opt-in and separate so a
// widget showing only alerts never receives totals traffic.
type Hub struct {
	mu         sync.Mutex
	rooms      map[string]map[string]*Session
	totalRooms map[string]map[string]*Session
	log        *zap.Logger
	metrics    *metrics.Metrics
}

type HubParams struct {
	fx.In

	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func NewHub(p HubParams) *Hub {
	return &Hub{
		rooms:      make(map[string]map[string]*Session),
		totalRooms: make(map[string]map[string]*Session),
		log:        p.Log.Named("realtime.hub"),
		metrics:    p.Metrics,
	}
}

func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	room, ok := h.rooms[s.StreamerID]
	if !ok {
		room = make(map[string]*Session)
		h.rooms[s.StreamerID] = room
	}
	room[s.ID] = s
	count := len(room)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ConnectedWidgets.Inc()
	}
	h.log.Info("widget joined",
		zap.String("streamer_id", s.StreamerID),
		zap.String("session_id", s.ID),
		zap.Int("room_size", count),
	)
	s.Send(marshalEvent(EventJoinedStreamerRoom, map[string]string{"streamerId": s.StreamerID}))
}

func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	removed := false
	if room, ok := h.rooms[s.StreamerID]; ok {
		if _, present := room[s.ID]; present {
			delete(room, s.ID)
			removed = true
		}
		if len(room) == 0 {
			delete(h.rooms, s.StreamerID)
		}
	}
	if room, ok := h.totalRooms[s.StreamerID]; ok {
		delete(room, s.ID)
		if len(room) == 0 {
			delete(h.totalRooms, s.StreamerID)
		}
	}
	h.mu.Unlock()

	if removed {
		if h.metrics != nil {
			h.metrics.ConnectedWidgets.Dec()
		}
		h.log.Info("widget left",
			zap.String("streamer_id", s.StreamerID),
			zap.String("session_id", s.ID),
		)
	}
}

// JoinBankTotalRoom subscribes a session to totals updates for its own
// streamer. Sessions cannot join another streamer's totals room.
func (h *Hub) JoinBankTotalRoom(s *Session) {
	h.mu.Lock()
	room, ok := h.totalRooms[s.StreamerID]
	if !ok {
		room = make(map[string]*Session)
		h.totalRooms[s.StreamerID] = room
	}
	room[s.ID] = s
	h.mu.Unlock()
}

// ConnectedCount reports how many sessions sit in a streamer's alert room.
func (h *Hub) ConnectedCount(streamerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[streamerID])
}

// BroadcastAlert pushes a donation alert to every widget in the
// streamer's room.
func (h *Hub) BroadcastAlert(alert alertqueue.Alert) {
	payload := marshalEvent(EventDonationAlert, alertPayload{
		DonorName: alert.DonorName,
		Amount:    fmt.Sprintf("%d %s", alert.Amount, alert.Currency),
		Message:   alert.Message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	h.broadcast(h.roomSessions(alert.StreamerID), payload)
}

// BroadcastTest sends a marked test alert, bypassing the queue. The
// optional settings are the resolved preview settings for this alert.
func (h *Hub) BroadcastTest(alert alertqueue.Alert, settings *overlay.EffectiveSettings) {
	payload := marshalEvent(EventTestAlert, alertPayload{
		DonorName: alert.DonorName,
		Amount:    fmt.Sprintf("%d %s", alert.Amount, alert.Currency),
		Message:   alert.Message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		IsTest:    true,
		Settings:  settings,
	})
	h.broadcast(h.roomSessions(alert.StreamerID), payload)
}

// BroadcastBankTotal implements the totals publisher for the
// transaction service.
func (h *Hub) BroadcastBankTotal(streamerID string, totals *txdomain.DonationTotals) {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.totalRooms[streamerID]))
	for _, s := range h.totalRooms[streamerID] {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	h.broadcast(sessions, marshalEvent(EventBankTotalUpdate, totals))
}

func (h *Hub) roomSessions(streamerID string) []*Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	sessions := make([]*Session, 0, len(h.rooms[streamerID]))
	for _, s := range h.rooms[streamerID] {
		sessions = append(sessions, s)
	}
	return sessions
}

func (h *Hub) broadcast(sessions []*Session, payload []byte) {
	for _, s := range sessions {
		s.Send(payload)
	}
}

var _ txdomain.TotalPublisher = (*Hub)(nil)
