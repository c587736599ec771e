package realtime

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 4 << 10
	sendBuffer     = 64
)

// Session is one connected widget socket. Outbound traffic goes through
// the buffered send channel so hub broadcasts never block on a slow
// client; a client that cannot drain its buffer is dropped.
type Session struct {
	ID         string
	StreamerID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	log  *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func NewSession(hub *Hub, streamerID string, conn *websocket.Conn, log *zap.Logger) *Session {
	return &Session{
		ID:         uuid.NewString(),
		StreamerID: streamerID,
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		log:        log.Named("realtime.session"),
		done:       make(chan struct{}),
	}
}

// Send queues a payload for the client. Drops the session when its
// buffer is full.
func (s *Session) Send(payload []byte) {
	select {
	case <-s.done:
	case s.send <- payload:
	default:
		s.log.Warn("dropping slow widget session",
			zap.String("session_id", s.ID),
			zap.String("streamer_id", s.StreamerID),
		)
		s.Close()
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.hub.Unregister(s)
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}

// Run pumps the socket until either side disconnects.
func (s *Session) Run() {
	go s.writePump()
	s.readPump()
}

type clientMessage struct {
	Event string `json:"event"`
}

func (s *Session) readPump() {
	defer s.Close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("widget read error", zap.String("session_id", s.ID), zap.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch strings.TrimSpace(msg.Event) {
		case "ping":
			s.Send(marshalEvent(EventPong, nil))
		case "joinBankTotalRoom":
			// Sessions may only follow their own streamer's totals.
			s.hub.JoinBankTotalRoom(s)
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case <-s.done:
			return
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
