package browserhost

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/zsiec/webpanel/internal/logger"
	"github.com/zsiec/webpanel/internal/metrics"
)

const (
	sendBuffer     = 32
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

// inbound is sent from a browser frame to the host.
type inbound struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Visible bool            `json:"visible,omitempty"`
}

// socket is one browser frame connected to a webview.
type socket struct {
	conn      *websocket.Conn
	kind      string
	send      chan outbound
	done      chan struct{}
	closeOnce sync.Once
	limiter   *rate.Limiter
	logger    logger.Logger
}

func newSocket(conn *websocket.Conn, kind string, limiter *rate.Limiter, log logger.Logger) *socket {
	conn.SetReadLimit(maxMessageSize)
	return &socket{
		conn:    conn,
		kind:    kind,
		send:    make(chan outbound, sendBuffer),
		done:    make(chan struct{}),
		limiter: limiter,
		logger:  log,
	}
}

// enqueue never blocks the event loop. A frame too slow to drain its
// buffer loses the message.
func (s *socket) enqueue(msg outbound) {
	select {
	case <-s.done:
	case s.send <- msg:
	default:
		metrics.IncrementDroppedMessage(s.kind)
		s.logger.WithField("type", msg.Type).Warn("Outbound webview message dropped")
	}
}

func (s *socket) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// writePump owns all writes to the connection.
func (s *socket) writePump() {
	defer s.conn.Close()
	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.WithError(err).Debug("Webview socket write failed")
				s.close()
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// readPump decodes frames until the connection fails or is closed and
// hands each one to deliver. Messages over the rate limit are dropped.
func (s *socket) readPump(deliver func(inbound)) {
	defer s.close()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.WithError(err).Debug("Webview socket closed unexpectedly")
			}
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.WithError(err).Debug("Ignoring malformed webview frame")
			continue
		}
		if !s.limiter.Allow() {
			metrics.IncrementDroppedMessage(s.kind)
			s.logger.WithField("type", msg.Type).Warn("Inbound webview message over rate limit")
			continue
		}
		deliver(msg)
	}
}
