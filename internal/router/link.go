package router

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 64
)

// link is one websocket connection with its pumps.
type link struct {
	conn   *websocket.Conn
	logger *log.Logger
	send   chan []byte
	done   chan struct{}
	once   sync.Once

	draining  chan struct{}
	drainOnce sync.Once
}

func newLink(conn *websocket.Conn, logger *log.Logger) *link {
	return &link{
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),

		draining: make(chan struct{}),
	}
}

// enqueue queues data without blocking. It returns false when the queue is full or the link is closed.
func (l *link) enqueue(data []byte) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.send <- data:
		return true
	default:
		return false
	}
}

// close stops both pumps and closes the connection. Safe to call more than once.
func (l *link) close() {
	l.once.Do(func() {
		close(l.done)
		l.conn.Close()
	})
}

// shutdown asks the write pump to flush queued frames, send a close frame and stop.
func (l *link) shutdown() {
	l.drainOnce.Do(func() { close(l.draining) })
}

// closed reports whether close has run.
func (l *link) closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// readPump forwards frames to out until the connection fails or the link closes, then calls onExit.
func (l *link) readPump(out chan<- []byte, onExit func()) {
	defer onExit()

	l.conn.SetReadLimit(maxMessageSize)
	l.conn.SetReadDeadline(time.Now().Add(pongWait))
	l.conn.SetPongHandler(func(string) error {
		return l.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			if !l.closed() && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		l.conn.SetReadDeadline(time.Now().Add(pongWait))

		select {
		case out <- data:
		case <-l.done:
			return
		}
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (l *link) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		l.close()
	}()

	for {
		select {
		case data := <-l.send:
			l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				l.logger.Warn("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-l.draining:
			l.flush()
			return

		case <-l.done:
			return
		}
	}
}

// flush writes whatever is still queued followed by a normal close frame.
func (l *link) flush() {
	for {
		select {
		case data := <-l.send:
			l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				l.logger.Warn("websocket write failed during shutdown", "error", err)
				return
			}
		default:
			l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := l.conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
				l.logger.Debug("failed to send close frame", "error", err)
			}
			return
		}
	}
}
