package testing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// FakeDevice is an httptest server speaking the device's websocket protocol.
//
// Frames written by clients arrive on Received. Connected receives once per accepted connection
// and Closed once per connection whose read loop ended.
type FakeDevice struct {
	Server    *httptest.Server
	Received  chan []byte
	Connected chan struct{}
	Closed    chan struct{}

	mu    sync.Mutex
	conns []*websocket.Conn
}

// NewFakeDevice starts a server with the socket at /ws. The server is closed with the test.
func NewFakeDevice(t *testing.T) *FakeDevice {
	t.Helper()

	d := &FakeDevice{
		Received:  make(chan []byte, 64),
		Connected: make(chan struct{}, 8),
		Closed:    make(chan struct{}, 8),
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		d.mu.Lock()
		d.conns = append(d.conns, conn)
		d.mu.Unlock()
		d.Connected <- struct{}{}

		defer func() { d.Closed <- struct{}{} }()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			d.Received <- data
		}
	})

	d.Server = httptest.NewServer(mux)
	t.Cleanup(d.Close)
	return d
}

// URL returns the ws:// address of the socket.
func (d *FakeDevice) URL() string {
	return "ws" + strings.TrimPrefix(d.Server.URL, "http") + "/ws"
}

// Send writes frame to the most recent connection.
func (d *FakeDevice) Send(t *testing.T, frame string) {
	t.Helper()

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		t.Fatal("fake device has no connection")
	}
	conn := d.conns[len(d.conns)-1]
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("fake device write failed: %v", err)
	}
}

// Close drops every connection and stops the server.
func (d *FakeDevice) Close() {
	d.mu.Lock()
	for _, c := range d.conns {
		c.Close()
	}
	d.conns = nil
	d.mu.Unlock()
	d.Server.Close()
}

// Wait receives from ch or fails the test after timeout.
func Wait[T any](t *testing.T, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		t.Fatalf("timed out after %v", timeout)
		var zero T
		return zero
	}
}
