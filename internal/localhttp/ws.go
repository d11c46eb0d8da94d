package localhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MJE43/playdeck/internal/app"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxFrameBytes  = 4096
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     localOrigin,
}

// localOrigin accepts tools without an Origin header, loopback pages and the
// desktop shell's own scheme.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme == "wails" {
		return true
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1", "wails.localhost":
		return true
	}
	return false
}

// Frame is what the server writes to a socket.
type Frame struct {
	Type  string        `json:"type"`
	State *app.Snapshot `json:"state,omitempty"`
	Error *apiError     `json:"error,omitempty"`
}

// wsClient pumps snapshots out and intent envelopes in.
type wsClient struct {
	s    *Server
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// GET /ws
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := &wsClient{
		s:    s,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}

	initial := s.deps.Runtime.Snapshot()
	c.enqueue(Frame{Type: "snapshot", State: &initial})
	unsubscribe := s.deps.Runtime.Subscribe(func(snap app.Snapshot) {
		c.enqueue(Frame{Type: "snapshot", State: &snap})
	})

	s.log.Debug("websocket connected", "remote", r.RemoteAddr)
	go c.writePump()
	c.readPump()
	unsubscribe()
	s.log.Debug("websocket disconnected", "remote", r.RemoteAddr)
}

// enqueue never blocks: it runs on the runtime goroutine. A client that
// falls a full buffer behind is disconnected.
func (c *wsClient) enqueue(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		c.s.log.Error("encode frame failed", "error", err)
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.s.log.Warn("websocket client too slow, disconnecting")
		c.close()
	}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *wsClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.s.log.Debug("websocket read failed", "error", err)
			}
			return
		}
		c.handleFrame(msg)
	}
}

func (c *wsClient) handleFrame(msg []byte) {
	if strings.TrimSpace(string(msg)) == `{"type":"ping"}` {
		c.enqueue(Frame{Type: "pong"})
		return
	}
	in, err := app.DecodeExternalIntent(msg)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		_, err = c.s.deps.Runtime.Send(ctx, in)
		cancel()
	}
	if err != nil {
		_, code, field := errorStatus(err)
		c.enqueue(Frame{Type: "error", Error: &apiError{Code: code, Message: err.Error(), Field: field}})
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
