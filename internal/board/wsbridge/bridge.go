// Package wsbridge carries the board line protocol over WebSocket.
// Every text or binary frame from client is one protocol line,
// every server message is sent as one text frame including its end-of-message marker.
package wsbridge

import (
	"bytes"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wtask/board/internal/board"
)

// Server - runs board session over single connection.
type Server interface {
	ServeConn(conn board.Conn)
}

// Handler - upgrades request to WebSocket and serves board session over it.
// Origin is not checked, the board has no authentication to protect.
func Handler(s Server, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// upgrader has replied with error already
			logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}
		s.ServeConn(&conn{ws: ws})
	})
}

// conn - adapts websocket connection to board.Conn.
// Read and Write may be called concurrently, but each of them from single goroutine only.
type conn struct {
	ws  *websocket.Conn
	buf []byte
}

func (c *conn) Read(p []byte) (int, error) {
	for len(c.buf) == 0 {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, err
		}
		if !bytes.HasSuffix(data, []byte{'\n'}) {
			data = append(data, '\n')
		}
		c.buf = data
	}
	n := copy(p, c.buf)
	c.buf = c.buf[n:]
	return n, nil
}

func (c *conn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *conn) Close() error {
	c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.ws.Close()
}

func (c *conn) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}
