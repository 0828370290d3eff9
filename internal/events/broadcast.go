package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var wsLog zerolog.Logger = log.With().Str("module", "broadcast").Logger()

// CoordinateMessage is pushed to map clients for every accepted coordinate.
// Lat/Lon are present only when a calibration transform is active.
type CoordinateMessage struct {
	Type string   `json:"type"`
	X    int64    `json:"x"`
	Y    int64    `json:"y"`
	Z    int64    `json:"z"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
}

// StateMessage is pushed to map clients on recognition state transitions.
type StateMessage struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

// JumpMessage asks map clients to recenter on a location.
type JumpMessage struct {
	Type string  `json:"type"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// ClientCountMessage tells map clients how many peers are connected.
type ClientCountMessage struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// relayTypes are client-originated control messages that get forwarded to
// every connected map client.
var relayTypes = map[string]bool{
	"stateUpdate": true,
	"mapChange":   true,
	"panBy":       true,
	"zoomIn":      true,
	"zoomOut":     true,
	"jumpTo":      true,
}

// wsClient pairs a connection with its write lock. Pushes, relays and
// count updates can write at the same time, and gorilla connections allow
// only one concurrent writer.
type wsClient struct {
	conn *websocket.Conn

	mu sync.Mutex
}

func (c *wsClient) writeJSON(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(msg)
}

// Broadcaster fans messages out to all connected WebSocket map clients.
type Broadcaster struct {
	addr     string
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]*wsClient
	server  *http.Server
}

// NewBroadcaster creates a broadcaster listening on addr (for example
// "127.0.0.1:8765").
func NewBroadcaster(addr string) *Broadcaster {
	return &Broadcaster{
		addr: addr,
		upgrader: websocket.Upgrader{
			// Map clients are local pages; cross-origin is expected.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: map[*websocket.Conn]*wsClient{},
	}
}

// Start begins accepting WebSocket connections on /ws. It returns once the
// listener is running; serve errors other than a clean shutdown are logged.
func (b *Broadcaster) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWS)

	b.mu.Lock()
	b.server = &http.Server{Addr: b.addr, Handler: mux}
	server := b.server
	b.mu.Unlock()

	go func() {
		wsLog.Info().Str("addr", b.addr).Msg("broadcast server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			wsLog.Error().Err(err).Msg("broadcast server stopped")
		}
	}()
}

func (b *Broadcaster) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsLog.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	b.mu.Lock()
	b.clients[conn] = &wsClient{conn: conn}
	count := len(b.clients)
	b.mu.Unlock()
	wsLog.Info().Str("remote", conn.RemoteAddr().String()).Int("clients", count).Msg("map client connected")
	b.Broadcast(ClientCountMessage{Type: "clientCountUpdate", Count: count})

	// Map clients may send control messages meant for their peers; known
	// types get relayed, everything else is dropped.
	go func() {
		defer b.removeClient(conn)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var envelope struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(data, &envelope) != nil || !relayTypes[envelope.Type] {
				continue
			}
			b.Broadcast(json.RawMessage(data))
		}
	}()
}

func (b *Broadcaster) removeClient(conn *websocket.Conn) {
	b.mu.Lock()
	_, present := b.clients[conn]
	delete(b.clients, conn)
	count := len(b.clients)
	b.mu.Unlock()
	conn.Close()
	if present {
		wsLog.Info().Int("clients", count).Msg("map client disconnected")
		b.Broadcast(ClientCountMessage{Type: "clientCountUpdate", Count: count})
	}
}

// Broadcast sends a JSON message to every connected client. Clients whose
// writes fail are dropped.
func (b *Broadcaster) Broadcast(msg any) {
	b.mu.Lock()
	clients := make([]*wsClient, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	for _, c := range clients {
		if err := c.writeJSON(msg); err != nil {
			wsLog.Warn().Err(err).Msg("dropping unresponsive map client")
			b.removeClient(c.conn)
		}
	}
}

// ClientCount returns the number of connected map clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Shutdown stops the server and closes all client connections.
func (b *Broadcaster) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	server := b.server
	conns := make([]*websocket.Conn, 0, len(b.clients))
	for c := range b.clients {
		conns = append(conns, c)
	}
	b.clients = map[*websocket.Conn]*wsClient{}
	b.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
