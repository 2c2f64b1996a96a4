// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voicefx/internal/preset"
)

const writeWait = 2 * time.Second

// Message is a control command sent by a client. Type selects the fields
// that apply:
//
//	{"type":"preset","name":"speech"}
//	{"type":"preset","preset":{...}}
//	{"type":"bypass","enabled":true}
//	{"type":"lfo","enabled":true,"rate_hz":0.2,"depth_db":1}
//	{"type":"flush"}
//	{"type":"status"}
type Message struct {
	Type    string          `json:"type"`
	Name    string          `json:"name,omitempty"`
	Preset  json.RawMessage `json:"preset,omitempty"`
	Enabled *bool           `json:"enabled,omitempty"`
	RateHz  *float64        `json:"rate_hz,omitempty"`
	DepthDB *float64        `json:"depth_db,omitempty"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // gorilla allows one concurrent writer
}

func (c *client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// WebSocketTransport broadcasts meter envelopes to every client on /ws and
// applies control messages received from them.
type WebSocketTransport struct {
	addr     string
	ctrl     Controller
	presets  PresetLoader
	upgrader websocket.Upgrader

	clientsMu sync.Mutex
	clients   map[*client]struct{}

	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	server    *http.Server
	listener  net.Listener
}

// NewWebSocketTransport creates a transport for addr. presets may be nil,
// in which case preset messages must carry an inline preset.
func NewWebSocketTransport(addr string, ctrl Controller, presets PresetLoader) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr:    addr,
		ctrl:    ctrl,
		presets: presets,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local control surface
			},
		},
		clients:   make(map[*client]struct{}),
		broadcast: make(chan any, 256),
		done:      make(chan struct{}),
	}
	go wst.handleBroadcasts()
	return wst
}

// Handler returns the HTTP handler serving /ws.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	return mux
}

// Start listens on the configured address and serves in the background.
func (wst *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return fmt.Errorf("websocket listen on %s: %w", wst.addr, err)
	}
	wst.listener = ln
	wst.server = &http.Server{
		Handler:           wst.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Infof("websocket server listening on ws://%s/ws", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("websocket server: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started, otherwise the configured one.
func (wst *WebSocketTransport) Addr() string {
	if wst.listener != nil {
		return wst.listener.Addr().String()
	}
	return wst.addr
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("upgrade: %v", err)
		return
	}
	c := &client{conn: conn}

	wst.clientsMu.Lock()
	wst.clients[c] = struct{}{}
	n := len(wst.clients)
	wst.clientsMu.Unlock()
	logger.Infof("client %s connected, total: %d", conn.RemoteAddr(), n)

	defer wst.drop(c)

	if wst.ctrl != nil {
		if err := c.write(Envelope{Type: "status", Status: statusOf(wst.ctrl)}); err != nil {
			return
		}
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := c.write(wst.handleMessage(data)); err != nil {
			return
		}
	}
}

func (wst *WebSocketTransport) drop(c *client) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[c]
	delete(wst.clients, c)
	n := len(wst.clients)
	wst.clientsMu.Unlock()
	if ok {
		c.conn.Close()
		logger.Infof("client %s disconnected, total: %d", c.conn.RemoteAddr(), n)
	}
}

// handleMessage applies one control message and returns the reply.
func (wst *WebSocketTransport) handleMessage(data []byte) Envelope {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Envelope{Type: "error", Error: fmt.Sprintf("malformed message: %v", err)}
	}
	if wst.ctrl == nil {
		return Envelope{Type: "error", Request: msg.Type, Error: "no chain attached"}
	}
	if err := wst.apply(msg); err != nil {
		logger.Warnf("%s command failed: %v", msg.Type, err)
		return Envelope{Type: "error", Request: msg.Type, Error: err.Error()}
	}
	return Envelope{Type: "ack", Request: msg.Type, Status: statusOf(wst.ctrl)}
}

func (wst *WebSocketTransport) apply(msg Message) error {
	switch msg.Type {
	case "preset":
		p, err := wst.resolvePreset(msg)
		if err != nil {
			return err
		}
		return wst.ctrl.ApplyPreset(p)
	case "bypass":
		if msg.Enabled == nil {
			return errors.New("bypass requires enabled")
		}
		wst.ctrl.SetBypass(*msg.Enabled)
	case "lfo":
		if msg.Enabled == nil && msg.RateHz == nil && msg.DepthDB == nil {
			return errors.New("lfo requires enabled, rate_hz or depth_db")
		}
		// one edit so a bad field leaves the chain untouched
		return wst.ctrl.SetModulation(func(m preset.Modulation) preset.Modulation {
			if msg.Enabled != nil {
				m.Enabled = *msg.Enabled
			}
			if msg.RateHz != nil {
				m.RateHz = *msg.RateHz
			}
			if msg.DepthDB != nil {
				m.DepthDB = *msg.DepthDB
			}
			return m
		})
	case "flush":
		wst.ctrl.Flush()
	case "status":
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func (wst *WebSocketTransport) resolvePreset(msg Message) (preset.Preset, error) {
	switch {
	case len(msg.Preset) > 0:
		return preset.Decode(msg.Preset)
	case msg.Name != "" && wst.presets != nil:
		return wst.presets.Load(msg.Name)
	case msg.Name != "":
		return preset.Preset{}, errors.New("no preset library available")
	default:
		return preset.Preset{}, errors.New("preset requires name or preset")
	}
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			clients := make([]*client, 0, len(wst.clients))
			for c := range wst.clients {
				clients = append(clients, c)
			}
			wst.clientsMu.Unlock()

			for _, c := range clients {
				if err := c.write(data); err != nil {
					logger.Debugf("send to %s: %v", c.conn.RemoteAddr(), err)
					wst.drop(c)
				}
			}
		case <-wst.done:
			return
		}
	}
}

// Send queues data for every client. When the queue is full the message
// is dropped.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return errors.New("websocket transport closed")
	default:
	}
	select {
	case wst.broadcast <- data:
	default:
	}
	return nil
}

// Close disconnects all clients and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		close(wst.done)

		wst.clientsMu.Lock()
		for c := range wst.clients {
			c.conn.Close()
		}
		clear(wst.clients)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
		logger.Infof("websocket transport closed")
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
