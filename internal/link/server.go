package link

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cointhing/cointhing/internal/logging"
	"github.com/cointhing/cointhing/internal/settings"
	"github.com/cointhing/cointhing/internal/stats"
)

const (
	// DefaultPath is where the link accepts upgrades.
	DefaultPath = "/link"

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 << 10
)

// Server exposes a settings store and stats registry over WebSocket.
type Server struct {
	store    *settings.Store
	stats    *stats.Registry
	path     string
	upgrader websocket.Upgrader

	httpServer *http.Server

	mu    sync.Mutex
	peers map[*peer]struct{}
}

type peer struct {
	conn       *websocket.Conn
	remoteAddr string
	writeMu    sync.Mutex
}

func (p *peer) send(m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", m, err)
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *peer) ping() error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// NewServer creates a link server. path defaults to DefaultPath.
func NewServer(store *settings.Store, registry *stats.Registry, path string) *Server {
	if path == "" {
		path = DefaultPath
	}
	return &Server{
		store: store,
		stats: registry,
		path:  path,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		peers: make(map[*peer]struct{}),
	}
}

// Path returns the upgrade path.
func (s *Server) Path() string {
	return s.path
}

// Handler returns an http.Handler that serves the link at Path and 404 elsewhere.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != s.path {
			http.NotFound(w, r)
			return
		}
		s.ServeHTTP(w, r)
	})
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	p := &peer{conn: conn, remoteAddr: r.RemoteAddr}
	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()
	logging.LogLinkEvent(p.remoteAddr, "connected")

	defer func() {
		s.mu.Lock()
		delete(s.peers, p)
		s.mu.Unlock()
		_ = conn.Close()
		logging.LogLinkEvent(p.remoteAddr, "closed")
	}()

	s.handleConnection(p)
}

func (s *Server) handleConnection(p *peer) {
	conn := p.conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := p.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info("Link connection closed with error",
					zap.String("remote_addr", p.remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
		if msgType != websocket.TextMessage {
			logging.Debug("Ignoring non-text frame", zap.String("remote_addr", p.remoteAddr))
			continue
		}

		reply, changed := s.handleMessage(p.remoteAddr, data)
		if err := p.send(reply); err != nil {
			logging.Warn("Failed to send reply",
				zap.String("remote_addr", p.remoteAddr),
				zap.Error(err),
			)
			return
		}
		if changed {
			s.Broadcast()
		}
	}
}

// handleMessage processes one request. changed reports whether settings or
// brightness were modified and peers should be told.
func (s *Server) handleMessage(remoteAddr string, data []byte) (reply Message, changed bool) {
	s.stats.IncServerRequests()

	var req Message
	if err := json.Unmarshal(data, &req); err != nil {
		logging.LogPayload("Malformed link request", data)
		return Message{Type: TypeError, Error: "malformed request: " + err.Error()}, false
	}

	logging.Debug("Link request",
		zap.String("remote_addr", remoteAddr),
		zap.String("request", req.String()),
	)

	switch req.Type {
	case TypeSettings:
		if len(req.Data) == 0 {
			return errorReply(req, "missing data"), false
		}
		report, err := s.store.ApplyJSON(req.Data)
		if err != nil {
			return errorReply(req, err.Error()), false
		}
		s.stats.IncSettingsChange()
		return Message{Type: TypeAck, ID: req.ID, Report: &report}, true

	case TypeBrightness:
		if req.Value == nil {
			return errorReply(req, "missing value"), false
		}
		v := *req.Value
		if v < 0 || v > int(settings.MaxBrightness) || !s.store.SetBrightness(uint8(v)) {
			err := settings.NewValidationError(fmt.Sprintf("brightness %d outside [%d, %d]", v, settings.MinBrightness, settings.MaxBrightness))
			return errorReply(req, err.Error()), false
		}
		return Message{Type: TypeAck, ID: req.ID}, true

	case TypeGet:
		return settingsMessage(TypeSettings, req.ID, s.store.Snapshot(), s.store.Brightness()), false

	case TypeStats:
		return Message{Type: TypeStats, ID: req.ID, Data: json.RawMessage(s.stats.ToJSON())}, false

	case TypeResetStats:
		s.stats.Reset()
		return Message{Type: TypeAck, ID: req.ID}, false

	default:
		return errorReply(req, fmt.Sprintf("unknown message type %q", req.Type)), false
	}
}

func errorReply(req Message, msg string) Message {
	return Message{Type: TypeError, ID: req.ID, Error: msg}
}

// Broadcast pushes the current settings and brightness to every peer.
// Peers that cannot be written to are dropped.
func (s *Server) Broadcast() {
	push := settingsMessage(TypeSettings, 0, s.store.Snapshot(), s.store.Brightness())

	s.mu.Lock()
	peers := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	for _, p := range peers {
		if err := p.send(push); err != nil {
			logging.Warn("Dropping unreachable peer",
				zap.String("remote_addr", p.remoteAddr),
				zap.Error(err),
			)
			_ = p.conn.Close()
		}
	}
}

// ActiveConnections returns the number of connected peers.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// Serve accepts connections on ln until ctx is done or Shutdown is called.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logging.Info("Config link listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("path", s.path),
	)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-stop:
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = s.Shutdown(shutdownCtx)
		}
	}()

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Shutdown stops accepting connections and closes every peer.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	for p := range s.peers {
		_ = p.conn.Close()
	}
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	logging.Info("Shutting down config link")
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("config link shutdown: %w", err)
	}
	return nil
}
