package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/conceptforge/bingo/internal/game"
)

// Server owns the WebSocket side of the system: it upgrades connections,
// tracks them, and implements the Publisher contract the coordinator
// emits through. Room membership for broadcast purposes is the room code
// each connection is subscribed to.
type Server struct {
	addr        string
	staticDir   string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	httpServer  *http.Server
	coordinator *Coordinator
}

// NewServer creates a new WebSocket server. staticDir, when non-empty,
// is served at the root beside /ws and /health.
func NewServer(addr, staticDir string, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      addr,
		staticDir: staticDir,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetCoordinator wires the session coordinator into the server.
func (s *Server) SetCoordinator(coordinator *Coordinator) {
	s.coordinator = coordinator
}

// Start starts the WebSocket server and blocks until it stops.
func (s *Server) Start() error {
	go s.run()

	s.httpServer = &http.Server{Addr: s.addr, Handler: s.routes()}
	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
	return mux
}

// Stop stops the WebSocket server and closes every connection.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "id", conn.ID(), "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, ok := s.connections[conn]
			if ok {
				delete(s.connections, conn)
				_ = conn.Close()
			}
			total := len(s.connections)
			s.mu.Unlock()

			if ok {
				// Resolve the departure against every room the identity
				// appears in before the connection is forgotten.
				if s.coordinator != nil {
					s.coordinator.Departure(conn.ID())
				}
				s.logger.Info("Client disconnected", "id", conn.ID(), "total", total)
			}

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.coordinator)
	s.register <- client
	client.Start()

	go func() {
		<-client.ctx.Done()
		s.unregister <- client
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// Publish sends a message to a single connection by identity.
func (s *Server) Publish(connID string, msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.ID() == connID {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error("Failed to send message to client", "error", err, "id", connID)
			}
			return
		}
	}
}

// Broadcast sends a message to every connection subscribed to a room.
func (s *Server) Broadcast(roomCode string, msg *Message) {
	code := game.NormalizeRoomCode(roomCode)

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.Room() == code {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error("Failed to send message to client", "error", err, "id", conn.ID())
			} else {
				count++
			}
		}
	}

	s.logger.Debug("Broadcasted message to room", "room", code, "type", msg.Type, "recipients", count)
}

// Subscribe adds a connection to a room's broadcast group.
func (s *Server) Subscribe(connID, roomCode string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.ID() == connID {
			conn.SetRoom(game.NormalizeRoomCode(roomCode))
			return
		}
	}
}
