// Package server exposes the table engines over WebSocket and HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/lox/parlor/internal/auth"
	"github.com/lox/parlor/internal/ledger"
)

// Options are the collaborators a Server needs besides the engines.
type Options struct {
	Validator auth.Validator
	Bank      ledger.Bank
	Clock     quartz.Clock
}

// Server is the WebSocket server.
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	games       *Games
	hub         *Hub
	validator   auth.Validator
	bank        ledger.Bank
	clock       quartz.Clock
	logger      *log.Logger
	mu          sync.RWMutex
	connections map[*Connection]bool
	httpServer  *http.Server
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewServer(addr string, games *Games, opts Options, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	if opts.Validator == nil {
		opts.Validator = auth.NameValidator{}
	}
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	logger = logger.WithPrefix("server")
	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		games:       games,
		hub:         NewHub(games, logger),
		validator:   opts.Validator,
		bank:        opts.Bank,
		clock:       opts.Clock,
		logger:      logger,
		connections: make(map[*Connection]bool),
		ctx:         ctx,
		cancel:      cancel,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler routes /ws, /tables and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /tables", s.handleTables)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and closes the open ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	err := s.httpServer.Shutdown(ctx)

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()
	return err
}

// Hub returns the subscription hub.
func (s *Server) Hub() *Hub { return s.hub }

// ConnectionCount returns the number of open connections.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := newConnection(s.ctx, conn, s)
	s.mu.Lock()
	s.connections[client] = true
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "total", total)

	client.Start()

	go func() {
		<-client.Done()
		s.hub.Unsubscribe(client)
		s.mu.Lock()
		delete(s.connections, client)
		total := len(s.connections)
		s.mu.Unlock()
		s.logger.Info("Client disconnected", "total", total)
	}()
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	lobby, err := s.games.Lobby(Game(r.URL.Query().Get("game")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(lobby); err != nil {
		s.logger.Error("Failed to encode lobby", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// join reserves a Teen Patti buy-in before seating and refunds it if the
// seat is refused.
func (s *Server) join(ctx context.Context, data JoinData, id auth.Identity, ch *change) error {
	reserved := data.Game == GameTeenPatti && s.bank != nil
	ref := fmt.Sprintf("buy-in %s", data.TableID)
	if reserved {
		if _, err := s.bank.Reserve(ctx, id.ParticipantID, data.BuyIn, ref); err != nil {
			return err
		}
	}

	err := s.games.Join(data.Game, data.TableID, id.ParticipantID, id.DisplayName, data.BuyIn, ch)
	if err != nil && reserved {
		if _, refundErr := s.bank.Credit(ctx, id.ParticipantID, data.BuyIn, "refund "+ref); refundErr != nil {
			s.logger.Error("Failed to refund buy-in", "player", id.ParticipantID, "error", refundErr)
			return errors.Join(err, refundErr)
		}
	}
	if err == nil {
		s.logger.Info("Player joined", "game", data.Game, "table", data.TableID, "player", id.ParticipantID)
	}
	return err
}

func (s *Server) audit(ctx context.Context, actor, action, detail string) {
	if s.bank == nil {
		return
	}
	if err := s.bank.Audit(ctx, actor, action, detail); err != nil {
		s.logger.Error("Failed to record audit entry", "action", action, "error", err)
	}
}
