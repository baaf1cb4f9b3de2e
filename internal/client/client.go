// Package client speaks the parlor WebSocket protocol. It backs the watch
// command and the server's end-to-end tests.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/parlor/internal/server"
)

// ErrClosed is returned once the connection has gone away.
var ErrClosed = errors.New("client closed")

// ServerError is an error envelope sent in reply to a request.
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// EventHandler receives messages that are not replies to a pending request,
// such as state pushes caused by other participants.
type EventHandler func(*server.Message)

// Client is a WebSocket connection to a parlor server.
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	nextID    atomic.Uint64

	mu       sync.Mutex
	pending  map[string]chan *server.Message
	handlers map[server.MessageType][]EventHandler
}

func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		serverURL: serverURL,
		send:      make(chan *server.Message, 64),
		logger:    logger.WithPrefix("client"),
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[string]chan *server.Message),
		handlers:  make(map[server.MessageType][]EventHandler),
	}
}

// wsURL converts an http(s) base URL to the /ws endpoint.
func wsURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if !strings.HasSuffix(u.Path, "/ws") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	}
	return u.String(), nil
}

// Connect dials the server and starts the read and write pumps.
func (c *Client) Connect(ctx context.Context) error {
	target, err := wsURL(c.serverURL)
	if err != nil {
		return err
	}
	c.logger.Info("Connecting to server", "url", target)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn

	go c.readPump()
	go c.writePump()
	return nil
}

// Close shuts the connection down. Pending requests fail with ErrClosed.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
		c.logger.Debug("Disconnected from server")
	})
	return err
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// AddEventHandler registers h for unsolicited messages of the given type.
func (c *Client) AddEventHandler(t server.MessageType, h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[t] = append(c.handlers[t], h)
}

func (c *Client) readPump() {
	defer func() { _ = c.Close() }()

	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.dispatch(&msg)
	}
}

func (c *Client) dispatch(msg *server.Message) {
	c.mu.Lock()
	reply, waiting := c.pending[msg.RequestID]
	if waiting {
		delete(c.pending, msg.RequestID)
	}
	handlers := c.handlers[msg.Type]
	c.mu.Unlock()

	if waiting {
		reply <- msg
		return
	}
	if len(handlers) == 0 {
		c.logger.Debug("No handler for message type", "type", msg.Type)
	}
	for _, h := range handlers {
		h(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

func (c *Client) enqueue(ctx context.Context, msg *server.Message) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Request sends a message and waits for the reply carrying its request id.
// An error envelope is returned as *ServerError.
func (c *Client) Request(ctx context.Context, t server.MessageType, data any) (*server.Message, error) {
	msg, err := server.NewMessage(t, data)
	if err != nil {
		return nil, err
	}
	msg.RequestID = fmt.Sprintf("req-%d", c.nextID.Add(1))

	reply := make(chan *server.Message, 1)
	c.mu.Lock()
	c.pending[msg.RequestID] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.RequestID)
		c.mu.Unlock()
	}()

	if err := c.enqueue(ctx, msg); err != nil {
		return nil, err
	}

	select {
	case resp := <-reply:
		if resp.Type == server.MessageTypeError {
			var data server.ErrorData
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return nil, fmt.Errorf("decode error reply: %w", err)
			}
			return nil, &ServerError{Code: data.Code, Message: data.Message}
		}
		return resp, nil
	case <-c.ctx.Done():
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for %s reply: %w", t, ctx.Err())
	}
}

func (c *Client) requestInto(ctx context.Context, t server.MessageType, data, out any) error {
	resp, err := c.Request(ctx, t, data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode %s reply: %w", resp.Type, err)
	}
	return nil
}

// Auth presents token and returns the identity the server assigned.
func (c *Client) Auth(ctx context.Context, token string) (server.AuthResponseData, error) {
	var resp server.AuthResponseData
	if err := c.requestInto(ctx, server.MessageTypeAuth, server.AuthData{Token: token}, &resp); err != nil {
		return resp, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("authentication failed: %s", resp.Error)
	}
	return resp, nil
}

// ListTables fetches the lobby, optionally for a single game.
func (c *Client) ListTables(ctx context.Context, game server.Game) (server.Lobby, error) {
	var lobby server.Lobby
	err := c.requestInto(ctx, server.MessageTypeListTables, server.ListTablesData{Game: game}, &lobby)
	return lobby, err
}

// Subscribe starts watching a table and returns its current state.
func (c *Client) Subscribe(ctx context.Context, game server.Game, tableID string) (server.StateData, error) {
	return c.stateRequest(ctx, server.MessageTypeSubscribe, server.TableRef{Game: game, TableID: tableID})
}

func (c *Client) Join(ctx context.Context, game server.Game, tableID string, buyIn int) (server.StateData, error) {
	return c.stateRequest(ctx, server.MessageTypeJoin, server.JoinData{Game: game, TableID: tableID, BuyIn: buyIn})
}

func (c *Client) AddBots(ctx context.Context, game server.Game, tableID string, count int) (server.StateData, error) {
	return c.stateRequest(ctx, server.MessageTypeAddBots, server.AddBotsData{Game: game, TableID: tableID, Count: count})
}

func (c *Client) Start(ctx context.Context, game server.Game, tableID string) (server.StateData, error) {
	return c.stateRequest(ctx, server.MessageTypeStart, server.TableRef{Game: game, TableID: tableID})
}

// Action sends an in-game move such as roll or play and returns the
// resulting state.
func (c *Client) Action(ctx context.Context, t server.MessageType, data any) (server.StateData, error) {
	return c.stateRequest(ctx, t, data)
}

func (c *Client) stateRequest(ctx context.Context, t server.MessageType, data any) (server.StateData, error) {
	var state server.StateData
	err := c.requestInto(ctx, t, data, &state)
	return state, err
}
