package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/parlor/internal/auth"
	"github.com/lox/parlor/internal/cards"
	"github.com/lox/parlor/internal/ludo"
	"github.com/lox/parlor/internal/table"
	"github.com/lox/parlor/internal/teenpatti"
	"github.com/lox/parlor/internal/twentynine"
)

// Connection is one WebSocket client.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	identity  auth.Identity
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
}

func newConnection(ctx context.Context, conn *websocket.Conn, s *Server) *Connection {
	ctx, cancel := context.WithCancel(ctx)
	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		server: s,
		logger: s.logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		close(c.send)
		c.send = nil
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// Done is closed when the connection shuts down.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// SendMessage queues msg for the client, closing the connection if its
// buffer is full.
func (c *Connection) SendMessage(msg *Message) error {
	c.mu.RLock()
	send := c.send
	if send == nil {
		c.mu.RUnlock()
		return ErrConnectionClosed
	}
	select {
	case send <- msg:
		c.mu.RUnlock()
		return nil
	default:
		c.mu.RUnlock()
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

func (c *Connection) Identity() auth.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

func (c *Connection) setIdentity(id auth.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = id
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	c.mu.RLock()
	send := c.send
	c.mu.RUnlock()

	for {
		select {
		case message, ok := <-send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches one client envelope.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.Identity().ParticipantID)

	var err error
	switch msg.Type {
	case MessageTypeAuth:
		err = c.handleAuth(msg)
	case MessageTypeListTables:
		err = c.handleListTables(msg)
	case MessageTypeSubscribe:
		err = c.handleSubscribe(msg)
	case MessageTypeState:
		err = c.handleState(msg)
	case MessageTypeJoin:
		err = c.handleJoin(msg)
	case MessageTypeAddBots:
		err = c.handleAddBots(msg)
	case MessageTypeStart:
		err = c.handleStart(msg)
	case MessageTypeAct, MessageTypeRoll, MessageTypeMove, MessageTypeBid, MessageTypePlay:
		err = c.handleAction(msg)
	default:
		c.sendError(msg.RequestID, CodeUnknownType, "unknown message type: "+msg.Type.String())
		return
	}
	if err != nil {
		c.replyError(msg.RequestID, err)
	}
}

// requestError is a malformed or unauthorised request.
type requestError struct {
	code    string
	message string
}

func (e *requestError) Error() string { return e.message }

func invalid(format string, args ...any) error {
	return &requestError{code: CodeInvalidMessage, message: fmt.Sprintf(format, args...)}
}

func decode(msg *Message, v any) error {
	if len(msg.Data) == 0 || string(msg.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return invalid("failed to parse %s data", msg.Type)
	}
	return nil
}

func (c *Connection) replyError(requestID string, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		c.sendError(requestID, reqErr.code, reqErr.message)
		return
	}
	code := table.Code(err)
	if code == "internal" {
		c.logger.Error("Request failed", "error", err)
	}
	c.sendError(requestID, code, err.Error())
}

func (c *Connection) sendError(requestID, code, message string) {
	c.reply(MessageTypeError, requestID, ErrorData{Code: code, Message: message})
}

func (c *Connection) reply(t MessageType, requestID string, data any) {
	msg, err := newMessageAt(t, data, c.server.clock.Now())
	if err != nil {
		c.logger.Error("Failed to create message", "type", t, "error", err)
		return
	}
	msg.RequestID = requestID
	_ = c.SendMessage(msg)
}

func (c *Connection) requireAuth() (auth.Identity, error) {
	id := c.Identity()
	if id.ParticipantID == "" {
		return id, &requestError{code: CodeUnauthorized, message: "must authenticate first"}
	}
	return id, nil
}

func (c *Connection) handleAuth(msg *Message) error {
	var data AuthData
	if err := decode(msg, &data); err != nil {
		return err
	}
	id, err := c.server.validator.Validate(c.ctx, data.Token)
	switch {
	case errors.Is(err, auth.ErrUnavailable):
		c.logger.Warn("Auth service unavailable", "error", err)
		c.reply(MessageTypeAuthResponse, msg.RequestID, AuthResponseData{Error: "auth service unavailable"})
		return nil
	case err != nil:
		c.reply(MessageTypeAuthResponse, msg.RequestID, AuthResponseData{Error: "invalid token"})
		return nil
	}

	c.setIdentity(id)
	c.logger.Info("Participant authenticated", "id", id.ParticipantID, "name", id.DisplayName)
	c.reply(MessageTypeAuthResponse, msg.RequestID, AuthResponseData{
		Success:       true,
		ParticipantID: id.ParticipantID,
		DisplayName:   id.DisplayName,
	})
	return nil
}

func (c *Connection) handleListTables(msg *Message) error {
	var data ListTablesData
	if err := decode(msg, &data); err != nil {
		return err
	}
	lobby, err := c.server.games.Lobby(data.Game)
	if err != nil {
		return err
	}
	c.reply(MessageTypeTableList, msg.RequestID, lobby)
	return nil
}

func (c *Connection) handleSubscribe(msg *Message) error {
	var ref TableRef
	if err := decode(msg, &ref); err != nil {
		return err
	}
	// Subscribed before the read so no change between the two is lost.
	c.server.hub.Subscribe(c, ref.Game, ref.TableID)
	if err := c.sendState(msg.RequestID, ref.Game, ref.TableID); err != nil {
		c.server.hub.Unsubscribe(c)
		return err
	}
	return nil
}

func (c *Connection) handleState(msg *Message) error {
	var ref TableRef
	if err := decode(msg, &ref); err != nil {
		return err
	}
	return c.sendState(msg.RequestID, ref.Game, ref.TableID)
}

func (c *Connection) sendState(requestID string, game Game, tableID string) error {
	state, err := c.server.hub.stateMessage(game, tableID, c.Identity().ParticipantID)
	if err != nil {
		return err
	}
	state.RequestID = requestID
	return c.SendMessage(state)
}

func (c *Connection) handleJoin(msg *Message) error {
	id, err := c.requireAuth()
	if err != nil {
		return err
	}
	var data JoinData
	if err := decode(msg, &data); err != nil {
		return err
	}
	return c.server.join(c.ctx, data, id, c.server.hub.change(data.Game, c, msg.RequestID))
}

func (c *Connection) handleAddBots(msg *Message) error {
	id, err := c.requireAuth()
	if err != nil {
		return err
	}
	data := AddBotsData{Count: 1}
	if err := decode(msg, &data); err != nil {
		return err
	}
	if err := c.server.games.AddBots(data.Game, data.TableID, data.Count, c.server.hub.change(data.Game, c, msg.RequestID)); err != nil {
		return err
	}
	c.server.audit(c.ctx, id.ParticipantID, "add_bots", fmt.Sprintf("%s %s count=%d", data.Game, data.TableID, data.Count))
	return nil
}

func (c *Connection) handleStart(msg *Message) error {
	if _, err := c.requireAuth(); err != nil {
		return err
	}
	var ref TableRef
	if err := decode(msg, &ref); err != nil {
		return err
	}
	return c.server.games.Start(ref.Game, ref.TableID, c.server.hub.change(ref.Game, c, msg.RequestID))
}

// handleAction routes an in-game move to the engine the message type
// belongs to. The payload is checked before the engine is called.
func (c *Connection) handleAction(msg *Message) error {
	id, err := c.requireAuth()
	if err != nil {
		return err
	}
	pid := id.ParticipantID
	g := c.server.games

	var (
		game Game
		run  func(ch *change) error
	)
	switch msg.Type {
	case MessageTypeAct:
		var data ActData
		if err := decode(msg, &data); err != nil {
			return err
		}
		action, err := teenpatti.ParseAction(data.Action)
		if err != nil {
			return invalid("%v", err)
		}
		game = GameTeenPatti
		run = func(ch *change) error {
			_, err := g.TeenPatti.Act(pid, action, data.Amount, observe[teenpatti.View](ch))
			return err
		}

	case MessageTypeRoll:
		game = GameLudo
		run = func(ch *change) error {
			_, err := g.Ludo.Roll(pid, observe[ludo.View](ch))
			return err
		}

	case MessageTypeMove:
		var data MoveData
		if err := decode(msg, &data); err != nil {
			return err
		}
		game = GameLudo
		run = func(ch *change) error {
			_, err := g.Ludo.Move(pid, data.TokenID, observe[ludo.View](ch))
			return err
		}

	case MessageTypeBid:
		var data BidData
		if err := decode(msg, &data); err != nil {
			return err
		}
		trump, err := cards.ParseSuit(strings.TrimSpace(data.Trump))
		if err != nil {
			return invalid("%v", err)
		}
		game = GameTwentyNine
		run = func(ch *change) error {
			_, err := g.TwentyNine.Bid(pid, data.Amount, trump, observe[twentynine.View](ch))
			return err
		}

	case MessageTypePlay:
		var data PlayData
		if err := decode(msg, &data); err != nil {
			return err
		}
		card, err := cards.Parse(strings.TrimSpace(data.Card))
		if err != nil {
			return invalid("%v", err)
		}
		game = GameTwentyNine
		run = func(ch *change) error {
			_, err := g.TwentyNine.Play(pid, card, observe[twentynine.View](ch))
			return err
		}

	default:
		return invalid("unsupported action %s", msg.Type)
	}

	return run(c.server.hub.change(game, c, msg.RequestID))
}
