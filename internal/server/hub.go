package server

import (
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
)

type subscription struct {
	game    Game
	tableID string
}

// Hub tracks which connections watch which table and pushes each of them
// their own view after a mutation.
type Hub struct {
	mu     sync.RWMutex
	subs   map[subscription]map[*Connection]struct{}
	byConn map[*Connection]subscription
	games  *Games
	logger *log.Logger
}

func NewHub(games *Games, logger *log.Logger) *Hub {
	return &Hub{
		subs:   make(map[subscription]map[*Connection]struct{}),
		byConn: make(map[*Connection]subscription),
		games:  games,
		logger: logger.WithPrefix("hub"),
	}
}

// Subscribe moves c to the given table. A connection watches one table.
func (h *Hub) Subscribe(c *Connection, game Game, tableID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.add(c, subscription{game: game, tableID: tableID})
}

func (h *Hub) add(c *Connection, key subscription) {
	h.remove(c)
	if h.subs[key] == nil {
		h.subs[key] = make(map[*Connection]struct{})
	}
	h.subs[key][c] = struct{}{}
	h.byConn[c] = key
}

func (h *Hub) Unsubscribe(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}

func (h *Hub) remove(c *Connection) {
	key, ok := h.byConn[c]
	if !ok {
		return
	}
	delete(h.byConn, c)
	delete(h.subs[key], c)
	if len(h.subs[key]) == 0 {
		delete(h.subs, key)
	}
}

// Subscribers returns how many connections watch the table.
func (h *Hub) Subscribers(game Game, tableID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[subscription{game: game, tableID: tableID}])
}

// change is one mutation requested by origin. The engine hands it the
// table through an observer while the table lock is still held, so every
// subscriber sees exactly that state and pushes arrive in mutation order.
type change struct {
	hub       *Hub
	game      Game
	origin    *Connection
	requestID string
}

func (h *Hub) change(game Game, origin *Connection, requestID string) *change {
	return &change{hub: h, game: game, origin: origin, requestID: requestID}
}

// observe adapts ch to an engine's Observer type.
func observe[V any](ch *change) func(string, func(string) V) {
	return func(tableID string, view func(string) V) {
		ch.hub.deliver(ch, tableID, func(viewerID string) any { return view(viewerID) })
	}
}

// deliver subscribes the origin to the table and sends every subscriber its
// own view. The origin's copy is stamped with the request id and doubles as
// the reply.
func (h *Hub) deliver(ch *change, tableID string, view func(viewerID string) any) {
	key := subscription{game: ch.game, tableID: tableID}
	h.mu.Lock()
	if ch.origin != nil {
		h.add(ch.origin, key)
	}
	conns := make([]*Connection, 0, len(h.subs[key]))
	for c := range h.subs[key] {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	sent := 0
	for _, c := range conns {
		msg, err := encodeState(ch.game, tableID, view(c.Identity().ParticipantID))
		if err != nil {
			h.logger.Error("Failed to build view", "game", ch.game, "table", tableID, "viewer", c.Identity().ParticipantID, "error", err)
			continue
		}
		if c == ch.origin {
			msg.RequestID = ch.requestID
		}
		if err := c.SendMessage(msg); err == nil {
			sent++
		}
	}
	h.logger.Debug("Published table state", "game", ch.game, "table", tableID, "recipients", sent)
}

// stateMessage reads viewerID's copy of a table outside any mutation.
func (h *Hub) stateMessage(game Game, tableID, viewerID string) (*Message, error) {
	view, err := h.games.View(game, tableID, viewerID)
	if err != nil {
		return nil, err
	}
	return encodeState(game, tableID, view)
}

func encodeState(game Game, tableID string, view any) (*Message, error) {
	raw, err := json.Marshal(view)
	if err != nil {
		return nil, err
	}
	return NewMessage(MessageTypeState, StateData{Game: game, TableID: tableID, View: raw})
}
