package server

import (
	"encoding/json"
	"time"

	"github.com/lox/parlor/internal/ludo"
	"github.com/lox/parlor/internal/teenpatti"
	"github.com/lox/parlor/internal/twentynine"
)

// Message is the envelope of every WebSocket frame.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage wraps data in an envelope stamped with the current time.
func NewMessage(messageType MessageType, data any) (*Message, error) {
	return newMessageAt(messageType, data, time.Now())
}

func newMessageAt(messageType MessageType, data any, at time.Time) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: at,
	}, nil
}

// Client → Server Messages

type AuthData struct {
	Token string `json:"token"`
}

type ListTablesData struct {
	Game Game `json:"game,omitempty"`
}

// TableRef names a table for subscribe, state and start.
type TableRef struct {
	Game    Game   `json:"game"`
	TableID string `json:"tableId"`
}

type JoinData struct {
	Game    Game   `json:"game"`
	TableID string `json:"tableId"`
	BuyIn   int    `json:"buyIn,omitempty"`
}

type AddBotsData struct {
	Game    Game   `json:"game"`
	TableID string `json:"tableId"`
	Count   int    `json:"count,omitempty"`
}

type ActData struct {
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

type MoveData struct {
	TokenID int `json:"tokenId"`
}

type BidData struct {
	Amount int    `json:"amount"`
	Trump  string `json:"trump"`
}

type PlayData struct {
	Card string `json:"card"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success       bool   `json:"success"`
	ParticipantID string `json:"participantId,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	Error         string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Lobby lists table summaries per game.
type Lobby struct {
	TeenPatti  []teenpatti.Summary  `json:"teenpatti,omitempty"`
	Ludo       []ludo.Summary       `json:"ludo,omitempty"`
	TwentyNine []twentynine.Summary `json:"twentynine,omitempty"`
}

// StateData carries one viewer's copy of a table.
type StateData struct {
	Game    Game            `json:"game"`
	TableID string          `json:"tableId"`
	View    json.RawMessage `json:"view"`
}
