package server

// MessageType names a WebSocket envelope.
type MessageType string

const (
	// Client to server messages
	MessageTypeAuth       MessageType = "auth"
	MessageTypeListTables MessageType = "list_tables"
	MessageTypeSubscribe  MessageType = "subscribe"
	MessageTypeState      MessageType = "state"
	MessageTypeJoin       MessageType = "join"
	MessageTypeAddBots    MessageType = "add_bots"
	MessageTypeStart      MessageType = "start"
	MessageTypeAct        MessageType = "act"
	MessageTypeRoll       MessageType = "roll"
	MessageTypeMove       MessageType = "move"
	MessageTypeBid        MessageType = "bid"
	MessageTypePlay       MessageType = "play"

	// Server to client messages. State doubles as the reply to a state
	// request and the push after every mutation.
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeTableList    MessageType = "table_list"
	MessageTypeError        MessageType = "error"
)

func (mt MessageType) String() string {
	return string(mt)
}

// Error codes sent in ErrorData besides the table error codes.
const (
	CodeInvalidMessage = "invalid_message"
	CodeUnauthorized   = "unauthorized"
	CodeUnavailable    = "unavailable"
	CodeUnknownType    = "unknown_message_type"
)
