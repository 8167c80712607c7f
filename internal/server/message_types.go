package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeCreateRoom   MessageType = "createRoom"
	MessageTypeJoinRoom     MessageType = "joinRoom"
	MessageTypeStartGame    MessageType = "startGame"
	MessageTypeSelectNumber MessageType = "selectNumber"
	// chatMessage is relayed back to the room under the same name.
	MessageTypeChatMessage MessageType = "chatMessage"

	// Server to client messages
	MessageTypeRoomCreated   MessageType = "roomCreated"
	MessageTypeRoomJoined    MessageType = "roomJoined"
	MessageTypeUpdatePlayers MessageType = "updatePlayers"
	MessageTypeGameStarted   MessageType = "gameStarted"
	MessageTypeNumberCalled  MessageType = "numberCalled"
	MessageTypeTurnChanged   MessageType = "turnChanged"
	MessageTypeGameWon       MessageType = "gameWon"
	MessageTypePlayerLeft    MessageType = "playerLeft"
	MessageTypeBecameHost    MessageType = "becameHost"
	MessageTypeError         MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
