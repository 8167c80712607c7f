package server

import (
	"encoding/json"
	"time"

	"github.com/conceptforge/bingo/internal/game"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message stamped with the given time
func NewMessage(messageType MessageType, data interface{}, at time.Time) (*Message, error) {
	var dataBytes json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		dataBytes = b
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: at,
	}, nil
}

// Client → Server Messages

type CreateRoomData struct {
	PlayerName string `json:"playerName"`
}

type JoinRoomData struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type StartGameData struct {
	RoomCode string `json:"roomCode"`
}

type SelectNumberData struct {
	RoomCode    string `json:"roomCode"`
	NumberIndex int    `json:"numberIndex"`
}

type ChatMessageData struct {
	RoomCode string `json:"roomCode"`
	Message  string `json:"message"`
}

// Server → Client Messages

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RoomCreatedData struct {
	RoomCode string `json:"roomCode"`
	Board    []int  `json:"board"`
	IsHost   bool   `json:"isHost"`
}

type RoomJoinedData struct {
	RoomCode string `json:"roomCode"`
	Board    []int  `json:"board"`
	IsHost   bool   `json:"isHost"`
}

type PlayerInfo struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type UpdatePlayersData struct {
	Players     []PlayerInfo `json:"players"`
	PlayerCount int          `json:"playerCount"`
}

type GameStartedData struct {
	CurrentPlayer   string `json:"currentPlayer"`
	CurrentPlayerID string `json:"currentPlayerId"`
}

type PlayerMarks struct {
	ID            string `json:"id"`
	MarkedIndices []int  `json:"markedIndices"`
}

type NumberCalledData struct {
	Number          int           `json:"number"`
	CalledBy        string        `json:"calledBy"`
	AllPlayerBoards []PlayerMarks `json:"allPlayerBoards"`
}

type TurnChangedData struct {
	CurrentPlayer   string `json:"currentPlayer"`
	CurrentPlayerID string `json:"currentPlayerId"`
}

type GameWonData struct {
	Winner   string `json:"winner"`
	WinnerID string `json:"winnerId"`
}

type PlayerLeftData struct {
	PlayerName  string       `json:"playerName"`
	Players     []PlayerInfo `json:"players"`
	PlayerCount int          `json:"playerCount"`
}

type ChatRelayData struct {
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
}

// Helper functions to convert between internal types and message types

func PlayerInfosFromRoom(players []*game.Player) []PlayerInfo {
	infos := make([]PlayerInfo, len(players))
	for i, p := range players {
		infos[i] = PlayerInfo{Name: p.Name, ID: p.ID}
	}
	return infos
}

func PlayerMarksFromRoom(players []*game.Player) []PlayerMarks {
	marks := make([]PlayerMarks, len(players))
	for i, p := range players {
		marks[i] = PlayerMarks{ID: p.ID, MarkedIndices: p.MarkedIndices()}
	}
	return marks
}
