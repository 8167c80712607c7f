package server

import (
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conceptforge/bingo/internal/game"
	"github.com/conceptforge/bingo/internal/randutil"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

type sentMessage struct {
	To   string // connection ID for private sends, empty for broadcasts
	Room string // room code for broadcasts, empty for private sends
	Msg  *Message
}

// fakePublisher records everything the coordinator emits.
type fakePublisher struct {
	mu   sync.Mutex
	subs map[string]string
	sent []sentMessage
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{subs: make(map[string]string)}
}

func (f *fakePublisher) Publish(connID string, msg *Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: connID, Msg: msg})
}

func (f *fakePublisher) Broadcast(roomCode string, msg *Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{Room: roomCode, Msg: msg})
}

func (f *fakePublisher) Subscribe(connID, roomCode string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[connID] = roomCode
}

func (f *fakePublisher) privates(connID string) []*Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Message
	for _, s := range f.sent {
		if s.To == connID {
			out = append(out, s.Msg)
		}
	}
	return out
}

func (f *fakePublisher) broadcasts(messageType MessageType) []*Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Message
	for _, s := range f.sent {
		if s.Room != "" && s.Msg.Type == messageType {
			out = append(out, s.Msg)
		}
	}
	return out
}

func (f *fakePublisher) lastPrivate(t *testing.T, connID string, messageType MessageType) *Message {
	t.Helper()
	var found *Message
	for _, msg := range f.privates(connID) {
		if msg.Type == messageType {
			found = msg
		}
	}
	require.NotNilf(t, found, "no %s message sent to %s", messageType, connID)
	return found
}

func (f *fakePublisher) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

func decode[T any](t *testing.T, msg *Message) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(msg.Data, &out))
	return out
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakePublisher, *Registry, *quartz.Mock) {
	t.Helper()
	pub := newFakePublisher()
	reg := NewRegistry()
	clock := quartz.NewMock(t)
	c := NewCoordinator(reg, pub, randutil.New(42), clock, testLogger(), CoordinatorConfig{})
	return c, pub, reg, clock
}

func createRoom(t *testing.T, c *Coordinator, pub *fakePublisher, connID, name string) RoomCreatedData {
	t.Helper()
	c.CreateRoom(connID, name)
	return decode[RoomCreatedData](t, pub.lastPrivate(t, connID, MessageTypeRoomCreated))
}

func joinRoom(t *testing.T, c *Coordinator, pub *fakePublisher, connID, code, name string) RoomJoinedData {
	t.Helper()
	c.JoinRoom(connID, code, name)
	return decode[RoomJoinedData](t, pub.lastPrivate(t, connID, MessageTypeRoomJoined))
}

func assertPermutation(t *testing.T, board []int) {
	t.Helper()
	require.Len(t, board, game.BoardCells)
	seen := make(map[int]bool)
	for _, v := range board {
		assert.GreaterOrEqual(t, v, 1)
		assert.LessOrEqual(t, v, game.BoardCells)
		assert.Falsef(t, seen[v], "duplicate value %d", v)
		seen[v] = true
	}
}

func TestCreateRoom(t *testing.T) {
	c, pub, reg, clock := newTestCoordinator(t)

	created := createRoom(t, c, pub, "conn-alice", "Alice")

	assert.Len(t, created.RoomCode, game.DefaultCodeLength)
	assert.True(t, created.IsHost)
	assertPermutation(t, created.Board)

	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, created.RoomCode, pub.subs["conn-alice"], "connection should be subscribed to the room")

	msg := pub.lastPrivate(t, "conn-alice", MessageTypeRoomCreated)
	assert.True(t, msg.Timestamp.Equal(clock.Now()), "envelope should be stamped from the injected clock")
}

func TestCreateRoomEmptyName(t *testing.T) {
	c, pub, reg, _ := newTestCoordinator(t)

	c.CreateRoom("conn-alice", "")

	errData := decode[ErrorData](t, pub.lastPrivate(t, "conn-alice", MessageTypeError))
	assert.Equal(t, "invalid_name", errData.Code)
	assert.Equal(t, 0, reg.Len())
}

func TestJoinRoom(t *testing.T) {
	c, pub, _, _ := newTestCoordinator(t)

	created := createRoom(t, c, pub, "conn-alice", "Alice")
	joined := joinRoom(t, c, pub, "conn-bob", created.RoomCode, "Bob")

	assert.Equal(t, created.RoomCode, joined.RoomCode)
	assert.False(t, joined.IsHost)
	assertPermutation(t, joined.Board)
	assert.NotEqual(t, created.Board, joined.Board, "boards are independent shuffles")
	assert.Equal(t, created.RoomCode, pub.subs["conn-bob"])

	rosters := pub.broadcasts(MessageTypeUpdatePlayers)
	require.Len(t, rosters, 1)
	roster := decode[UpdatePlayersData](t, rosters[0])
	assert.Equal(t, 2, roster.PlayerCount)
	require.Len(t, roster.Players, 2)
	assert.Equal(t, "Alice", roster.Players[0].Name)
	assert.Equal(t, "Bob", roster.Players[1].Name)
}

func TestJoinRoomCaseInsensitive(t *testing.T) {
	c, pub, _, _ := newTestCoordinator(t)

	created := createRoom(t, c, pub, "conn-alice", "Alice")
	joined := joinRoom(t, c, pub, "conn-bob", "  "+lower(created.RoomCode)+" ", "Bob")
	assert.Equal(t, created.RoomCode, joined.RoomCode)
}

func lower(s string) string {
	out := []byte(s)
	for i := range out {
		if out[i] >= 'A' && out[i] <= 'Z' {
			out[i] += 'a' - 'A'
		}
	}
	return string(out)
}

func TestJoinRoomNotFound(t *testing.T) {
	c, pub, _, _ := newTestCoordinator(t)

	c.JoinRoom("conn-bob", "ZZZZZZ", "Bob")

	errData := decode[ErrorData](t, pub.lastPrivate(t, "conn-bob", MessageTypeError))
	assert.Equal(t, "room_not_found", errData.Code)
}

func TestJoinRoomAfterStart(t *testing.T) {
	c, pub, _, _ := newTestCoordinator(t)

	created := createRoom(t, c, pub, "conn-alice", "Alice")
	joinRoom(t, c, pub, "conn-bob", created.RoomCode, "Bob")
	c.StartGame("conn-alice", created.RoomCode)

	c.JoinRoom("conn-carol", created.RoomCode, "Carol")

	errData := decode[ErrorData](t, pub.lastPrivate(t, "conn-carol", MessageTypeError))
	assert.Equal(t, "game_in_progress", errData.Code)
}

func TestStartGame(t *testing.T) {
	c, pub, _, _ := newTestCoordinator(t)

	created := createRoom(t, c, pub, "conn-alice", "Alice")
	joinRoom(t, c, pub, "conn-bob", created.RoomCode, "Bob")

	c.StartGame("conn-alice", created.RoomCode)

	started := pub.broadcasts(MessageTypeGameStarted)
	require.Len(t, started, 1)
	data := decode[GameStartedData](t, started[0])
	assert.Equal(t, "Alice", data.CurrentPlayer)
	assert.Equal(t, "conn-alice", data.CurrentPlayerID)
}

func TestStartGameNotHost(t *testing.T) {
	c, pub, _, _ := newTestCoordinator(t)

	created := createRoom(t, c, pub, "conn-alice", "Alice")
	joinRoom(t, c, pub, "conn-bob", created.RoomCode, "Bob")

	c.StartGame("conn-bob", created.RoomCode)

	errData := decode[ErrorData](t, pub.lastPrivate(t, "conn-bob", MessageTypeError))
	assert.Equal(t, "not_host", errData.Code)
	assert.Empty(t, pub.broadcasts(MessageTypeGameStarted))
}

func TestStartGameInsufficientPlayers(t *testing.T) {
	c, pub, _, _ := newTestCoordinator(t)

	created := createRoom(t, c, pub, "conn-alice", "Alice")
	c.StartGame("conn-alice", created.RoomCode)

	errData := decode[ErrorData](t, pub.lastPrivate(t, "conn-alice", MessageTypeError))
	assert.Equal(t, "insufficient_players", errData.Code)
}

func TestStartGameRoomNotFound(t *testing.T) {
	c, pub, _, _ := newTestCoordinator(t)

	c.StartGame("conn-alice", "ZZZZZZ")

	errData := decode[ErrorData](t, pub.lastPrivate(t, "conn-alice", MessageTypeError))
	assert.Equal(t, "room_not_found", errData.Code)
}

// TestSelectNumberScenario walks the canonical two-player exchange:
// Alice creates, Bob joins, the game starts, Alice calls her board's
// index 0 and the turn passes to Bob.
func TestSelectNumberScenario(t *testing.T) {
	c, pub, _, _ := newTestCoordinator(t)

	created := createRoom(t, c, pub, "conn-alice", "Alice")
	joined := joinRoom(t, c, pub, "conn-bob", created.RoomCode, "Bob")
	c.StartGame("conn-alice", created.RoomCode)
	pub.reset()

	c.SelectNumber("conn-alice", created.RoomCode, 0)

	called := pub.broadcasts(MessageTypeNumberCalled)
	require.Len(t, called, 1)
	data := decode[NumberCalledData](t, called[0])

	value := created.Board[0]
	assert.Equal(t, value, data.Number)
	assert.Equal(t, "Alice", data.CalledBy)

	require.Len(t, data.AllPlayerBoards, 2)
	marksByID := make(map[string][]int)
	for _, pm := range data.AllPlayerBoards {
		marksByID[pm.ID] = pm.MarkedIndices
	}
	assert.Equal(t, []int{0}, marksByID["conn-alice"])

	bobIdx := indexOf(joined.Board, value)
	require.GreaterOrEqual(t, bobIdx, 0, "the called value must appear on Bob's board")
	assert.Equal(t, []int{bobIdx}, marksByID["conn-bob"])

	turns := pub.broadcasts(MessageTypeTurnChanged)
	require.Len(t, turns, 1)
	turn := decode[TurnChangedData](t, turns[0])
	assert.Equal(t, "Bob", turn.CurrentPlayer)
	assert.Equal(t, "conn-bob", turn.CurrentPlayerID)
}

func indexOf(board []int, value int) int {
	for i, v := range board {
		if v == value {
			return i
		}
	}
	return -1
}

func TestSelectNumberNotYourTurn(t *testing.T) {
	c, pub, _, _ := newTestCoordinator(t)

	created := createRoom(t, c, pub, "conn-alice", "Alice")
	joinRoom(t, c, pub, "conn-bob", created.RoomCode, "Bob")
	c.StartGame("conn-alice", created.RoomCode)
	pub.reset()

	c.SelectNumber("conn-bob", created.RoomCode, 0)

	errData := decode[ErrorData](t, pub.lastPrivate(t, "conn-bob", MessageTypeError))
	assert.Equal(t, "not_your_turn", errData.Code)
	assert.Empty(t, pub.broadcasts(MessageTypeNumberCalled), "a rejected call mutates nothing")
	assert.Empty(t, pub.privates("conn-alice"), "errors go to the actor only")
}

func TestSelectNumberInvalidIndex(t *testing.T) {
	c, pub, _, _ := newTestCoordinator(t)

	created := createRoom(t, c, pub, "conn-alice", "Alice")
	joinRoom(t, c, pub, "conn-bob", created.RoomCode, "Bob")
	c.StartGame("conn-alice", created.RoomCode)
	pub.reset()

	c.SelectNumber("conn-alice", created.RoomCode, game.BoardCells)

	errData := decode[ErrorData](t, pub.lastPrivate(t, "conn-alice", MessageTypeError))
	assert.Equal(t, "invalid_index", errData.Code)
	assert.Empty(t, pub.broadcasts(MessageTypeNumberCalled))
}

func TestSelectNumberStaleIsSilent(t *testing.T) {
	c, pub, _, _ := newTestCoordinator(t)

	// Missing room: dropped without an error.
	c.SelectNumber("conn-alice", "ZZZZZZ", 0)
	assert.Empty(t, pub.sent)

	// Room still in the lobby: dropped as well.
	created := createRoom(t, c, pub, "conn-alice", "Alice")
	pub.reset()
	c.SelectNumber("conn-alice", created.RoomCode, 0)
	assert.Empty(t, pub.sent)
}

func TestChatMessage(t *testing.T) {
	c, pub, _, _ := newTestCoordinator(t)

	created := createRoom(t, c, pub, "conn-alice", "Alice")
	joinRoom(t, c, pub, "conn-bob", created.RoomCode, "Bob")
	pub.reset()

	c.ChatMessage("conn-bob", created.RoomCode, "good luck!")

	chats := pub.broadcasts(MessageTypeChatMessage)
	require.Len(t, chats, 1)
	data := decode[ChatRelayData](t, chats[0])
	assert.Equal(t, "Bob", data.PlayerName)
	assert.Equal(t, "good luck!", data.Message)
}

func TestChatMessageNonMemberIgnored(t *testing.T) {
	c, pub, _, _ := newTestCoordinator(t)

	created := createRoom(t, c, pub, "conn-alice", "Alice")
	pub.reset()

	c.ChatMessage("conn-stranger", created.RoomCode, "let me in")
	c.ChatMessage("conn-alice", "ZZZZZZ", "anyone there?")

	assert.Empty(t, pub.sent)
}

func TestDepartureHostPromotion(t *testing.T) {
	c, pub, reg, _ := newTestCoordinator(t)

	created := createRoom(t, c, pub, "conn-alice", "Alice")
	joinRoom(t, c, pub, "conn-bob", created.RoomCode, "Bob")
	joinRoom(t, c, pub, "conn-carol", created.RoomCode, "Carol")
	pub.reset()

	c.Departure("conn-alice")

	// Bob alone gets the promotion notice.
	require.Len(t, pub.privates("conn-bob"), 1)
	assert.Equal(t, MessageTypeBecameHost, pub.privates("conn-bob")[0].Type)
	assert.Empty(t, pub.privates("conn-carol"))

	left := pub.broadcasts(MessageTypePlayerLeft)
	require.Len(t, left, 1)
	data := decode[PlayerLeftData](t, left[0])
	assert.Equal(t, "Alice", data.PlayerName)
	assert.Equal(t, 2, data.PlayerCount)
	require.Len(t, data.Players, 2)
	assert.Equal(t, "Bob", data.Players[0].Name)

	assert.Equal(t, 1, reg.Len())
}

func TestDepartureNonHost(t *testing.T) {
	c, pub, _, _ := newTestCoordinator(t)

	created := createRoom(t, c, pub, "conn-alice", "Alice")
	joinRoom(t, c, pub, "conn-bob", created.RoomCode, "Bob")
	pub.reset()

	c.Departure("conn-bob")

	assert.Empty(t, pub.privates("conn-alice"), "no promotion when the host stays")
	left := pub.broadcasts(MessageTypePlayerLeft)
	require.Len(t, left, 1)
	assert.Equal(t, "Bob", decode[PlayerLeftData](t, left[0]).PlayerName)
}

func TestDepartureLastPlayerDeletesRoom(t *testing.T) {
	c, pub, reg, _ := newTestCoordinator(t)

	created := createRoom(t, c, pub, "conn-alice", "Alice")
	pub.reset()

	c.Departure("conn-alice")

	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, pub.sent, "nobody is left to notify")

	// A later join against the dead code fails cleanly.
	c.JoinRoom("conn-bob", created.RoomCode, "Bob")
	errData := decode[ErrorData](t, pub.lastPrivate(t, "conn-bob", MessageTypeError))
	assert.Equal(t, "room_not_found", errData.Code)
}

func TestDepartureUnknownIdentity(t *testing.T) {
	c, pub, reg, _ := newTestCoordinator(t)

	createRoom(t, c, pub, "conn-alice", "Alice")
	pub.reset()

	c.Departure("conn-ghost")
	c.Departure("conn-ghost")

	assert.Empty(t, pub.sent)
	assert.Equal(t, 1, reg.Len())
}
