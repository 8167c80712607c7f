package server

import (
	"errors"
	rand "math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/conceptforge/bingo/internal/game"
)

// Publisher is the outbound half of the transport: a reliable, ordered,
// fire-and-forget channel to a single connection or to every connection
// subscribed to a room. The websocket Server implements it; tests
// substitute a recording fake.
type Publisher interface {
	Publish(connID string, msg *Message)
	Broadcast(roomCode string, msg *Message)
	// Subscribe adds the connection to a room's broadcast group. It must
	// take effect before any subsequent Broadcast to that room.
	Subscribe(connID, roomCode string)
}

// CoordinatorConfig carries the game-level tunables.
type CoordinatorConfig struct {
	MinPlayers int
	CodeLength int
}

// Coordinator is the session entry point. It resolves inbound actions to
// a room, validates the actor against room and turn state, mutates the
// room under its per-room lock and emits broadcasts. Validation failures
// go back to the acting connection only; no error is ever broadcast.
type Coordinator struct {
	registry   *Registry
	pub        Publisher
	logger     *log.Logger
	clock      quartz.Clock
	minPlayers int
	codeLength int

	// rng is shared across rooms for boards and codes; *rand.Rand is not
	// safe for concurrent use, hence the dedicated lock.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewCoordinator creates a coordinator over the given registry and
// publisher. A nil clock means the real one.
func NewCoordinator(registry *Registry, pub Publisher, rng *rand.Rand, clock quartz.Clock, logger *log.Logger, cfg CoordinatorConfig) *Coordinator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if cfg.MinPlayers <= 0 {
		cfg.MinPlayers = 2
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = game.DefaultCodeLength
	}

	return &Coordinator{
		registry:   registry,
		pub:        pub,
		logger:     logger.WithPrefix("coordinator"),
		clock:      clock,
		minPlayers: cfg.MinPlayers,
		codeLength: cfg.CodeLength,
		rng:        rng,
	}
}

// CreateRoom creates a fresh room with the actor as host, subscribes the
// connection to it and replies privately with the room code and the
// actor's board.
func (c *Coordinator) CreateRoom(connID, playerName string) {
	if playerName == "" {
		c.errorTo(connID, "invalid_name", "player name required")
		return
	}

	c.rngMu.Lock()
	board := game.NewBoard(c.rng)
	var room *game.Room
	for {
		code := game.NewRoomCode(c.rng, c.codeLength)
		room = game.NewRoom(code, c.clock.Now())
		if c.registry.Insert(room) {
			break
		}
		// Code collided with a live room, roll again.
	}
	c.rngMu.Unlock()

	player := game.NewPlayer(connID, playerName, board)
	room.Lock()
	_ = room.AddPlayer(player) // fresh lobby room, cannot fail
	room.Unlock()

	c.pub.Subscribe(connID, room.Code())
	c.publish(connID, MessageTypeRoomCreated, RoomCreatedData{
		RoomCode: room.Code(),
		Board:    board.Values(),
		IsHost:   true,
	})

	c.logger.Info("Room created", "room", room.Code(), "player", playerName)
}

// JoinRoom appends the actor to a lobby-phase room, subscribes the
// connection, replies privately with their board and broadcasts the
// updated roster.
func (c *Coordinator) JoinRoom(connID, code, playerName string) {
	if playerName == "" {
		c.errorTo(connID, "invalid_name", "player name required")
		return
	}

	room, ok := c.registry.Get(code)
	if !ok {
		c.sendError(connID, game.ErrRoomNotFound)
		return
	}

	c.rngMu.Lock()
	board := game.NewBoard(c.rng)
	c.rngMu.Unlock()

	room.Lock()
	defer room.Unlock()

	if err := room.AddPlayer(game.NewPlayer(connID, playerName, board)); err != nil {
		c.sendError(connID, err)
		return
	}

	c.pub.Subscribe(connID, room.Code())
	c.publish(connID, MessageTypeRoomJoined, RoomJoinedData{
		RoomCode: room.Code(),
		Board:    board.Values(),
		IsHost:   false,
	})
	c.broadcast(room.Code(), MessageTypeUpdatePlayers, UpdatePlayersData{
		Players:     PlayerInfosFromRoom(room.Players()),
		PlayerCount: room.PlayerCount(),
	})

	c.logger.Info("Player joined room", "room", room.Code(), "player", playerName, "players", room.PlayerCount())
}

// StartGame moves a room to the active phase. Host only, and only with
// enough players. The turn starts on the host.
func (c *Coordinator) StartGame(connID, code string) {
	room, ok := c.registry.Get(code)
	if !ok {
		c.sendError(connID, game.ErrRoomNotFound)
		return
	}

	room.Lock()
	defer room.Unlock()

	if err := room.Start(connID, c.minPlayers); err != nil {
		c.sendError(connID, err)
		return
	}

	host := room.Host()
	c.broadcast(room.Code(), MessageTypeGameStarted, GameStartedData{
		CurrentPlayer:   host.Name,
		CurrentPlayerID: host.ID,
	})

	c.logger.Info("Game started", "room", room.Code(), "players", room.PlayerCount())
}

// SelectNumber resolves a number call. A call against a missing or
// non-active room is dropped silently: it can legitimately race a game
// that just ended. Out-of-turn calls get a private error and mutate
// nothing.
func (c *Coordinator) SelectNumber(connID, code string, index int) {
	room, ok := c.registry.Get(code)
	if !ok {
		return
	}

	room.Lock()
	defer room.Unlock()

	if room.Phase() != game.PhaseActive {
		return
	}

	result, err := room.SelectNumber(connID, index)
	if err != nil {
		c.sendError(connID, err)
		return
	}

	c.broadcast(room.Code(), MessageTypeNumberCalled, NumberCalledData{
		Number:          result.Value,
		CalledBy:        result.Caller.Name,
		AllPlayerBoards: PlayerMarksFromRoom(room.Players()),
	})

	if result.Winner != nil {
		c.broadcast(room.Code(), MessageTypeGameWon, GameWonData{
			Winner:   result.Winner.Name,
			WinnerID: result.Winner.ID,
		})
		c.logger.Info("Game won", "room", room.Code(), "winner", result.Winner.Name)
		return
	}

	c.broadcast(room.Code(), MessageTypeTurnChanged, TurnChangedData{
		CurrentPlayer:   result.Next.Name,
		CurrentPlayerID: result.Next.ID,
	})
}

// ChatMessage relays chat from a recognized participant to the room.
// Unknown rooms and non-members are dropped without an error.
func (c *Coordinator) ChatMessage(connID, code, text string) {
	room, ok := c.registry.Get(code)
	if !ok {
		return
	}

	room.Lock()
	defer room.Unlock()

	player := room.FindPlayer(connID)
	if player == nil {
		return
	}

	c.broadcast(room.Code(), MessageTypeChatMessage, ChatRelayData{
		PlayerName: player.Name,
		Message:    text,
	})
}

// Departure resolves a transport-level disconnect: the identity is
// removed from every room it appears in, empty rooms are destroyed and a
// departed host's seat passes to the next participant. Identities
// normally appear in at most one room, but the sweep does not assume it,
// and removing an absent identity is a no-op.
func (c *Coordinator) Departure(connID string) {
	for _, room := range c.registry.Rooms() {
		room.Lock()

		removed, newHost := room.RemovePlayer(connID)
		if removed == nil {
			room.Unlock()
			continue
		}

		if room.IsEmpty() {
			c.registry.Delete(room.Code())
			room.Unlock()
			c.logger.Info("Room deleted", "room", room.Code())
			continue
		}

		if newHost != nil {
			c.publish(newHost.ID, MessageTypeBecameHost, nil)
		}
		c.broadcast(room.Code(), MessageTypePlayerLeft, PlayerLeftData{
			PlayerName:  removed.Name,
			Players:     PlayerInfosFromRoom(room.Players()),
			PlayerCount: room.PlayerCount(),
		})

		room.Unlock()
		c.logger.Info("Player left room", "room", room.Code(), "player", removed.Name)
	}
}

func (c *Coordinator) publish(connID string, messageType MessageType, data interface{}) {
	msg, err := NewMessage(messageType, data, c.clock.Now())
	if err != nil {
		c.logger.Error("Failed to create message", "type", messageType, "error", err)
		return
	}
	c.pub.Publish(connID, msg)
}

func (c *Coordinator) broadcast(roomCode string, messageType MessageType, data interface{}) {
	msg, err := NewMessage(messageType, data, c.clock.Now())
	if err != nil {
		c.logger.Error("Failed to create message", "type", messageType, "error", err)
		return
	}
	c.pub.Broadcast(roomCode, msg)
}

// sendError surfaces a validation failure to the acting connection only.
func (c *Coordinator) sendError(connID string, err error) {
	c.errorTo(connID, errorCode(err), err.Error())
}

func (c *Coordinator) errorTo(connID, code, message string) {
	c.publish(connID, MessageTypeError, ErrorData{Code: code, Message: message})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, game.ErrGameInProgress):
		return "game_in_progress"
	case errors.Is(err, game.ErrNotHost):
		return "not_host"
	case errors.Is(err, game.ErrInsufficientPlayers):
		return "insufficient_players"
	case errors.Is(err, game.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, game.ErrInvalidCell):
		return "invalid_index"
	default:
		return "internal_error"
	}
}
