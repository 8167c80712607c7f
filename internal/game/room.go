package game

import (
	"sort"
	"sync"
	"time"
)

// Phase is a room's lifecycle stage. Transitions are one-way:
// lobby -> active on start, active -> finished on a win.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"
)

// Player is one connected participant within a room. ID is the opaque
// per-connection identifier assigned by the transport; it does not
// outlive the connection.
type Player struct {
	ID     string
	Name   string
	Board  Board
	Marked map[int]bool
}

// NewPlayer creates a participant with a fresh board and no marks.
func NewPlayer(id, name string, board Board) *Player {
	return &Player{
		ID:     id,
		Name:   name,
		Board:  board,
		Marked: make(map[int]bool),
	}
}

// MarkedIndices returns the player's marked cells as a sorted slice.
func (p *Player) MarkedIndices() []int {
	out := make([]int, 0, len(p.Marked))
	for idx := range p.Marked {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Room is one isolated game instance: an ordered participant list
// (index 0 is the host), a phase and a turn pointer. A room is shared
// mutable state; callers take Lock around every read-modify sequence so
// that concurrent actions on the same room are serialized. The lock is
// per room, never global.
type Room struct {
	mu        sync.Mutex
	code      string
	createdAt time.Time
	players   []*Player
	phase     Phase
	turn      int
}

// NewRoom creates an empty room in the lobby phase.
func NewRoom(code string, createdAt time.Time) *Room {
	return &Room{
		code:      code,
		createdAt: createdAt,
		phase:     PhaseLobby,
	}
}

// Lock acquires the room's mutex. Every other method assumes it is held.
func (r *Room) Lock() { r.mu.Lock() }

// Unlock releases the room's mutex.
func (r *Room) Unlock() { r.mu.Unlock() }

// Code returns the room code. Codes are immutable after creation.
func (r *Room) Code() string { return r.code }

// CreatedAt returns the room's creation time.
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Phase returns the current lifecycle stage.
func (r *Room) Phase() Phase { return r.phase }

// Turn returns the turn pointer. Only meaningful in the active phase.
func (r *Room) Turn() int { return r.turn }

// Players returns a snapshot of the participant list in join order.
func (r *Room) Players() []*Player {
	out := make([]*Player, len(r.players))
	copy(out, r.players)
	return out
}

// PlayerCount returns the number of participants.
func (r *Room) PlayerCount() int { return len(r.players) }

// IsEmpty reports whether the participant list is empty. An empty room
// must be deleted from the registry.
func (r *Room) IsEmpty() bool { return len(r.players) == 0 }

// Host returns the participant at index 0, or nil for an empty room.
func (r *Room) Host() *Player {
	if len(r.players) == 0 {
		return nil
	}
	return r.players[0]
}

// CurrentPlayer returns the participant holding the turn, or nil outside
// the active phase.
func (r *Room) CurrentPlayer() *Player {
	if r.phase != PhaseActive || len(r.players) == 0 {
		return nil
	}
	return r.players[r.turn]
}

// FindPlayer returns the participant with the given ID, or nil.
func (r *Room) FindPlayer(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AddPlayer appends a participant. Joining is only allowed in the lobby.
func (r *Room) AddPlayer(p *Player) error {
	if r.phase != PhaseLobby {
		return ErrGameInProgress
	}
	r.players = append(r.players, p)
	return nil
}

// Start moves the room into the active phase with the turn on the host.
// Only the host may start, and only with enough players.
func (r *Room) Start(actorID string, minPlayers int) error {
	if r.phase != PhaseLobby {
		return ErrGameInProgress
	}
	if host := r.Host(); host == nil || host.ID != actorID {
		return ErrNotHost
	}
	if len(r.players) < minPlayers {
		return ErrInsufficientPlayers
	}
	r.phase = PhaseActive
	r.turn = 0
	return nil
}

// CallResult describes the outcome of a valid number call.
type CallResult struct {
	Value  int
	Caller *Player
	Winner *Player // non-nil when the caller won; the game is finished
	Next   *Player // the new turn holder; nil when Winner is set
}

// SelectNumber resolves a call by the acting participant: the value at
// index on the actor's own board is marked on every participant's board
// wherever it occurs. The win check runs against the caller's marks
// only; a participant can only win on their own call. On a win the room
// is finished, otherwise the turn advances.
func (r *Room) SelectNumber(actorID string, index int) (CallResult, error) {
	if index < 0 || index >= BoardCells {
		return CallResult{}, ErrInvalidCell
	}

	current := r.CurrentPlayer()
	if current == nil || current.ID != actorID {
		return CallResult{}, ErrNotYourTurn
	}

	value := current.Board[index]
	for _, p := range r.players {
		// Each board is a permutation, so the value occurs exactly once.
		if idx := p.Board.IndexOf(value); idx >= 0 && !p.Marked[idx] {
			p.Marked[idx] = true
		}
	}

	result := CallResult{Value: value, Caller: current}

	if IsWinning(current.Marked) {
		r.phase = PhaseFinished
		result.Winner = current
		return result, nil
	}

	r.turn = (r.turn + 1) % len(r.players)
	result.Next = r.players[r.turn]
	return result, nil
}

// RemovePlayer removes the participant with the given ID. It returns the
// removed participant (nil when absent) and the newly promoted host when
// the departed player held index 0 with others remaining. Removal keeps
// the turn pointer valid while a game is active.
func (r *Room) RemovePlayer(id string) (removed, newHost *Player) {
	idx := -1
	for i, p := range r.players {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil
	}

	removed = r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)

	if len(r.players) == 0 {
		return removed, nil
	}

	if idx == 0 {
		newHost = r.players[0]
	}

	if r.phase == PhaseActive {
		if idx < r.turn {
			r.turn--
		}
		if r.turn >= len(r.players) {
			r.turn = 0
		}
	}

	return removed, newHost
}
