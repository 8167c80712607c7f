package server

import (
	"sync"

	"github.com/conceptforge/bingo/internal/game"
)

// Registry is the process-wide mapping from room code to live room. It
// exclusively owns the set of rooms: created here, deleted here when
// their last participant departs. The map itself is guarded by its own
// lock so concurrent create/lookup/delete never corrupt the index; room
// contents are serialized separately by each room's own mutex.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*game.Room
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*game.Room)}
}

// Insert registers a room under its code. It fails when the code is
// already taken by a live room, so callers can collision-check freshly
// generated codes.
func (reg *Registry) Insert(room *game.Room) bool {
	code := game.NormalizeRoomCode(room.Code())

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, taken := reg.rooms[code]; taken {
		return false
	}
	reg.rooms[code] = room
	return true
}

// Get looks up a room by code, case-insensitively.
func (reg *Registry) Get(code string) (*game.Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[game.NormalizeRoomCode(code)]
	return room, ok
}

// Delete removes a room by code.
func (reg *Registry) Delete(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, game.NormalizeRoomCode(code))
}

// Rooms returns a snapshot of all live rooms. The departure sweep walks
// this snapshot rather than holding the registry lock across per-room
// work.
func (reg *Registry) Rooms() []*game.Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make([]*game.Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		out = append(out, room)
	}
	return out
}

// Len returns the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
