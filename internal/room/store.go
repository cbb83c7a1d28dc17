// internal/room/store.go
package room

import (
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/nrujac/gamehub/internal/conn"
	"github.com/nrujac/gamehub/internal/engine"
	"github.com/nrujac/gamehub/internal/errs"
)

// Store manages the active rooms in memory. Room ids are uuids, so an id is
// never reused after destruction and in-flight messages for a dead room
// resolve to NotFound rather than a different room.
//
// The store lock guards only the map; room mutations take the room's own
// lock, so activity in one room never serializes another.
type Store struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	engines *engine.Registry

	// OnFinished, when set, is installed on every room the store creates.
	// Callers that attach their own hook (tournaments) wrap it rather than
	// replace it.
	OnFinished func(r *Room, winner string)
}

func NewStore(engines *engine.Registry) *Store {
	return &Store{
		rooms:   make(map[string]*Room),
		engines: engines,
	}
}

// NewRoom registers an empty waiting room. Callers that need to link the
// room to a tournament match or hook OnFinished do so before seating anyone.
// The room auto-deletes from the store when its last member leaves.
func (s *Store) NewRoom(name string, gameType engine.GameType) (*Room, error) {
	eng, err := s.engines.New(gameType)
	if err != nil {
		return nil, err
	}

	r := New(uuid.NewString(), name, eng)
	r.OnEmpty = func(roomID string) { s.Delete(roomID) }
	r.OnFinished = s.OnFinished

	s.mu.Lock()
	s.rooms[r.ID] = r
	s.mu.Unlock()
	log.Printf("store: created room %s (%s)", r.ID, gameType)
	return r, nil
}

// Create builds a room for the given game type and seats the creator in the
// first seat.
func (s *Store) Create(name string, gameType engine.GameType, creator *conn.Connection) (*Room, error) {
	r, err := s.NewRoom(name, gameType)
	if err != nil {
		return nil, err
	}
	if _, err := r.AddPlayer(creator); err != nil {
		s.Delete(r.ID)
		return nil, err
	}
	return r, nil
}

// CreateSeated builds a started room with both connections already seated.
// Used by invitation acceptance, rematch resolution, and tournament round
// materialization, which all seat two known players at once.
func (s *Store) CreateSeated(name string, gameType engine.GameType, p1, p2 *conn.Connection) (*Room, error) {
	r, err := s.Create(name, gameType, p1)
	if err != nil {
		return nil, err
	}
	if _, err := r.AddPlayer(p2); err != nil {
		s.Delete(r.ID)
		return nil, err
	}
	return r, nil
}

// Get looks up a live room.
func (s *Store) Get(id string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, errs.New(errs.NotFound, "room %s not found", id)
	}
	return r, nil
}

// Delete removes a room from the store. The room object itself is left to
// drain; no id reuse means stale references stay unambiguous.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; ok {
		delete(s.rooms, id)
		log.Printf("store: deleted room %s", id)
	}
}

// Rooms snapshots the current room set.
func (s *Store) Rooms() []*Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}

// Summaries recomputes the public rooms-list view. The store lock is not
// held while summarizing individual rooms.
func (s *Store) Summaries() []Summary {
	rooms := s.Rooms()
	out := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Summarize())
	}
	return out
}
