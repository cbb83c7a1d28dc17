// internal/tournament/store.go
package tournament

import (
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/nrujac/gamehub/internal/engine"
	"github.com/nrujac/gamehub/internal/errs"
)

// Store manages the active tournaments in memory. The store lock guards only
// the map; tournament mutations take each tournament's own lock.
type Store struct {
	mu          sync.Mutex
	tournaments map[string]*Tournament
}

func NewStore() *Store {
	return &Store{tournaments: make(map[string]*Tournament)}
}

// Create registers a waiting tournament with the creator as its first
// player. MaxPlayers must be a power of two between 2 and 64.
func (s *Store) Create(name string, gameType engine.GameType, maxPlayers int, creator string) (*Tournament, error) {
	if maxPlayers < 2 || maxPlayers > 64 || maxPlayers&(maxPlayers-1) != 0 {
		return nil, errs.New(errs.NotEligible, "maxPlayers must be a power of two between 2 and 64")
	}

	t := &Tournament{
		ID:         uuid.NewString(),
		Name:       name,
		GameType:   gameType,
		MaxPlayers: maxPlayers,
		Creator:    creator,
		Players:    []string{creator},
		Status:     StatusWaiting,
	}

	s.mu.Lock()
	s.tournaments[t.ID] = t
	s.mu.Unlock()
	log.Printf("tournament store: created %s (%s, %d players) by %s", t.ID, gameType, maxPlayers, creator)
	return t, nil
}

// Get looks up a live tournament.
func (s *Store) Get(id string) (*Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, errs.New(errs.NotFound, "tournament %s not found", id)
	}
	return t, nil
}

// Delete archives a tournament out of the store.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tournaments, id)
}

// Summaries recomputes the public tournaments-list view.
func (s *Store) Summaries() []Summary {
	s.mu.Lock()
	list := make([]*Tournament, 0, len(s.tournaments))
	for _, t := range s.tournaments {
		list = append(list, t)
	}
	s.mu.Unlock()

	out := make([]Summary, 0, len(list))
	for _, t := range list {
		out = append(out, t.Summarize())
	}
	return out
}
