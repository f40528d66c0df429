package memory

import (
	"sync"

	"telegram-gpt-relay/internal/domain"
)

// DefaultMaxHistory is the window size used when none is configured.
const DefaultMaxHistory = 20

type Store struct {
	mu            sync.Mutex
	conversations map[int64][]domain.Turn
	maxHistory    int
}

func NewStore(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{
		conversations: make(map[int64][]domain.Turn),
		maxHistory:    maxHistory,
	}
}

func (s *Store) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[userID] = []domain.Turn{}
}

func (s *Store) AppendUser(userID int64, text string) []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.append(s.conversations[userID], domain.Turn{
		Role:    domain.RoleUser,
		Content: text,
	})
	s.conversations[userID] = history

	return append([]domain.Turn(nil), history...)
}

func (s *Store) AppendAssistant(userID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.conversations[userID]
	if !ok {
		return
	}
	s.conversations[userID] = s.append(history, domain.Turn{
		Role:    domain.RoleAssistant,
		Content: text,
	})
}

// History returns a copy of the user's current window, or nil for an
// unknown user.
func (s *Store) History(userID int64) []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.conversations[userID]
	if !ok {
		return nil
	}
	return append([]domain.Turn{}, history...)
}

// append must be called with s.mu held. The window is copied into a fresh
// slice on eviction so that trimmed turns are not pinned by the backing array.
func (s *Store) append(history []domain.Turn, turn domain.Turn) []domain.Turn {
	history = append(history, turn)
	if over := len(history) - s.maxHistory; over > 0 {
		history = append(make([]domain.Turn, 0, s.maxHistory), history[over:]...)
	}
	return history
}
