package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/parley-chat/parley/internal/models"
)

// MemoryStore is an in-memory DataStore. It backs tests as the substitution
// seam for the persistence gateway and doubles as a throwaway backend for
// local experiments. All methods are safe for concurrent use.
type MemoryStore struct {
	mu           sync.Mutex
	participants map[string]models.Participant
	messages     []models.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{participants: make(map[string]models.Participant)}
}

// Close is a no-op.
func (s *MemoryStore) Close() {}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// CreateParticipant inserts a new participant record.
func (s *MemoryStore) CreateParticipant(ctx context.Context, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[p.Name]; ok {
		return ErrDuplicateName
	}
	s.participants[p.Name] = *p
	return nil
}

// GetParticipant retrieves a participant by name. Returns (nil, nil) when no
// participant with that name exists.
func (s *MemoryStore) GetParticipant(ctx context.Context, name string) (*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[name]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// ListParticipants retrieves all participants ordered by name. The result is
// never nil.
func (s *MemoryStore) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participants := []models.Participant{}
	for _, p := range s.participants {
		participants = append(participants, p)
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].Name < participants[j].Name
	})
	return participants, nil
}

// TouchParticipant persists a new LastStatus for the named participant.
// Returns false when the participant does not exist.
func (s *MemoryStore) TouchParticipant(ctx context.Context, name string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[name]
	if !ok {
		return false, nil
	}
	p.LastStatus = at
	s.participants[name] = p
	return true, nil
}

// ListStaleParticipants retrieves participants whose LastStatus is strictly
// before the cutoff.
func (s *MemoryStore) ListStaleParticipants(ctx context.Context, cutoff time.Time) ([]models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stale := []models.Participant{}
	for _, p := range s.participants {
		if p.LastStatus.Before(cutoff) {
			stale = append(stale, p)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].Name < stale[j].Name
	})
	return stale, nil
}

// DeleteStaleParticipants removes participants whose LastStatus is strictly
// before the cutoff and reports how many were removed.
func (s *MemoryStore) DeleteStaleParticipants(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for name, p := range s.participants {
		if p.LastStatus.Before(cutoff) {
			delete(s.participants, name)
			deleted++
		}
	}
	return deleted, nil
}

// InsertMessage appends a single message to the log.
func (s *MemoryStore) InsertMessage(ctx context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, *m)
	return nil
}

// InsertMessages appends a batch of messages in insertion order.
func (s *MemoryStore) InsertMessages(ctx context.Context, msgs []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msgs...)
	return nil
}

// ListMessagesFor retrieves the most recent limit messages visible to user,
// returned oldest-first in insertion order.
func (s *MemoryStore) ListMessagesFor(ctx context.Context, user string, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := []models.Message{}
	for _, m := range s.messages {
		if visibleTo(m, user) {
			visible = append(visible, m)
		}
	}
	if len(visible) > limit {
		visible = visible[len(visible)-limit:]
	}
	return visible, nil
}

// visibleTo reports whether a message may be shown to user: broadcasts,
// messages addressed to the user, private messages the user sent, and all
// public messages.
func visibleTo(m models.Message, user string) bool {
	return m.To == models.Broadcast ||
		m.To == user ||
		(m.From == user && m.Type == models.TypePrivate) ||
		m.Type == models.TypePublic
}
