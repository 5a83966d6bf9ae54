package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/metrics"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store"
)

// Registry owns participant creation, uniqueness enforcement and presence
// refresh.
type Registry struct {
	store  store.DataStore
	logger zerolog.Logger
}

// NewRegistry creates a Registry backed by the given store.
func NewRegistry(st store.DataStore, logger zerolog.Logger) *Registry {
	return &Registry{store: st, logger: logger}
}

// Register creates a participant and appends its join notice. The two writes
// are not transactional: if the notice insert fails after the participant
// insert succeeded, registration still succeeds and the missing notice is
// logged. Names are matched exactly, with no trimming.
func (r *Registry) Register(ctx context.Context, name string) (*models.Participant, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	existing, err := r.store.GetParticipant(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflict
	}

	now := time.Now()
	p := &models.Participant{
		ID:         uuid.New(),
		Name:       name,
		LastStatus: now,
	}
	if err := r.store.CreateParticipant(ctx, p); err != nil {
		// The storage UNIQUE constraint closes the window between the
		// lookup above and this insert.
		if errors.Is(err, store.ErrDuplicateName) {
			return nil, ErrConflict
		}
		return nil, err
	}

	join := statusMessage(name, "joined", now)
	if err := r.store.InsertMessage(ctx, &join); err != nil {
		r.logger.Warn().Err(err).Str("name", name).Msg("join notice not recorded")
	}

	metrics.ParticipantsRegistered.Inc()
	return p, nil
}

// List returns all current participants. The slice is never nil.
func (r *Registry) List(ctx context.Context) ([]models.Participant, error) {
	return r.store.ListParticipants(ctx)
}

// RefreshPresence persists a new LastStatus for an existing participant.
// Returns ErrNotFound for an unknown name.
func (r *Registry) RefreshPresence(ctx context.Context, name string) error {
	found, err := r.store.TouchParticipant(ctx, name, time.Now())
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// statusMessage builds a system join/leave notice addressed to everyone.
func statusMessage(from, text string, at time.Time) models.Message {
	return models.Message{
		ID:   ulidNow(),
		From: from,
		To:   models.Broadcast,
		Text: text,
		Type: models.TypeStatus,
		Time: at.Format(models.TimeLayout),
	}
}
