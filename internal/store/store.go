package store

import (
	"context"
	"errors"
	"time"

	"github.com/parley-chat/parley/internal/models"
)

// ErrDuplicateName is returned by CreateParticipant when the unique
// constraint on the participant name is violated.
var ErrDuplicateName = errors.New("participant name already exists")

// DataStore is the persistence gateway shared by the registry, the message
// log and the sweeper. SQLiteStore, PostgresStore and MemoryStore implement
// this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Participant operations
	CreateParticipant(ctx context.Context, p *models.Participant) error
	GetParticipant(ctx context.Context, name string) (*models.Participant, error)
	ListParticipants(ctx context.Context) ([]models.Participant, error)
	TouchParticipant(ctx context.Context, name string, at time.Time) (bool, error)
	ListStaleParticipants(ctx context.Context, cutoff time.Time) ([]models.Participant, error)
	DeleteStaleParticipants(ctx context.Context, cutoff time.Time) (int64, error)

	// Message operations
	InsertMessage(ctx context.Context, m *models.Message) error
	InsertMessages(ctx context.Context, msgs []models.Message) error
	ListMessagesFor(ctx context.Context, user string, limit int) ([]models.Message, error)
}
