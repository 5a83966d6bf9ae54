package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/parley-chat/parley/internal/metrics"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store"
)

// MessageLog owns message creation, visibility filtering and bounded
// retrieval.
type MessageLog struct {
	store store.DataStore
}

// NewMessageLog creates a MessageLog backed by the given store.
func NewMessageLog(st store.DataStore) *MessageLog {
	return &MessageLog{store: st}
}

// Post appends a message with a server-assigned id and wall-clock time.
// An unknown sender is reported as a validation failure, same signal as a
// malformed body.
func (l *MessageLog) Post(ctx context.Context, from, to, text, msgType string) (*models.Message, error) {
	if from == "" {
		return nil, fmt.Errorf("%w: user header is required", ErrValidation)
	}
	if to == "" || text == "" {
		return nil, fmt.Errorf("%w: to and text are required", ErrValidation)
	}
	if msgType != models.TypePublic && msgType != models.TypePrivate {
		return nil, fmt.Errorf("%w: type must be %q or %q", ErrValidation, models.TypePublic, models.TypePrivate)
	}

	sender, err := l.store.GetParticipant(ctx, from)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, fmt.Errorf("%w: unknown sender %q", ErrValidation, from)
	}

	m := &models.Message{
		ID:   ulidNow(),
		From: from,
		To:   to,
		Text: text,
		Type: msgType,
		Time: time.Now().Format(models.TimeLayout),
	}
	if err := l.store.InsertMessage(ctx, m); err != nil {
		return nil, err
	}

	metrics.MessagesPosted.WithLabelValues(msgType).Inc()
	return m, nil
}

// List returns the most recent limit messages visible to user, oldest first.
// There is no default limit; a non-positive value is a validation failure.
func (l *MessageLog) List(ctx context.Context, user string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be a positive integer", ErrValidation)
	}
	return l.store.ListMessagesFor(ctx, user, limit)
}

// ulidNow returns a fresh lexically sortable message id.
func ulidNow() string {
	return ulid.Make().String()
}
