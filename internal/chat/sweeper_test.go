package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store"
)

func addParticipant(t *testing.T, st *store.MemoryStore, name string, lastStatus time.Time) {
	t.Helper()
	err := st.CreateParticipant(context.Background(), &models.Participant{
		ID:         uuid.New(),
		Name:       name,
		LastStatus: lastStatus,
	})
	require.NoError(t, err)
}

func TestRunOnceEvictsStaleAndRecordsDeparture(t *testing.T) {
	req := require.New(t)
	st := store.NewMemoryStore()
	addParticipant(t, st, "Alice", time.Now().Add(-time.Minute))
	addParticipant(t, st, "Bob", time.Now())

	sweeper := NewSweeper(st, zerolog.Nop(), 15*time.Second, 10*time.Second)

	evicted, err := sweeper.RunOnce(context.Background())
	req.NoError(err)
	req.Equal(1, evicted)

	participants, err := st.ListParticipants(context.Background())
	req.NoError(err)
	req.Len(participants, 1)
	req.Equal("Bob", participants[0].Name)

	msgs, err := st.ListMessagesFor(context.Background(), "Bob", 10)
	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("Alice", msgs[0].From)
	req.Equal(models.Broadcast, msgs[0].To)
	req.Equal("left", msgs[0].Text)
	req.Equal(models.TypeStatus, msgs[0].Type)
}

func TestRunOnceNothingStale(t *testing.T) {
	req := require.New(t)
	st := store.NewMemoryStore()
	addParticipant(t, st, "Alice", time.Now())

	sweeper := NewSweeper(st, zerolog.Nop(), 15*time.Second, 10*time.Second)

	evicted, err := sweeper.RunOnce(context.Background())
	req.NoError(err)
	req.Zero(evicted)

	msgs, err := st.ListMessagesFor(context.Background(), "Alice", 10)
	req.NoError(err)
	req.Empty(msgs)
}

func TestRunOnceEvictsAllStaleInOnePass(t *testing.T) {
	req := require.New(t)
	st := store.NewMemoryStore()
	old := time.Now().Add(-time.Hour)
	addParticipant(t, st, "Alice", old)
	addParticipant(t, st, "Bob", old)
	addParticipant(t, st, "Carol", old)

	sweeper := NewSweeper(st, zerolog.Nop(), 15*time.Second, 10*time.Second)

	evicted, err := sweeper.RunOnce(context.Background())
	req.NoError(err)
	req.Equal(3, evicted)

	participants, err := st.ListParticipants(context.Background())
	req.NoError(err)
	req.Empty(participants)

	msgs, err := st.ListMessagesFor(context.Background(), "anyone", 10)
	req.NoError(err)
	req.Len(msgs, 3)
	for _, m := range msgs {
		req.Equal("left", m.Text)
		req.Equal(models.TypeStatus, m.Type)
	}
}

func TestRunOnceIsIdempotentOnceSwept(t *testing.T) {
	req := require.New(t)
	st := store.NewMemoryStore()
	addParticipant(t, st, "Alice", time.Now().Add(-time.Minute))

	sweeper := NewSweeper(st, zerolog.Nop(), 15*time.Second, 10*time.Second)

	evicted, err := sweeper.RunOnce(context.Background())
	req.NoError(err)
	req.Equal(1, evicted)

	evicted, err = sweeper.RunOnce(context.Background())
	req.NoError(err)
	req.Zero(evicted)

	msgs, err := st.ListMessagesFor(context.Background(), "anyone", 10)
	req.NoError(err)
	req.Len(msgs, 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	st := store.NewMemoryStore()
	sweeper := NewSweeper(st, zerolog.Nop(), 5*time.Millisecond, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
