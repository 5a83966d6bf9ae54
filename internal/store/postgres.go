package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool and
// initializes the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist. Participant names carry a
// UNIQUE constraint, same guarantee as the SQLite backend.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS participants (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		last_status BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT UNIQUE NOT NULL,
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		body TEXT NOT NULL,
		kind TEXT NOT NULL,
		wall_time TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_participants_last_status ON participants(last_status);
	CREATE INDEX IF NOT EXISTS idx_messages_visibility ON messages(recipient, sender, kind);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateParticipant inserts a new participant record.
func (s *PostgresStore) CreateParticipant(ctx context.Context, p *models.Participant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO participants (id, name, last_status)
		VALUES ($1, $2, $3)
	`, p.ID.String(), p.Name, p.LastStatus.UnixMilli())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateName
		}
		return err
	}
	return nil
}

// GetParticipant retrieves a participant by name. Returns (nil, nil) when no
// participant with that name exists.
func (s *PostgresStore) GetParticipant(ctx context.Context, name string) (*models.Participant, error) {
	p := &models.Participant{}
	var idStr string
	var lastStatus int64
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, last_status
		FROM participants WHERE name = $1
	`, name).Scan(&idStr, &p.Name, &lastStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.ID = uuid.MustParse(idStr)
	p.LastStatus = time.UnixMilli(lastStatus)
	return p, nil
}

// ListParticipants retrieves all participants. The result is never nil.
func (s *PostgresStore) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, last_status FROM participants ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		var idStr string
		var lastStatus int64
		if err := rows.Scan(&idStr, &p.Name, &lastStatus); err != nil {
			return nil, err
		}
		p.ID = uuid.MustParse(idStr)
		p.LastStatus = time.UnixMilli(lastStatus)
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// TouchParticipant persists a new last_status for the named participant.
// Returns false when the participant does not exist.
func (s *PostgresStore) TouchParticipant(ctx context.Context, name string, at time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE participants SET last_status = $1 WHERE name = $2
	`, at.UnixMilli(), name)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListStaleParticipants retrieves participants whose last_status is strictly
// before the cutoff.
func (s *PostgresStore) ListStaleParticipants(ctx context.Context, cutoff time.Time) ([]models.Participant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, last_status FROM participants WHERE last_status < $1
	`, cutoff.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		var idStr string
		var lastStatus int64
		if err := rows.Scan(&idStr, &p.Name, &lastStatus); err != nil {
			return nil, err
		}
		p.ID = uuid.MustParse(idStr)
		p.LastStatus = time.UnixMilli(lastStatus)
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// DeleteStaleParticipants removes participants whose last_status is strictly
// before the cutoff and reports how many were removed.
func (s *PostgresStore) DeleteStaleParticipants(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM participants WHERE last_status < $1
	`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InsertMessage appends a single message to the log.
func (s *PostgresStore) InsertMessage(ctx context.Context, m *models.Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, sender, recipient, body, kind, wall_time)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.From, m.To, m.Text, m.Type, m.Time)
	return err
}

// InsertMessages appends a batch of messages in one transaction.
func (s *PostgresStore) InsertMessages(ctx context.Context, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, m := range msgs {
		_, err := tx.Exec(ctx, `
			INSERT INTO messages (id, sender, recipient, body, kind, wall_time)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, m.ID, m.From, m.To, m.Text, m.Type, m.Time)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListMessagesFor retrieves the most recent limit messages visible to user,
// returned oldest-first in insertion order.
func (s *PostgresStore) ListMessagesFor(ctx context.Context, user string, limit int) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, sender, recipient, body, kind, wall_time FROM (
			SELECT seq, id, sender, recipient, body, kind, wall_time
			FROM messages
			WHERE recipient = $1 OR recipient = $2 OR (sender = $2 AND kind = $3) OR kind = $4
			ORDER BY seq DESC
			LIMIT $5
		) AS recent ORDER BY seq ASC
	`, models.Broadcast, user, models.TypePrivate, models.TypePublic, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.From, &m.To, &m.Text, &m.Type, &m.Time); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
