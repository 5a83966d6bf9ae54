package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/parley-chat/parley/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the default backend
// when no DATABASE_URL is configured.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/parley.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/parley.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist. The UNIQUE constraint on
// participants.name backs the application-level uniqueness check, so
// concurrent identical registrations cannot both succeed.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS participants (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		last_status INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
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

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateParticipant inserts a new participant record.
func (s *SQLiteStore) CreateParticipant(ctx context.Context, p *models.Participant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants (id, name, last_status)
		VALUES (?, ?, ?)
	`, p.ID.String(), p.Name, p.LastStatus.UnixMilli())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateName
		}
		return err
	}
	return nil
}

// GetParticipant retrieves a participant by name. Returns (nil, nil) when no
// participant with that name exists.
func (s *SQLiteStore) GetParticipant(ctx context.Context, name string) (*models.Participant, error) {
	p := &models.Participant{}
	var idStr string
	var lastStatus int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, last_status
		FROM participants WHERE name = ?
	`, name).Scan(&idStr, &p.Name, &lastStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.ID = uuid.MustParse(idStr)
	p.LastStatus = time.UnixMilli(lastStatus)
	return p, nil
}

// ListParticipants retrieves all participants. The result is never nil.
func (s *SQLiteStore) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
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
func (s *SQLiteStore) TouchParticipant(ctx context.Context, name string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE participants SET last_status = ? WHERE name = ?
	`, at.UnixMilli(), name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListStaleParticipants retrieves participants whose last_status is strictly
// before the cutoff.
func (s *SQLiteStore) ListStaleParticipants(ctx context.Context, cutoff time.Time) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, last_status FROM participants WHERE last_status < ?
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
func (s *SQLiteStore) DeleteStaleParticipants(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM participants WHERE last_status < ?
	`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertMessage appends a single message to the log.
func (s *SQLiteStore) InsertMessage(ctx context.Context, m *models.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender, recipient, body, kind, wall_time)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.From, m.To, m.Text, m.Type, m.Time)
	return err
}

// InsertMessages appends a batch of messages in one transaction.
func (s *SQLiteStore) InsertMessages(ctx context.Context, msgs []models.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range msgs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, sender, recipient, body, kind, wall_time)
			VALUES (?, ?, ?, ?, ?, ?)
		`, m.ID, m.From, m.To, m.Text, m.Type, m.Time)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListMessagesFor retrieves the most recent limit messages visible to user,
// returned oldest-first in insertion order.
func (s *SQLiteStore) ListMessagesFor(ctx context.Context, user string, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, recipient, body, kind, wall_time FROM (
			SELECT seq, id, sender, recipient, body, kind, wall_time
			FROM messages
			WHERE recipient = ? OR recipient = ? OR (sender = ? AND kind = ?) OR kind = ?
			ORDER BY seq DESC
			LIMIT ?
		) AS recent ORDER BY seq ASC
	`, models.Broadcast, user, user, models.TypePrivate, models.TypePublic, limit)
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
