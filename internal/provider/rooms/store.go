// Package rooms serves room bookings from SQLite. Each room is a resource;
// its sub-id is the room id.
package rooms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrRoomNotFound is returned when a room id has no row.
var ErrRoomNotFound = errors.New("room not found")

// Room is a bookable room.
type Room struct {
	ID          string
	Name        string
	Description string
}

// Meeting is one booking of a room.
type Meeting struct {
	ID        string
	RoomID    string
	Title     string
	Organizer string
	Category  string
	StartsAt  time.Time
	EndsAt    time.Time
}

// Store provides access to the rooms database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations. Use
// ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("rooms: create db directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("rooms: open db: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory:
	// databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("rooms: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		title TEXT NOT NULL,
		organizer TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		starts_at INTEGER NOT NULL,
		ends_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_meetings_room_start ON meetings(room_id, starts_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// PutRoom inserts or replaces a room.
func (s *Store) PutRoom(ctx context.Context, r Room) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (id, name, description) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description`,
		r.ID, r.Name, r.Description)
	if err != nil {
		return fmt.Errorf("rooms: put room %q: %w", r.ID, err)
	}
	return nil
}

// GetRoom returns the room with id, or ErrRoomNotFound.
func (s *Store) GetRoom(ctx context.Context, id string) (Room, error) {
	var r Room
	err := s.db.QueryRowContext(ctx, `SELECT id, name, description FROM rooms WHERE id = ?`, id).
		Scan(&r.ID, &r.Name, &r.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return Room{}, ErrRoomNotFound
	}
	if err != nil {
		return Room{}, fmt.Errorf("rooms: get room %q: %w", id, err)
	}
	return r, nil
}

// AddMeeting stores m, assigning an id when empty.
func (s *Store) AddMeeting(ctx context.Context, m Meeting) (Meeting, error) {
	if m.EndsAt.Before(m.StartsAt) {
		return Meeting{}, fmt.Errorf("rooms: meeting ends before it starts")
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meetings (id, room_id, title, organizer, category, starts_at, ends_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.RoomID, m.Title, m.Organizer, m.Category, m.StartsAt.Unix(), m.EndsAt.Unix())
	if err != nil {
		return Meeting{}, fmt.Errorf("rooms: add meeting: %w", err)
	}
	return m, nil
}

// MeetingsBetween returns meetings of the given rooms that overlap [t1, t2),
// ordered by room and start time.
func (s *Store) MeetingsBetween(ctx context.Context, roomIDs []string, t1, t2 time.Time) ([]Meeting, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(roomIDs)), ",")
	args := make([]any, 0, len(roomIDs)+2)
	for _, id := range roomIDs {
		args = append(args, id)
	}
	args = append(args, t2.Unix(), t1.Unix())

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, title, organizer, category, starts_at, ends_at
		 FROM meetings
		 WHERE room_id IN (`+placeholders+`) AND starts_at < ? AND ends_at >= ?
		 ORDER BY room_id, starts_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("rooms: query meetings: %w", err)
	}
	defer rows.Close()

	var out []Meeting
	for rows.Next() {
		var m Meeting
		var start, end int64
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Title, &m.Organizer, &m.Category, &start, &end); err != nil {
			return nil, fmt.Errorf("rooms: scan meeting: %w", err)
		}
		m.StartsAt = time.Unix(start, 0)
		m.EndsAt = time.Unix(end, 0)
		out = append(out, m)
	}
	return out, rows.Err()
}
