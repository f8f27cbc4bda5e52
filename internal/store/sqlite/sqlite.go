package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/studybud-server/internal/store"
)

//go:embed schema.sql
var schema string

const dsnParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps
	// ":memory:" databases alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema to an in-memory database.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool limits before setup
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ApplySchema creates all tables and indexes if they do not exist yet.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Migrate applies the embedded schema to the store's database.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

func now() time.Time {
	return time.Now().UTC()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash, created_at)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash, now())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert user %q: %w", username, store.ErrConflict)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

const userColumns = `id, username, password_hash, created_at`

func scanUser(row scanner) (*store.User, error) {
	var user store.User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by exact username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// ==== SessionStore implementation ====

// CreateSession records a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *store.Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now()
	}
	query := `
		INSERT INTO sessions (id, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, sess.ID, sess.UserID, sess.ExpiresAt.UTC(), sess.CreatedAt); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*store.Session, error) {
	query := `
		SELECT id, user_id, expires_at, created_at
		FROM sessions
		WHERE id = ?
	`
	var sess store.Session
	err := s.db.QueryRowContext(ctx, query, id).Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ==== TopicStore implementation ====

// GetOrCreateTopic returns the topic with the given name, creating it if absent.
// The name column uses NOCASE collation, so "Go" and "go" are the same topic.
func (s *SQLiteStore) GetOrCreateTopic(ctx context.Context, name string) (*store.Topic, error) {
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO topics (name) VALUES (?)`, name); err != nil {
		return nil, fmt.Errorf("insert topic: %w", err)
	}

	var topic store.Topic
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM topics WHERE name = ?`, name).Scan(&topic.ID, &topic.Name)
	if err != nil {
		return nil, fmt.Errorf("query topic: %w", err)
	}
	return &topic, nil
}

// ListTopics lists all topics alphabetically.
func (s *SQLiteStore) ListTopics(ctx context.Context) ([]*store.Topic, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM topics ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var topics []*store.Topic
	for rows.Next() {
		var topic store.Topic
		if err := rows.Scan(&topic.ID, &topic.Name); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, &topic)
	}

	return topics, rows.Err()
}

// ==== RoomStore implementation ====

const roomSelect = `
	SELECT r.id, r.name, r.description, r.topic_id, t.name, r.host_id, u.username, r.created_at, r.updated_at
	FROM rooms r
	JOIN topics t ON t.id = r.topic_id
	JOIN users u ON u.id = r.host_id
`

const roomOrder = ` ORDER BY r.updated_at DESC, r.created_at DESC, r.id DESC`

func scanRoom(row scanner) (*store.Room, error) {
	var room store.Room
	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Description,
		&room.TopicID,
		&room.TopicName,
		&room.HostID,
		&room.HostName,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *SQLiteStore) queryRooms(ctx context.Context, query string, args ...any) ([]*store.Room, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

// CreateRoom creates a room and enrolls the host as its first participant.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name, description string, topicID, hostID int64) (*store.Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	ts := now()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO rooms (name, description, topic_id, host_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, name, description, topicID, hostID, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	roomID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO room_participants (room_id, user_id, joined_at)
		VALUES (?, ?, ?)
	`, roomID, hostID, ts); err != nil {
		return nil, fmt.Errorf("add host to participants: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetRoomByID(ctx, roomID)
}

// GetRoomByID retrieves a room by ID.
func (s *SQLiteStore) GetRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	room, err := scanRoom(s.db.QueryRowContext(ctx, roomSelect+` WHERE r.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	return room, nil
}

// UpdateRoom overwrites the mutable fields of a room and bumps updated_at.
func (s *SQLiteStore) UpdateRoom(ctx context.Context, id int64, upd store.RoomUpdate) (*store.Room, error) {
	query := `
		UPDATE rooms
		SET name = ?, description = ?, topic_id = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, upd.Name, upd.Description, upd.TopicID, now(), id)
	if err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("room %d: %w", id, store.ErrNotFound)
	}

	return s.GetRoomByID(ctx, id)
}

// DeleteRoom removes a room. Messages and participants cascade.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("room %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// escapeLike makes % and _ in user input match literally.
func escapeLike(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(q)
}

// SearchRooms lists rooms matching query on topic name, name or description.
// SQLite's LIKE folds ASCII case only.
func (s *SQLiteStore) SearchRooms(ctx context.Context, query string) ([]*store.Room, error) {
	pattern := "%" + escapeLike(query) + "%"
	where := `
		WHERE t.name LIKE ? ESCAPE '\'
		   OR r.name LIKE ? ESCAPE '\'
		   OR r.description LIKE ? ESCAPE '\'
	`
	return s.queryRooms(ctx, roomSelect+where+roomOrder, pattern, pattern, pattern)
}

// ListRoomsByHost lists rooms hosted by a user.
func (s *SQLiteStore) ListRoomsByHost(ctx context.Context, hostID int64) ([]*store.Room, error) {
	return s.queryRooms(ctx, roomSelect+` WHERE r.host_id = ?`+roomOrder, hostID)
}

// ListParticipants lists the participants of a room in join order.
func (s *SQLiteStore) ListParticipants(ctx context.Context, roomID int64) ([]*store.User, error) {
	query := `
		SELECT u.id, u.username, u.password_hash, u.created_at
		FROM room_participants rp
		JOIN users u ON u.id = rp.user_id
		WHERE rp.room_id = ?
		ORDER BY rp.joined_at ASC, u.id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// ==== MessageStore implementation ====

const messageSelect = `
	SELECT m.id, m.room_id, r.name, m.user_id, u.username, m.body, m.created_at, m.updated_at
	FROM messages m
	JOIN rooms r ON r.id = m.room_id
	JOIN users u ON u.id = m.user_id
`

func scanMessage(row scanner) (*store.Message, error) {
	var msg store.Message
	err := row.Scan(
		&msg.ID,
		&msg.RoomID,
		&msg.RoomName,
		&msg.UserID,
		&msg.Username,
		&msg.Body,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// PostMessage persists a message and adds its author to the room's participants.
func (s *SQLiteStore) PostMessage(ctx context.Context, msg *store.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now()
	}
	msg.UpdatedAt = msg.CreatedAt

	result, err := tx.ExecContext(ctx, `
		INSERT INTO messages (room_id, user_id, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.RoomID, msg.UserID, msg.Body, msg.CreatedAt, msg.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("room %d: %w", msg.RoomID, store.ErrNotFound)
		}
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO room_participants (room_id, user_id, joined_at)
		VALUES (?, ?, ?)
	`, msg.RoomID, msg.UserID, msg.CreatedAt); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	msg.ID = id
	return nil
}

// GetMessageByID retrieves a message by ID.
func (s *SQLiteStore) GetMessageByID(ctx context.Context, id int64) (*store.Message, error) {
	msg, err := scanMessage(s.db.QueryRowContext(ctx, messageSelect+` WHERE m.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	return msg, nil
}

// DeleteMessage removes a message. Participation is left untouched.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("message %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// ListRoomMessages lists a room's messages oldest first.
func (s *SQLiteStore) ListRoomMessages(ctx context.Context, roomID int64) ([]*store.Message, error) {
	return s.queryMessages(ctx, messageSelect+`
		WHERE m.room_id = ?
		ORDER BY m.created_at ASC, m.id ASC
	`, roomID)
}

// ListRecentMessages lists all messages newest first.
func (s *SQLiteStore) ListRecentMessages(ctx context.Context) ([]*store.Message, error) {
	return s.queryMessages(ctx, messageSelect+` ORDER BY m.created_at DESC, m.id DESC`)
}

// ListUserMessages lists a user's messages newest first.
func (s *SQLiteStore) ListUserMessages(ctx context.Context, userID int64) ([]*store.Message, error) {
	return s.queryMessages(ctx, messageSelect+`
		WHERE m.user_id = ?
		ORDER BY m.created_at DESC, m.id DESC
	`, userID)
}
