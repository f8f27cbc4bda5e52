package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned (wrapped) when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned (wrapped) when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// User represents a registered user.
type User struct {
	ID           int64
	Username     string // always lowercase
	PasswordHash string
	CreatedAt    time.Time
}

// Session links an issued session token to a user.
type Session struct {
	ID        string // uuid, equals the token's jti claim
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Topic is a category label attached to rooms.
type Topic struct {
	ID   int64
	Name string
}

// Room represents a discussion room.
type Room struct {
	ID          int64
	Name        string
	Description string
	TopicID     int64
	TopicName   string // joined from topics
	HostID      int64
	HostName    string // joined from users
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Message represents a persisted post in a room.
type Message struct {
	ID        int64
	RoomID    int64
	RoomName  string // joined from rooms
	UserID    int64
	Username  string // joined from users
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomUpdate carries the mutable room fields.
type RoomUpdate struct {
	Name        string
	Description string
	TopicID     int64
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by exact username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// SessionStore handles login sessions.
type SessionStore interface {
	// CreateSession records a new session.
	CreateSession(ctx context.Context, sess *Session) error

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, id string) (*Session, error)

	// DeleteSession removes a session. Deleting a missing session is not an error.
	DeleteSession(ctx context.Context, id string) error
}

// TopicStore handles topic persistence.
type TopicStore interface {
	// GetOrCreateTopic returns the topic with the given name (case-insensitive),
	// creating it if absent.
	GetOrCreateTopic(ctx context.Context, name string) (*Topic, error)

	// ListTopics lists all topics alphabetically.
	ListTopics(ctx context.Context) ([]*Topic, error)
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a room and enrolls the host as its first participant.
	CreateRoom(ctx context.Context, name, description string, topicID, hostID int64) (*Room, error)

	// GetRoomByID retrieves a room by ID.
	GetRoomByID(ctx context.Context, id int64) (*Room, error)

	// UpdateRoom overwrites the mutable fields of a room and bumps updated_at.
	UpdateRoom(ctx context.Context, id int64, upd RoomUpdate) (*Room, error)

	// DeleteRoom removes a room together with its messages and participants.
	DeleteRoom(ctx context.Context, id int64) error

	// SearchRooms lists rooms whose topic name, name or description contains
	// query, case-insensitively. An empty query matches every room.
	SearchRooms(ctx context.Context, query string) ([]*Room, error)

	// ListRoomsByHost lists rooms hosted by a user.
	ListRoomsByHost(ctx context.Context, hostID int64) ([]*Room, error)

	// ListParticipants lists the participants of a room in join order.
	ListParticipants(ctx context.Context, roomID int64) ([]*User, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// PostMessage persists a message and adds its author to the room's
	// participants in one transaction. msg.ID and timestamps are filled in.
	PostMessage(ctx context.Context, msg *Message) error

	// GetMessageByID retrieves a message by ID.
	GetMessageByID(ctx context.Context, id int64) (*Message, error)

	// DeleteMessage removes a message.
	DeleteMessage(ctx context.Context, id int64) error

	// ListRoomMessages lists a room's messages oldest first.
	ListRoomMessages(ctx context.Context, roomID int64) ([]*Message, error)

	// ListRecentMessages lists all messages newest first.
	ListRecentMessages(ctx context.Context) ([]*Message, error)

	// ListUserMessages lists a user's messages newest first.
	ListUserMessages(ctx context.Context, userID int64) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	SessionStore
	TopicStore
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
