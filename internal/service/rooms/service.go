package rooms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/vovakirdan/studybud-server/internal/authz"
	"github.com/vovakirdan/studybud-server/internal/store"
)

// Common errors for room and message operations.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrNotAllowed      = errors.New("not allowed")
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidRoom     = errors.New("invalid room")
	ErrEmptyMessage    = errors.New("message body is empty")
)

const (
	maxNameLength        = 200
	maxDescriptionLength = 2000
)

// Service provides the discussion board's room and message logic.
type Service struct {
	store store.Store
}

// New creates a new rooms Service.
func New(st store.Store) *Service {
	return &Service{
		store: st,
	}
}

// Listing is the home page: matched rooms plus the topic and activity sidebars.
type Listing struct {
	Query     string
	Rooms     []*store.Room
	RoomCount int
	Topics    []*store.Topic
	Messages  []*store.Message
}

// RoomDetail is a room with its ordered thread and participants.
type RoomDetail struct {
	Room         *store.Room
	Messages     []*store.Message
	Participants []*store.User
}

// Profile is a user's public page.
type Profile struct {
	User     *store.User
	Rooms    []*store.Room
	Messages []*store.Message
	Topics   []*store.Topic
}

// RoomInput is the room form submission.
type RoomInput struct {
	Name        string
	Topic       string
	Description string
}

func (in RoomInput) normalize() (RoomInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Topic = strings.TrimSpace(in.Topic)
	in.Description = strings.TrimSpace(in.Description)

	switch {
	case in.Name == "":
		return in, fmt.Errorf("%w: name is required", ErrInvalidRoom)
	case utf8.RuneCountInString(in.Name) > maxNameLength:
		return in, fmt.Errorf("%w: name is too long", ErrInvalidRoom)
	case in.Topic == "":
		return in, fmt.Errorf("%w: topic is required", ErrInvalidRoom)
	case utf8.RuneCountInString(in.Topic) > maxNameLength:
		return in, fmt.Errorf("%w: topic is too long", ErrInvalidRoom)
	case utf8.RuneCountInString(in.Description) > maxDescriptionLength:
		return in, fmt.Errorf("%w: description is too long", ErrInvalidRoom)
	}
	return in, nil
}

// Browse returns the rooms matching query along with all topics and messages.
func (s *Service) Browse(ctx context.Context, query string) (*Listing, error) {
	query = strings.TrimSpace(query)

	rooms, err := s.store.SearchRooms(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search rooms: %w", err)
	}
	topics, err := s.store.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	messages, err := s.store.ListRecentMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return &Listing{
		Query:     query,
		Rooms:     rooms,
		RoomCount: len(rooms),
		Topics:    topics,
		Messages:  messages,
	}, nil
}

// Room loads a room with its messages in chronological order.
func (s *Service) Room(ctx context.Context, roomID int64) (*RoomDetail, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	messages, err := s.store.ListRoomMessages(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	participants, err := s.store.ListParticipants(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	return &RoomDetail{
		Room:         room,
		Messages:     messages,
		Participants: participants,
	}, nil
}

// PostMessage adds a message to a room and enrolls the author as participant.
func (s *Service) PostMessage(ctx context.Context, p *authz.Principal, roomID int64, body string) (*store.Message, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := s.getRoom(ctx, roomID); err != nil {
		return nil, err
	}

	msg := &store.Message{
		RoomID: roomID,
		UserID: p.UserID,
		Body:   body,
	}
	if err := s.store.PostMessage(ctx, msg); err != nil {
		// The room can disappear between the lookup and the insert.
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("post message: %w", err)
	}

	return msg, nil
}

// CreateRoom creates a room hosted by p, creating its topic if needed.
func (s *Service) CreateRoom(ctx context.Context, p *authz.Principal, in RoomInput) (*store.Room, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	topic, err := s.store.GetOrCreateTopic(ctx, in.Topic)
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}

	room, err := s.store.CreateRoom(ctx, in.Name, in.Description, topic.ID, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	return room, nil
}

// EditableRoom loads a room p is allowed to update or delete.
func (s *Service) EditableRoom(ctx context.Context, p *authz.Principal, roomID int64) (*store.Room, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !authz.CanModifyRoom(p, room) {
		return nil, ErrNotAllowed
	}
	return room, nil
}

// UpdateRoom changes a room's name, topic and description. The host is kept.
func (s *Service) UpdateRoom(ctx context.Context, p *authz.Principal, roomID int64, in RoomInput) (*store.Room, error) {
	if _, err := s.EditableRoom(ctx, p, roomID); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	topic, err := s.store.GetOrCreateTopic(ctx, in.Topic)
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}

	room, err := s.store.UpdateRoom(ctx, roomID, store.RoomUpdate{
		Name:        in.Name,
		Description: in.Description,
		TopicID:     topic.ID,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("update room: %w", err)
	}

	return room, nil
}

// DeleteRoom removes a room hosted by p.
func (s *Service) DeleteRoom(ctx context.Context, p *authz.Principal, roomID int64) error {
	if _, err := s.EditableRoom(ctx, p, roomID); err != nil {
		return err
	}
	if err := s.store.DeleteRoom(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

// DeletableMessage loads a message p is allowed to delete.
func (s *Service) DeletableMessage(ctx context.Context, p *authz.Principal, messageID int64) (*store.Message, error) {
	msg, err := s.store.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	if !authz.CanDeleteMessage(p, msg) {
		return nil, ErrNotAllowed
	}
	return msg, nil
}

// DeleteMessage removes a message written by p.
func (s *Service) DeleteMessage(ctx context.Context, p *authz.Principal, messageID int64) error {
	if _, err := s.DeletableMessage(ctx, p, messageID); err != nil {
		return err
	}
	if err := s.store.DeleteMessage(ctx, messageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// Profile loads a user's hosted rooms and messages.
func (s *Service) Profile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	rooms, err := s.store.ListRoomsByHost(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	messages, err := s.store.ListUserMessages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	topics, err := s.store.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}

	return &Profile{
		User:     user,
		Rooms:    rooms,
		Messages: messages,
		Topics:   topics,
	}, nil
}

func (s *Service) getRoom(ctx context.Context, roomID int64) (*store.Room, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}
