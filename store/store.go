// Package store defines the persistence contract shared by the database adapters
// and the errors every layer above it reports.
package store

import (
	"baseroom/types"
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("you are not allowed for this action")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrDuplicate        = errors.New("already taken")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Adapter is implemented by every database backend. Each mutating method runs
// as a single transaction.
type Adapter interface {
	Close() error

	UserCreate(ctx context.Context, user *types.User) error
	UserGet(ctx context.Context, id int) (*types.User, error)
	UserGetByUsername(ctx context.Context, username string) (*types.User, error)
	UserUpdate(ctx context.Context, user *types.User) error

	// TopicGetOrCreate returns the topic named name, inserting it first if needed.
	TopicGetOrCreate(ctx context.Context, name string) (*types.Topic, error)
	// TopicsFilter returns topics whose name contains q. limit <= 0 means no limit.
	TopicsFilter(ctx context.Context, q string, limit int) ([]types.Topic, error)

	RoomCreate(ctx context.Context, hostID int, topicName, name, description string) (*types.Room, error)
	RoomGet(ctx context.Context, uuid string) (*types.Room, error)
	RoomUpdate(ctx context.Context, uuid, topicName, name, description string) (*types.Room, error)
	RoomDelete(ctx context.Context, uuid string) error
	// RoomsFilter matches q against room name, description and topic name.
	RoomsFilter(ctx context.Context, q string) ([]types.Room, error)
	RoomsByHost(ctx context.Context, userID int) ([]types.Room, error)
	RoomsByParticipant(ctx context.Context, userID int) ([]types.Room, error)

	// MessageCreate stores the message and adds its author to the room participants.
	MessageCreate(ctx context.Context, roomID, authorID int, body string) (*types.Message, error)
	MessageGet(ctx context.Context, uuid string) (*types.Message, error)
	MessageDelete(ctx context.Context, uuid string) error
	MessagesForRoom(ctx context.Context, roomID int) ([]types.Message, error)
	// MessagesFilter matches q against the topic name of each message's room.
	MessagesFilter(ctx context.Context, q string) ([]types.Message, error)
	MessagesByAuthor(ctx context.Context, userID int) ([]types.Message, error)

	ParticipantAdd(ctx context.Context, roomID, userID int) error
	ParticipantsForRoom(ctx context.Context, roomID int) ([]types.User, error)
}
