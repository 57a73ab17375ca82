// Package store persists users and events and keeps the cross references
// between them.
package store

import (
	"context"
	"errors"

	model "github.com/jlynch25/eventreg/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a looked up record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a write would break a uniqueness rule:
	// a taken email, or a reference that is already present.
	ErrDuplicate = errors.New("store: duplicate")
)

// Store is the persistence boundary used by the service layer.
type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	FindUser(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	CreateEvent(ctx context.Context, event *model.Event) error
	FindEvent(ctx context.Context, id primitive.ObjectID) (*model.Event, error)
	// FindEvents returns the events matching ids in no particular order.
	// Missing ids are silently skipped.
	FindEvents(ctx context.Context, ids []primitive.ObjectID) ([]model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)

	// PushRegisteredEvent appends eventID to the user's registered events.
	// It returns ErrDuplicate if the reference is already there and
	// ErrNotFound if the user does not exist.
	PushRegisteredEvent(ctx context.Context, userID, eventID primitive.ObjectID) error
	// PushParticipant appends userID to the event's participants, with the
	// same error contract as PushRegisteredEvent.
	PushParticipant(ctx context.Context, eventID, userID primitive.ObjectID) error

	// RunInTransaction runs fn so that its writes are applied together or
	// not at all, when the backend supports it.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var (
	_ Store = (*MongoStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
