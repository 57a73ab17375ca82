// Package service holds the event registration business rules. Errors are
// gRPC status errors so every transport can map them the same way.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	model "github.com/jlynch25/eventreg/models"
	"github.com/jlynch25/eventreg/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Messages returned to clients.
const (
	MsgInvalidEventID    = "Invalid Event ID"
	MsgEventNotFound     = "Event not found"
	MsgUserNotFound      = "User not found"
	MsgAlreadyRegistered = "Already registered for this event"
	MsgRegistered        = "Registered successfully"
	MsgEmailTaken        = "Email taken"
	MsgServerError       = "Server error"
)

// Service implements the registration and event operations.
type Service struct {
	store store.Store
	log   *zap.Logger
	now   func() time.Time
}

// New returns a Service backed by s.
func New(s store.Store, log *zap.Logger) *Service {
	return &Service{store: s, log: log, now: time.Now}
}

// NewUser is the signup payload.
type NewUser struct {
	Name           string
	Email          string
	Password       string
	University     string
	Department     string
	UniversityYear string
}

// NewEvent is the payload for creating an event.
type NewEvent struct {
	Title       string
	Description string
	Location    string
	Date        time.Time
}

// CreateUser stores a new account with a hashed password.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("hash password", zap.String("email", email), zap.Error(err))
		return nil, status.Error(codes.Internal, MsgServerError)
	}

	user := &model.User{
		Name:           strings.TrimSpace(in.Name),
		Email:          email,
		Password:       string(hashedPassword),
		University:     in.University,
		Department:     in.Department,
		UniversityYear: in.UniversityYear,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, status.Error(codes.AlreadyExists, MsgEmailTaken)
		}
		s.log.Error("create user", zap.String("email", email), zap.Error(err))
		return nil, status.Error(codes.Internal, MsgServerError)
	}

	s.log.Info("user created", zap.String("user_id", user.ID.Hex()))
	return user, nil
}

// GetUser loads the profile of userID.
func (s *Service) GetUser(ctx context.Context, userID primitive.ObjectID) (*model.User, error) {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, status.Error(codes.NotFound, MsgUserNotFound)
		}
		s.log.Error("find user", zap.String("user_id", userID.Hex()), zap.Error(err))
		return nil, status.Error(codes.Internal, MsgServerError)
	}
	return user, nil
}

// CreateEvent stores a new event authored by userID.
func (s *Service) CreateEvent(ctx context.Context, userID primitive.ObjectID, in NewEvent) (*model.Event, error) {
	event := &model.Event{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Location:    in.Location,
		Date:        in.Date.UTC(),
		CreatedBy:   userID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		s.log.Error("create event", zap.Error(err))
		return nil, status.Error(codes.Internal, MsgServerError)
	}

	s.log.Info("event created",
		zap.String("event_id", event.ID.Hex()),
		zap.String("created_by", userID.Hex()))
	return event, nil
}

// GetEvent loads a single event by its hex id.
func (s *Service) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	oid, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, MsgInvalidEventID)
	}
	event, err := s.store.FindEvent(ctx, oid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, status.Error(codes.NotFound, MsgEventNotFound)
		}
		s.log.Error("find event", zap.String("event_id", eventID), zap.Error(err))
		return nil, status.Error(codes.Internal, MsgServerError)
	}
	return event, nil
}

// ListEvents returns every event ordered by date.
func (s *Service) ListEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		s.log.Error("list events", zap.Error(err))
		return nil, status.Error(codes.Internal, MsgServerError)
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}
