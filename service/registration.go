package service

import (
	"context"
	"errors"

	model "github.com/jlynch25/eventreg/models"
	"github.com/jlynch25/eventreg/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Register adds eventID to the user's registered events and the user to the
// event's participants, and returns the user's updated list.
//
// Both writes run in one store transaction. The store appends only when the
// reference is absent, so a concurrent duplicate surfaces as AlreadyExists
// instead of a second entry.
func (s *Service) Register(ctx context.Context, userID primitive.ObjectID, eventID string) ([]primitive.ObjectID, error) {
	eventOID, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		s.log.Warn("invalid event id", zap.String("event_id", eventID))
		return nil, status.Error(codes.InvalidArgument, MsgInvalidEventID)
	}

	var registered []primitive.ObjectID
	err = s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.store.FindEvent(ctx, eventOID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return status.Error(codes.NotFound, MsgEventNotFound)
			}
			return err
		}

		user, err := s.store.FindUser(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return status.Error(codes.NotFound, MsgUserNotFound)
			}
			return err
		}

		if user.HasEvent(eventOID) {
			return status.Error(codes.AlreadyExists, MsgAlreadyRegistered)
		}

		if err := s.store.PushRegisteredEvent(ctx, userID, eventOID); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return status.Error(codes.AlreadyExists, MsgAlreadyRegistered)
			}
			return err
		}
		// a participant entry left behind by an earlier partial write is fine
		if err := s.store.PushParticipant(ctx, eventOID, userID); err != nil && !errors.Is(err, store.ErrDuplicate) {
			return err
		}

		registered = append(user.RegisteredEvents, eventOID)
		return nil
	})
	if err != nil {
		if _, ok := status.FromError(err); ok {
			return nil, err
		}
		s.log.Error("register for event",
			zap.String("user_id", userID.Hex()),
			zap.String("event_id", eventID),
			zap.Error(err))
		return nil, status.Error(codes.Internal, MsgServerError)
	}

	s.log.Info("registered for event",
		zap.String("user_id", userID.Hex()),
		zap.String("event_id", eventID))
	return registered, nil
}

// RegisteredEvents resolves the user's registered events, in the order the
// user joined them. References to events that no longer exist are dropped.
// Any failure, a missing user included, is reported as Internal.
func (s *Service) RegisteredEvents(ctx context.Context, userID primitive.ObjectID) ([]model.Event, error) {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		s.log.Error("load user for registered events", zap.String("user_id", userID.Hex()), zap.Error(err))
		return nil, status.Error(codes.Internal, MsgServerError)
	}

	found, err := s.store.FindEvents(ctx, user.RegisteredEvents)
	if err != nil {
		s.log.Error("resolve registered events", zap.String("user_id", userID.Hex()), zap.Error(err))
		return nil, status.Error(codes.Internal, MsgServerError)
	}

	byID := make(map[primitive.ObjectID]model.Event, len(found))
	for _, e := range found {
		byID[e.ID] = e
	}
	events := make([]model.Event, 0, len(user.RegisteredEvents))
	for _, id := range user.RegisteredEvents {
		if e, ok := byID[id]; ok {
			events = append(events, e)
		}
	}
	return events, nil
}
