package service

import (
	"context"
	"errors"
	"fmt"

	model "github.com/jlynch25/eventreg/models"
	"github.com/jlynch25/eventreg/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Report summarizes a reconciliation pass.
type Report struct {
	UsersScanned       int `json:"usersScanned"`
	EventsScanned      int `json:"eventsScanned"`
	ParticipantsAdded  int `json:"participantsAdded"`
	RegistrationsAdded int `json:"registrationsAdded"`
	// Dangling counts references whose target record does not exist.
	// They are reported and left in place.
	Dangling int  `json:"dangling"`
	DryRun   bool `json:"dryRun"`
}

// Repairs is the number of references added, or that would be added.
func (r Report) Repairs() int {
	return r.ParticipantsAdded + r.RegistrationsAdded
}

// Reconcile restores the user/event cross references left one-sided by a
// partial registration. Every missing back reference is appended, nothing
// is removed, so running it again or in any order gives the same result.
func (s *Service) Reconcile(ctx context.Context, dryRun bool) (Report, error) {
	report := Report{DryRun: dryRun}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("list users: %w", err)
	}
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return report, fmt.Errorf("list events: %w", err)
	}
	report.UsersScanned = len(users)
	report.EventsScanned = len(events)

	userByID := make(map[primitive.ObjectID]*model.User, len(users))
	for i := range users {
		userByID[users[i].ID] = &users[i]
	}
	eventByID := make(map[primitive.ObjectID]*model.Event, len(events))
	for i := range events {
		eventByID[events[i].ID] = &events[i]
	}

	for _, user := range users {
		for _, eventID := range user.RegisteredEvents {
			event, ok := eventByID[eventID]
			if !ok {
				report.Dangling++
				continue
			}
			if event.HasParticipant(user.ID) {
				continue
			}
			s.log.Info("missing participant",
				zap.String("event_id", eventID.Hex()),
				zap.String("user_id", user.ID.Hex()),
				zap.Bool("dry_run", dryRun))
			if !dryRun {
				if err := s.store.PushParticipant(ctx, eventID, user.ID); err != nil && !errors.Is(err, store.ErrDuplicate) {
					return report, fmt.Errorf("add participant %s to %s: %w", user.ID.Hex(), eventID.Hex(), err)
				}
			}
			event.Participants = append(event.Participants, user.ID)
			report.ParticipantsAdded++
		}
	}

	for _, event := range events {
		for _, userID := range event.Participants {
			user, ok := userByID[userID]
			if !ok {
				report.Dangling++
				continue
			}
			if user.HasEvent(event.ID) {
				continue
			}
			s.log.Info("missing registration",
				zap.String("user_id", userID.Hex()),
				zap.String("event_id", event.ID.Hex()),
				zap.Bool("dry_run", dryRun))
			if !dryRun {
				if err := s.store.PushRegisteredEvent(ctx, userID, event.ID); err != nil && !errors.Is(err, store.ErrDuplicate) {
					return report, fmt.Errorf("add registration %s to %s: %w", event.ID.Hex(), userID.Hex(), err)
				}
			}
			user.RegisteredEvents = append(user.RegisteredEvents, event.ID)
			report.RegistrationsAdded++
		}
	}

	return report, nil
}
