package store

import (
	"context"
	"errors"
	"testing"

	model "github.com/jlynch25/eventreg/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemoryStoreDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.CreateUser(ctx, &model.User{Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	err := s.CreateUser(ctx, &model.User{Name: "Other", Email: "ada@example.com"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestMemoryStorePushGuards(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	user := &model.User{Name: "Ada", Email: "ada@example.com"}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}
	eventID := primitive.NewObjectID()

	if err := s.PushRegisteredEvent(ctx, user.ID, eventID); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if err := s.PushRegisteredEvent(ctx, user.ID, eventID); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second push: expected ErrDuplicate, got %v", err)
	}
	if err := s.PushRegisteredEvent(ctx, primitive.NewObjectID(), eventID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown user: expected ErrNotFound, got %v", err)
	}
	if err := s.PushParticipant(ctx, eventID, user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown event: expected ErrNotFound, got %v", err)
	}

	got, err := s.FindUser(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.RegisteredEvents) != 1 || got.RegisteredEvents[0] != eventID {
		t.Fatalf("unexpected registered events %v", got.RegisteredEvents)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	event := &model.Event{Title: "Hackathon"}
	if err := s.CreateEvent(ctx, event); err != nil {
		t.Fatal(err)
	}
	got, _ := s.FindEvent(ctx, event.ID)
	got.Participants = append(got.Participants, primitive.NewObjectID())

	again, _ := s.FindEvent(ctx, event.ID)
	if len(again.Participants) != 0 {
		t.Fatalf("store was mutated through a returned value: %v", again.Participants)
	}
}

func TestMemoryStoreTransactionRollback(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	user := &model.User{Name: "Ada", Email: "ada@example.com"}
	event := &model.Event{Title: "Hackathon"}
	_ = s.CreateUser(ctx, user)
	_ = s.CreateEvent(ctx, event)

	boom := errors.New("boom")
	s.FailNextPush("participants", boom)

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.PushRegisteredEvent(ctx, user.ID, event.ID); err != nil {
			return err
		}
		return s.PushParticipant(ctx, event.ID, user.ID)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	u, _ := s.FindUser(ctx, user.ID)
	if len(u.RegisteredEvents) != 0 {
		t.Fatalf("user write survived the rollback: %v", u.RegisteredEvents)
	}
}

func TestMemoryStoreRollbackKeepsOutsideWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	user := &model.User{Name: "Ada", Email: "ada@example.com"}
	event := &model.Event{Title: "Hackathon"}
	_ = s.CreateUser(ctx, user)
	_ = s.CreateEvent(ctx, event)

	other := &model.User{Name: "Grace", Email: "grace@example.com"}
	late := &model.Event{Title: "Meetup"}
	boom := errors.New("boom")

	err := s.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := s.PushRegisteredEvent(txCtx, user.ID, event.ID); err != nil {
			return err
		}

		// another request lands while the transaction is open
		done := make(chan error, 1)
		go func() {
			if err := s.CreateUser(ctx, other); err != nil {
				done <- err
				return
			}
			if err := s.CreateEvent(ctx, late); err != nil {
				done <- err
				return
			}
			done <- s.PushParticipant(ctx, event.ID, other.ID)
		}()
		if err := <-done; err != nil {
			t.Errorf("outside write: %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	u, _ := s.FindUser(ctx, user.ID)
	if len(u.RegisteredEvents) != 0 {
		t.Fatalf("transactional push survived the rollback: %v", u.RegisteredEvents)
	}
	if _, err := s.FindUser(ctx, other.ID); err != nil {
		t.Fatalf("user created outside the transaction was lost: %v", err)
	}
	if _, err := s.FindEvent(ctx, late.ID); err != nil {
		t.Fatalf("event created outside the transaction was lost: %v", err)
	}
	e, _ := s.FindEvent(ctx, event.ID)
	if !e.HasParticipant(other.ID) || len(e.Participants) != 1 {
		t.Fatalf("outside push was rolled back: %v", e.Participants)
	}
}

func TestMemoryStoreFindEventsSkipsMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	a := &model.Event{Title: "A"}
	_ = s.CreateEvent(ctx, a)

	events, err := s.FindEvents(ctx, []primitive.ObjectID{primitive.NewObjectID(), a.ID, a.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].ID != a.ID {
		t.Fatalf("unexpected events %v", events)
	}
}
