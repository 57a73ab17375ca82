package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	model "github.com/jlynch25/eventreg/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps everything in process. Transactions are serialized.
// Pushes made inside a failed transaction are undone; writes from outside it
// are left alone.
type MemoryStore struct {
	txMu sync.Mutex

	mu     sync.RWMutex
	users  map[primitive.ObjectID]model.User
	events map[primitive.ObjectID]model.Event
	// failPush, when set, is returned by the next push on that field
	failPush map[string]error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[primitive.ObjectID]model.User),
		events:   make(map[primitive.ObjectID]model.Event),
		failPush: make(map[string]error),
	}
}

// FailNextPush makes the next push on field ("registeredEvents" or
// "participants") return err. It exists to exercise partial failures.
func (m *MemoryStore) FailNextPush(field string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPush[field] = err
}

func (m *MemoryStore) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return fmt.Errorf("email %q: %w", user.Email, ErrDuplicate)
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.RegisteredEvents == nil {
		user.RegisteredEvents = []primitive.ObjectID{}
	}
	m.users[user.ID] = cloneUser(*user)
	return nil
}

func (m *MemoryStore) FindUser(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), ErrNotFound)
	}
	u = cloneUser(u)
	return &u, nil
}

func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
}

func (m *MemoryStore) ListUsers(_ context.Context) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID.Hex() < users[j].ID.Hex() })
	return users, nil
}

func (m *MemoryStore) CreateEvent(_ context.Context, event *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Participants == nil {
		event.Participants = []primitive.ObjectID{}
	}
	m.events[event.ID] = cloneEvent(*event)
	return nil
}

func (m *MemoryStore) FindEvent(_ context.Context, id primitive.ObjectID) (*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id.Hex(), ErrNotFound)
	}
	e = cloneEvent(e)
	return &e, nil
}

func (m *MemoryStore) FindEvents(_ context.Context, ids []primitive.ObjectID) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []model.Event
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if e, ok := m.events[id]; ok {
			events = append(events, cloneEvent(e))
		}
	}
	return events, nil
}

func (m *MemoryStore) ListEvents(_ context.Context) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]model.Event, 0, len(m.events))
	for _, e := range m.events {
		events = append(events, cloneEvent(e))
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date.Equal(events[j].Date) {
			return events[i].ID.Hex() < events[j].ID.Hex()
		}
		return events[i].Date.Before(events[j].Date)
	})
	return events, nil
}

func (m *MemoryStore) PushRegisteredEvent(ctx context.Context, userID, eventID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure("registeredEvents"); err != nil {
		return err
	}
	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID.Hex(), ErrNotFound)
	}
	if u.HasEvent(eventID) {
		return fmt.Errorf("user %s already holds %s: %w", userID.Hex(), eventID.Hex(), ErrDuplicate)
	}
	u.RegisteredEvents = append(u.RegisteredEvents, eventID)
	m.users[userID] = u
	recordUndo(ctx, func() {
		if u, ok := m.users[userID]; ok {
			u.RegisteredEvents = removeRef(u.RegisteredEvents, eventID)
			m.users[userID] = u
		}
	})
	return nil
}

func (m *MemoryStore) PushParticipant(ctx context.Context, eventID, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure("participants"); err != nil {
		return err
	}
	e, ok := m.events[eventID]
	if !ok {
		return fmt.Errorf("event %s: %w", eventID.Hex(), ErrNotFound)
	}
	if e.HasParticipant(userID) {
		return fmt.Errorf("event %s already holds %s: %w", eventID.Hex(), userID.Hex(), ErrDuplicate)
	}
	e.Participants = append(e.Participants, userID)
	m.events[eventID] = e
	recordUndo(ctx, func() {
		if e, ok := m.events[eventID]; ok {
			e.Participants = removeRef(e.Participants, userID)
			m.events[eventID] = e
		}
	})
	return nil
}

func (m *MemoryStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memoryTx{}
	if err := fn(context.WithValue(ctx, memoryTxKey{}, tx)); err != nil {
		m.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close(context.Context) error { return nil }

// takeFailure must be called with mu held.
func (m *MemoryStore) takeFailure(field string) error {
	err, ok := m.failPush[field]
	if !ok {
		return nil
	}
	delete(m.failPush, field)
	return err
}

type memoryTxKey struct{}

// memoryTx collects the inverse of every push made inside a transaction.
type memoryTx struct {
	undo []func()
}

// recordUndo must be called with mu held. Outside a transaction it does
// nothing.
func recordUndo(ctx context.Context, fn func()) {
	if tx, ok := ctx.Value(memoryTxKey{}).(*memoryTx); ok {
		tx.undo = append(tx.undo, fn)
	}
}

// removeRef drops the last occurrence of ref.
func removeRef(refs []primitive.ObjectID, ref primitive.ObjectID) []primitive.ObjectID {
	for i := len(refs) - 1; i >= 0; i-- {
		if refs[i] == ref {
			return append(refs[:i:i], refs[i+1:]...)
		}
	}
	return refs
}

func cloneUser(u model.User) model.User {
	u.RegisteredEvents = append([]primitive.ObjectID{}, u.RegisteredEvents...)
	return u
}

func cloneEvent(e model.Event) model.Event {
	e.Participants = append([]primitive.ObjectID{}, e.Participants...)
	return e
}
