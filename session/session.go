// Package session keeps the client side login state: the bearer token and a
// cached profile, persisted to a small key/value file so that every process
// of the same user sees the same session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Keys of the persisted values.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// DefaultDisplayName is shown when no usable profile is cached.
const DefaultDisplayName = "User"

// Profile is the cached user profile, stored serialized under UserKey.
type Profile struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// State is what a navigation bar renders: logged in or out and the name to
// show.
type State struct {
	LoggedIn    bool
	DisplayName string
}

// Initial is the upper-cased first letter of the display name.
func (s State) Initial() string {
	r, _ := utf8.DecodeRuneInString(s.DisplayName)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// SubscriptionID identifies a Subscribe registration.
type SubscriptionID string

// Store is the session state object. It is safe for concurrent use.
type Store struct {
	path string
	log  *zap.Logger

	mu        sync.Mutex
	subs      map[SubscriptionID]func(State)
	last      State
	lastToken string
	closed    bool
	cancel    context.CancelFunc
	// watchDone is closed when the running watch goroutine returns
	watchDone chan struct{}
}

// Open returns the session stored at path, creating its directory.
func Open(path string, log *zap.Logger) (*Store, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	s := &Store{
		path: path,
		log:  log,
		subs: make(map[SubscriptionID]func(State)),
	}
	s.last, s.lastToken = s.State(), s.Token()
	return s, nil
}

// Path is the backing file.
func (s *Store) Path() string {
	return s.path
}

// Token returns the persisted token, or "" when logged out.
func (s *Store) Token() string {
	return s.values()[TokenKey]
}

// Profile returns the cached profile. ok is false when it is missing or
// cannot be parsed.
func (s *Store) Profile() (p Profile, ok bool) {
	raw, found := s.values()[UserKey]
	if !found {
		return Profile{}, false
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.log.Warn("error parsing user data", zap.Error(err))
		return Profile{}, false
	}
	return p, true
}

// State re-reads the persisted values.
func (s *Store) State() State {
	st := State{
		LoggedIn:    s.Token() != "",
		DisplayName: DefaultDisplayName,
	}
	if p, ok := s.Profile(); ok && strings.TrimSpace(p.Name) != "" {
		st.DisplayName = p.Name
	}
	return st
}

// Save persists token and profile and notifies subscribers.
func (s *Store) Save(token string, p Profile) error {
	user, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.write(map[string]string{TokenKey: token, UserKey: string(user)}); err != nil {
		return err
	}
	s.publish(s.State(), token, true)
	return nil
}

// Logout clears every persisted value and notifies subscribers. It never
// contacts the server.
func (s *Store) Logout() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	s.publish(State{DisplayName: DefaultDisplayName}, "", true)
	return nil
}

// Subscribe registers fn to be called with the new state after every
// change.
func (s *Store) Subscribe(fn func(State)) SubscriptionID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := SubscriptionID(uuid.NewString())
	s.subs[id] = fn
	return id
}

// Unsubscribe removes a registration. Unknown ids are ignored.
func (s *Store) Unsubscribe(id SubscriptionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

// Watch starts observing the backing file for changes made by other
// processes. Subscribers are called when the observed state or token differs
// from the last one published. A second call replaces the running watch.
// Watching stops when ctx is done or the store is closed.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// the file is replaced by rename, so watch the directory
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		watcher.Close()
		return errors.New("session store is closed")
	}
	if s.cancel != nil {
		s.cancel()
	}
	done := make(chan struct{})
	s.cancel, s.watchDone = cancel, done
	s.mu.Unlock()

	go s.watchFile(ctx, watcher, done)
	return nil
}

// Close stops watching and drops every subscription.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.subs = make(map[SubscriptionID]func(State))
	return nil
}

func (s *Store) watchFile(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.log.Debug("session file changed", zap.String("op", event.Op.String()))
			s.publish(s.State(), s.Token(), false)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("session watcher error", zap.Error(err))
		}
	}
}

// publish calls the subscribers. Unless force is set, nothing happens when
// neither st nor token changed since the last publish.
func (s *Store) publish(st State, token string, force bool) {
	s.mu.Lock()
	if s.closed || (!force && st == s.last && token == s.lastToken) {
		s.mu.Unlock()
		return
	}
	s.last, s.lastToken = st, token
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

func (s *Store) values() map[string]string {
	values := map[string]string{}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("read session", zap.Error(err))
		}
		return values
	}
	if err := json.Unmarshal(data, &values); err != nil {
		s.log.Warn("session file is corrupt", zap.Error(err))
		return map[string]string{}
	}
	return values
}

// write replaces the file in one rename so readers never see half of it.
func (s *Store) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}
