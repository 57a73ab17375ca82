package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/jlynch25/eventreg/api"
	"github.com/jlynch25/eventreg/auth"
	model "github.com/jlynch25/eventreg/models"
	"github.com/jlynch25/eventreg/service"
	"github.com/jlynch25/eventreg/store"
	"go.uber.org/zap/zaptest"
)

type staticToken string

func (t staticToken) Token() string { return string(t) }

func TestClientAgainstServer(t *testing.T) {
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	mem := store.NewMemoryStore()
	srv := api.NewServer(service.New(mem, log), auth.NewVerifier("client-test-secret"), mem.Ping, log, api.Options{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	user := &model.User{Name: "Ada", Email: "ada@example.com"}
	if err := mem.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}
	event := &model.Event{Title: "Hackathon"}
	if err := mem.CreateEvent(ctx, event); err != nil {
		t.Fatal(err)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Id:        user.ID.Hex(),
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("client-test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	c := New(ts.URL+"/", staticToken(token))

	events, err := c.ListEvents(ctx)
	if err != nil || len(events) != 1 {
		t.Fatalf("ListEvents: %v %v", events, err)
	}

	res, err := c.Register(ctx, event.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.RegisteredEvents) != 1 || res.RegisteredEvents[0] != event.ID.Hex() {
		t.Fatalf("unexpected result %+v", res)
	}

	_, err = c.Register(ctx, event.ID.Hex())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest || apiErr.Msg != "Already registered for this event" {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	mine, err := c.RegisteredEvents(ctx)
	if err != nil || len(mine) != 1 || mine[0].ID != event.ID {
		t.Fatalf("RegisteredEvents: %v %v", mine, err)
	}

	me, err := c.Me(ctx)
	if err != nil || me.Name != "Ada" {
		t.Fatalf("Me: %v %v", me, err)
	}

	_, err = New(ts.URL, staticToken("")).RegisteredEvents(ctx)
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}
