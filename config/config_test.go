package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eventreg.yaml")
	err := os.WriteFile(path, []byte(`
env: development
http:
  addr: ":9090"
grpc:
  healthInterval: 5s
mongo:
  database: campus
auth:
  secret: from-the-file
`), 0o600)
	if err != nil {
		t.Fatal(err)
	}

	t.Setenv("EVENTREG_AUTH_SECRET", "from-the-environment")
	t.Setenv("EVENTREG_MONGO_TRANSACTIONS", "true")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HTTP.Addr != ":9090" || c.Mongo.Database != "campus" {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.GRPC.HealthInterval != 5*time.Second {
		t.Fatalf("expected 5s health interval, got %v", c.GRPC.HealthInterval)
	}
	if c.Auth.Secret != "from-the-environment" {
		t.Fatalf("env override not applied, secret=%q", c.Auth.Secret)
	}
	if !c.Mongo.Transactions {
		t.Fatal("expected transactions enabled by env")
	}
	if !c.Development() {
		t.Fatal("expected development mode")
	}
	if c.Mongo.URI != "mongodb://localhost:27017" {
		t.Fatalf("default uri lost: %q", c.Mongo.URI)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("EVENTREG_AUTH_SECRET", "")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Fatalf("expected validation error for a missing secret, got %v", err)
	}

	t.Setenv("EVENTREG_AUTH_SECRET", "long-enough-secret")
	t.Setenv("EVENTREG_STORE", "postgres")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for an unknown store")
	}
}

func TestLoadRejectsBadBool(t *testing.T) {
	t.Setenv("EVENTREG_AUTH_SECRET", "long-enough-secret")
	t.Setenv("EVENTREG_METRICS", "sometimes")
	if _, err := Load(""); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDefaultWorksOnStandaloneServer(t *testing.T) {
	c := Default()
	if c.Mongo.Transactions {
		t.Fatal("transactions must be opted into, the default uri is a standalone server")
	}
	if c.Mongo.URI != "mongodb://localhost:27017" {
		t.Fatalf("unexpected default uri %q", c.Mongo.URI)
	}
}
