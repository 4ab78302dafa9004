package db

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/socis/member-portal/internal/core/domain"
	"github.com/socis/member-portal/internal/pkg/config"
)

func TestOpen_SQLite(t *testing.T) {
	cfg := &config.Config{
		Store: config.StoreConfig{Driver: "sqlite"},
		SQL:   config.SQLConfig{DSN: ":memory:"},
	}

	store, closeFn, err := Open(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = closeFn(context.Background()) }()

	u := &domain.User{ID: "u-1", Name: "Alice", Email: "alice@example.com", Image: domain.DefaultImage}
	if err := store.Insert(context.Background(), u); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := store.FindByEmail(context.Background(), "alice@example.com")
	if err != nil || got.ID != "u-1" {
		t.Fatalf("expected u-1, got %+v (%v)", got, err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "cassandra"}}
	if _, _, err := Open(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error")
	}
}
