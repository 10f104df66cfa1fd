package db_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wuwenbin0122/campus-accounts/internal/db"
	"github.com/wuwenbin0122/campus-accounts/internal/utils"
)

func TestPostgresUsersAgainstDatabase(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	cfg := utils.PostgresConfig{
		DSN:            dsn,
		ConnectTimeout: 5 * time.Second,
	}

	store, err := db.NewPostgres(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema failed: %v", err)
	}

	users := db.NewPostgresUsers(store.Pool)
	username := "user_" + uuid.NewString()

	created := newTestUser(username)
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt
	if err := users.Create(ctx, created); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer store.Pool.Exec(ctx, "DELETE FROM users WHERE id = $1", created.ID)

	if err := users.Create(ctx, newTestUser(username)); !errors.Is(err, db.ErrDuplicateUsername) {
		t.Fatalf("expected duplicate username error, got %v", err)
	}

	created.Interests = []string{"a", "b", "c"}
	created.MBTIType = "ISFJ"
	if err := users.Save(ctx, created); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := users.FindByUsername(ctx, username)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got.MBTIType != "ISFJ" || len(got.Interests) != 3 {
		t.Fatalf("unexpected stored profile: %+v", got)
	}
}
