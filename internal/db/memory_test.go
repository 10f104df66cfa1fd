package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/wuwenbin0122/campus-accounts/internal/db"
	"github.com/wuwenbin0122/campus-accounts/internal/models"
)

func newTestUser(username string) *models.User {
	return &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: "$2a$04$digest",
		FirstName:    "Alice",
		LastName:     "Liddell",
		Email:        "alice@example.com",
		IDNumber:     "42",
		Birthday:     "2000-01-01",
		Affiliation:  models.NewStudent("CS"),
	}
}

func TestMemoryUsersCreateRejectsDuplicateUsername(t *testing.T) {
	store := db.NewMemoryUsers()
	ctx := context.Background()

	first := newTestUser("alice")
	if err := store.Create(ctx, first); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	second := newTestUser("alice")
	second.FirstName = "Mallory"
	if err := store.Create(ctx, second); !errors.Is(err, db.ErrDuplicateUsername) {
		t.Fatalf("expected duplicate username error, got %v", err)
	}

	got, err := store.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got.ID != first.ID || got.FirstName != "Alice" {
		t.Fatalf("first registration was modified: %+v", got)
	}
}

func TestMemoryUsersAllowsManyRecordsWithoutUsername(t *testing.T) {
	store := db.NewMemoryUsers()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.Create(ctx, newTestUser("")); err != nil {
			t.Fatalf("create without username failed: %v", err)
		}
	}

	if store.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", store.Len())
	}

	if _, err := store.FindByUsername(ctx, ""); !errors.Is(err, db.ErrUserNotFound) {
		t.Fatalf("expected empty username lookup to miss, got %v", err)
	}
}

func TestMemoryUsersSaveUpdatesMutableFieldsOnly(t *testing.T) {
	store := db.NewMemoryUsers()
	ctx := context.Background()

	user := newTestUser("alice")
	if err := store.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	update := user.Clone()
	update.Interests = []string{"chess", "go"}
	update.MBTIType = "INTJ"
	update.PasswordHash = "overwritten"
	if err := store.Save(ctx, update); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got.MBTIType != "INTJ" || len(got.Interests) != 2 {
		t.Fatalf("mutable fields not persisted: %+v", got)
	}
	if got.PasswordHash != user.PasswordHash {
		t.Fatalf("password hash must not change through save")
	}

	if err := store.Save(ctx, newTestUser("ghost")); !errors.Is(err, db.ErrUserNotFound) {
		t.Fatalf("expected not found saving unknown record, got %v", err)
	}
}

func TestMemoryUsersReturnsCopies(t *testing.T) {
	store := db.NewMemoryUsers()
	ctx := context.Background()

	user := newTestUser("alice")
	user.Interests = []string{"chess"}
	if err := store.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	user.Interests[0] = "mutated"

	got, _ := store.FindByUsername(ctx, "alice")
	got.Interests[0] = "also mutated"

	again, _ := store.FindByUsername(ctx, "alice")
	if again.Interests[0] != "chess" {
		t.Fatalf("store leaked internal state: %v", again.Interests)
	}
}
