package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/wuwenbin0122/campus-accounts/internal/db"
	"github.com/wuwenbin0122/campus-accounts/internal/models"
)

var userColumns = []string{
	"id", "username", "password_hash", "first_name", "last_name", "email", "id_number", "birthday",
	"role", "program", "department", "interests", "mbti_type", "created_at", "updated_at",
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestPostgresUsersCreate(t *testing.T) {
	cases := []struct {
		name    string
		user    *models.User
		setup   func(mock pgxmock.PgxPoolIface, user *models.User)
		wantErr error
	}{
		{
			name: "student insert binds program and nulls department",
			user: newTestUser("alice"),
			setup: func(mock pgxmock.PgxPoolIface, user *models.User) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(user.ID, "alice", user.PasswordHash, "Alice", "Liddell", "alice@example.com", "42", "2000-01-01",
						"Student", "CS", nil, []string{}, "", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "missing username is stored as null",
			user: newTestUser(""),
			setup: func(mock pgxmock.PgxPoolIface, user *models.User) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(user.ID, nil, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						"Student", "CS", nil, []string{}, "", pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "unique violation maps to duplicate username",
			user: newTestUser("alice"),
			setup: func(mock pgxmock.PgxPoolIface, user *models.User) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(anyArgs(15)...).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: db.ErrDuplicateUsername,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := newMockPool(t)
			tc.setup(mock, tc.user)

			err := db.NewPostgresUsers(mock).Create(context.Background(), tc.user)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestPostgresUsersFindByUsername(t *testing.T) {
	mock := newMockPool(t)
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(userColumns).AddRow(
		"id-1", "bob", "$2a$04$digest", "Bob", "Stone", "bob@example.com", "7", "1980-02-03",
		"Faculty", "", "Physics", []string{"chess"}, "ENTP", now, now,
	)
	mock.ExpectQuery(`SELECT id, COALESCE\(username, ''\)`).WithArgs("bob").WillReturnRows(rows)

	user, err := db.NewPostgresUsers(mock).FindByUsername(context.Background(), "bob")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}

	if user.Affiliation.Role() != models.RoleFaculty || user.Affiliation.Department() != "Physics" {
		t.Fatalf("unexpected affiliation: %+v", user.Affiliation)
	}
	if user.MBTIType != "ENTP" || len(user.Interests) != 1 {
		t.Fatalf("unexpected profile: %+v", user)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresUsersFindByUsernameNotFound(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`SELECT id`).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

	store := db.NewPostgresUsers(mock)
	if _, err := store.FindByUsername(context.Background(), "ghost"); !errors.Is(err, db.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := store.FindByUsername(context.Background(), ""); !errors.Is(err, db.ErrUserNotFound) {
		t.Fatalf("expected empty username to miss without querying, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresUsersSave(t *testing.T) {
	mock := newMockPool(t)
	user := newTestUser("alice")
	user.Interests = []string{"chess", "go"}
	user.MBTIType = "INTJ"

	mock.ExpectExec(`UPDATE users SET interests`).
		WithArgs(user.ID, []string{"chess", "go"}, "INTJ", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users SET interests`).
		WithArgs("missing", []string{}, "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := db.NewPostgresUsers(mock)
	if err := store.Save(context.Background(), user); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := store.Save(context.Background(), &models.User{ID: "missing"}); !errors.Is(err, db.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unfulfilled expectations: %v", err)
	}
}
