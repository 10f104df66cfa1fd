package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wuwenbin0122/campus-accounts/internal/models"
	"github.com/wuwenbin0122/campus-accounts/internal/utils"
)

type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, cfg utils.PostgresConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns >= 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(cfg.ConnectTimeout))
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &Postgres{Pool: pool}, nil
}

func (p *Postgres) Close() {
	if p == nil || p.Pool == nil {
		return
	}
	p.Pool.Close()
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return fmt.Errorf("postgres: pool not initialised")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stmt := strings.Join([]string{
		"CREATE TABLE IF NOT EXISTS users (",
		"    id TEXT PRIMARY KEY,",
		"    username TEXT UNIQUE,",
		"    password_hash TEXT NOT NULL,",
		"    first_name TEXT NOT NULL,",
		"    last_name TEXT NOT NULL,",
		"    email TEXT NOT NULL,",
		"    id_number TEXT NOT NULL,",
		"    birthday TEXT NOT NULL,",
		"    role TEXT NOT NULL CHECK (role IN ('Student', 'Faculty')),",
		"    program TEXT,",
		"    department TEXT,",
		"    interests TEXT[] NOT NULL DEFAULT '{}' CHECK (cardinality(interests) <= 6),",
		"    mbti_type TEXT NOT NULL DEFAULT '',",
		"    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),",
		"    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),",
		"    CHECK ((role = 'Student' AND program IS NOT NULL AND department IS NULL)",
		"        OR (role = 'Faculty' AND department IS NOT NULL AND program IS NULL))",
		")",
	}, "\n")

	if _, err := p.Pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}

	return nil
}

// dbtx is the subset of pgxpool.Pool used by PostgresUsers.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresUsers is a relational UserStore for deployments without MongoDB.
type PostgresUsers struct {
	db dbtx
}

func NewPostgresUsers(db dbtx) *PostgresUsers {
	return &PostgresUsers{db: db}
}

const (
	insertUserSQL = `INSERT INTO users (id, username, password_hash, first_name, last_name, email, id_number, birthday, role, program, department, interests, mbti_type, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	selectUserSQL = `SELECT id, COALESCE(username, ''), password_hash, first_name, last_name, email, id_number, birthday, role, COALESCE(program, ''), COALESCE(department, ''), interests, mbti_type, created_at, updated_at
FROM users WHERE username = $1`

	updateUserSQL = `UPDATE users SET interests = $2, mbti_type = $3, updated_at = $4 WHERE id = $1`
)

func (s *PostgresUsers) Create(ctx context.Context, user *models.User) error {
	interests := user.Interests
	if interests == nil {
		interests = []string{}
	}

	_, err := s.db.Exec(ctx, insertUserSQL,
		user.ID,
		nullable(user.Username),
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Email,
		user.IDNumber,
		user.Birthday,
		string(user.Affiliation.Role()),
		nullable(user.Affiliation.Program()),
		nullable(user.Affiliation.Department()),
		interests,
		user.MBTIType,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("postgres: insert user: %w", err)
	}

	return nil
}

func (s *PostgresUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, ErrUserNotFound
	}

	var (
		user                      models.User
		role, program, department string
	)
	err := s.db.QueryRow(ctx, selectUserSQL, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.IDNumber,
		&user.Birthday,
		&role,
		&program,
		&department,
		&user.Interests,
		&user.MBTIType,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("postgres: find user: %w", err)
	}

	user.Affiliation, _ = models.AffiliationFromFields(models.Role(role), program, department)
	return &user, nil
}

func (s *PostgresUsers) Save(ctx context.Context, user *models.User) error {
	interests := user.Interests
	if interests == nil {
		interests = []string{}
	}

	tag, err := s.db.Exec(ctx, updateUserSQL, user.ID, interests, user.MBTIType, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: save user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
