package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/wuwenbin0122/campus-accounts/internal/db"
	"github.com/wuwenbin0122/campus-accounts/internal/models"
)

var (
	validate     = validator.New()
	emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)
)

type RegisterInput struct {
	Username   string
	FirstName  string `validate:"required"`
	LastName   string `validate:"required"`
	Email      string `validate:"required"`
	Password   string `validate:"required"`
	IDNumber   string `validate:"required"`
	Birthday   string `validate:"required"`
	Program    string
	Department string
	ActiveTab  string
}

type LoginInput struct {
	Username string
	Password string
}

// Service implements registration, login and the identity-scoped profile
// operations on top of a UserStore.
type Service struct {
	users  db.UserStore
	hasher PasswordHasher
	tokens *TokenManager
	now    func() time.Time
}

func NewService(users db.UserStore, hasher PasswordHasher, tokens *TokenManager) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
}

// Register validates input, hashes the password and stores the new record.
// It does not issue a token; callers log in separately.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input = trimRegisterInput(input)

	affiliation, err := validateRegistration(input)
	if err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return nil, invalid("password", "Password must be at most 72 bytes.")
		}
		return nil, err
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		PasswordHash: digest,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		IDNumber:     input.IDNumber,
		Birthday:     input.Birthday,
		Affiliation:  affiliation,
		Interests:    []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	sanitized := user.Sanitize()
	return &sanitized, nil
}

func trimRegisterInput(in RegisterInput) RegisterInput {
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.IDNumber = strings.TrimSpace(in.IDNumber)
	in.Birthday = strings.TrimSpace(in.Birthday)
	in.Program = strings.TrimSpace(in.Program)
	in.Department = strings.TrimSpace(in.Department)
	in.ActiveTab = strings.TrimSpace(in.ActiveTab)
	return in
}

// validateRegistration applies the checks in the order the client expects
// their messages.
func validateRegistration(in RegisterInput) (models.Affiliation, error) {
	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return models.Affiliation{}, invalid(fieldErrs[0].Field(), "All fields are required.")
		}
		return models.Affiliation{}, fmt.Errorf("auth: validate registration: %w", err)
	}

	if !emailPattern.MatchString(in.Email) {
		return models.Affiliation{}, invalid("email", "Invalid email format.")
	}

	if !validBirthday(in.Birthday) {
		return models.Affiliation{}, invalid("birthday", "Invalid birthday format. Use YYYY-MM-DD.")
	}

	switch models.Role(in.ActiveTab) {
	case models.RoleStudent:
		if in.Program == "" {
			return models.Affiliation{}, invalid("program", "Program is required for students.")
		}
		return models.NewStudent(in.Program), nil
	case models.RoleFaculty:
		if in.Department == "" {
			return models.Affiliation{}, invalid("department", "Department is required for faculty.")
		}
		return models.NewFaculty(in.Department), nil
	default:
		return models.Affiliation{}, invalid("activeTab", "Account type must be Student or Faculty.")
	}
}

// validBirthday accepts calendar dates (2006-01-02) and RFC 3339 timestamps
// only. Slash-separated and free-form dates are rejected.
func validBirthday(value string) bool {
	if _, err := time.Parse(time.DateOnly, value); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, value)
	return err == nil
}

// Login verifies credentials and returns a signed token bound to the username.
func (s *Service) Login(ctx context.Context, input LoginInput) (string, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		return "", err
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return s.tokens.Issue(Identity{Username: user.Username})
}

// Profile returns the caller's own record without credentials.
func (s *Service) Profile(ctx context.Context, id Identity) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, id.Username)
	if err != nil {
		return nil, err
	}

	sanitized := user.Sanitize()
	return &sanitized, nil
}

// UpdateMBTI overwrites the caller's MBTI type. The value is not checked
// against the sixteen types.
func (s *Service) UpdateMBTI(ctx context.Context, id Identity, mbtiType string) error {
	return s.mutate(ctx, id, func(u *models.User) {
		u.MBTIType = mbtiType
	})
}

// UpdateInterests replaces the caller's interests.
func (s *Service) UpdateInterests(ctx context.Context, id Identity, interests []string) error {
	if len(interests) > models.MaxInterests {
		return ErrTooManyInterests
	}

	replacement := append([]string{}, interests...)
	return s.mutate(ctx, id, func(u *models.User) {
		u.Interests = replacement
	})
}

// mutate is a read-modify-write of the caller's record. Concurrent updates to
// the same record are last-write-wins.
func (s *Service) mutate(ctx context.Context, id Identity, apply func(*models.User)) error {
	user, err := s.users.FindByUsername(ctx, id.Username)
	if err != nil {
		return err
	}

	apply(user)
	user.UpdatedAt = s.now().UTC()

	return s.users.Save(ctx, user)
}
