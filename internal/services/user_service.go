package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reservation-api/internal/db"
	"reservation-api/internal/models"

	"github.com/rs/zerolog"
)

const queryTimeout = 3 * time.Second

type UserService struct {
	db     *sql.DB
	hasher *PasswordHasher
	logger zerolog.Logger

	// compared against for unknown emails so both login failures cost one bcrypt run
	dummyHash string
}

func NewUserService(database *sql.DB, hasher *PasswordHasher, logger zerolog.Logger) *UserService {
	dummy, err := hasher.Hash("reservation-api-dummy-password")
	if err != nil {
		logger.Warn().Err(err).Msg("Could not prepare dummy hash")
	}
	return &UserService{
		db:        database,
		hasher:    hasher,
		logger:    logger,
		dummyHash: dummy,
	}
}

// Register creates a customer account. Duplicate emails are detected by the
// unique index, not by a prior lookup.
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}
	return s.create(ctx, req.Name, req.Email, req.Password, req.Phone, models.RoleCustomer)
}

func (s *UserService) create(ctx context.Context, name, email, password string, phone *string, role models.UserRole) (*models.User, error) {
	hashedPassword, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	if phone != nil && *phone == "" {
		phone = nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO users (name, email, password, phone, role) VALUES (?, ?, ?, ?, ?)",
		name, email, hashedPassword, phone, string(role),
	)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	userID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}

	s.logger.Info().Int64("user_id", userID).Str("role", string(role)).Msg("User registered")
	return &models.User{
		ID:    int(userID),
		Name:  name,
		Email: email,
		Phone: phone,
		Role:  string(role),
	}, nil
}

// Authenticate returns ErrInvalidCredentials for both an unknown email and a
// wrong password.
func (s *UserService) Authenticate(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.getUser(ctx, "email = ?", req.Email)
	if errors.Is(err, ErrNotFound) {
		s.hasher.Verify(req.Password, s.dummyHash)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.logger.Warn().Int("user_id", user.ID).Msg("Failed authentication attempt")
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID int) (*models.User, error) {
	return s.getUser(ctx, "id = ?", userID)
}

// EnsureAdmin inserts an admin account for email unless one with that email
// already exists. Existing rows are left as they are.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (created bool, err error) {
	_, err = s.create(ctx, "Administrator", email, password, nil, models.RoleAdmin)
	if errors.Is(err, ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) getUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var user models.User
	var phone sql.NullString
	var createdAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, password, phone, role, created_at FROM users WHERE "+where,
		arg,
	).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &phone, &user.Role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}

	if phone.Valid {
		user.Phone = &phone.String
	}
	if createdAt.Valid {
		user.CreatedAt = createdAt.Time
	}
	return &user, nil
}
