package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"

	"github.com/strathlearn/api/internal/apperrs"
	"github.com/strathlearn/api/internal/db"
)

type User struct {
	ID         string
	Email      string
	Name       string
	CustomerID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func userFromDB(u db.User) *User {
	user := &User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt.Time,
		UpdatedAt: u.UpdatedAt.Time,
	}
	if u.CustomerID.Valid {
		user.CustomerID = u.CustomerID.String
	}
	return user
}

func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	dbUser, err := s.getDB().GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, apperrs.Client(apperrs.CodeNotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return userFromDB(dbUser), nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	dbUser, err := s.getDB().GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, apperrs.Client(apperrs.CodeNotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return userFromDB(dbUser), nil
}

type SignupParams struct {
	Email    string
	Name     string
	Password string
}

// Signup creates an email/password user. Duplicate emails surface as a
// client Conflict error.
func (s *Service) Signup(ctx context.Context, params SignupParams) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	dbUser, err := s.getDB().CreateUser(ctx, db.CreateUserParams{
		Email:        params.Email,
		Name:         params.Name,
		PasswordHash: pgtype.Text{String: string(hash), Valid: true},
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperrs.Client(apperrs.CodeConflict, "email already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return userFromDB(dbUser), nil
}

// Authenticate verifies an email/password pair. Wrong email and wrong
// password return the same error so the response does not leak which one
// was wrong.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	dbUser, err := s.getDB().GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, apperrs.Client(apperrs.CodeUnauthorized, "invalid email or password")
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if !dbUser.PasswordHash.Valid {
		return nil, apperrs.Client(apperrs.CodeUnauthorized, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(dbUser.PasswordHash.String), []byte(password)); err != nil {
		return nil, apperrs.Client(apperrs.CodeUnauthorized, "invalid email or password")
	}

	if _, err := s.getDB().UpdateUserLastLogin(ctx, dbUser.ID); err != nil {
		// Not fatal for login
		return userFromDB(dbUser), nil
	}

	return userFromDB(dbUser), nil
}

type CreateUserParams struct {
	Email string
	Name  string
}

// GetOrCreateUser gets a user by email or creates one, for OAuth logins
// where no password exists.
func (s *Service) GetOrCreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	var dbUser db.User
	err := s.RunInTransaction(ctx, func(tx *db.Queries) error {
		var err error
		dbUser, err = tx.GetUserByEmail(ctx, params.Email)
		if err == nil {
			return nil
		}
		if !db.IsNotFoundError(err) {
			return fmt.Errorf("failed to get user by email: %w", err)
		}

		dbUser, err = tx.CreateUser(ctx, db.CreateUserParams{
			Email: params.Email,
			Name:  params.Name,
		})
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return userFromDB(dbUser), nil
}
