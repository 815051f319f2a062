package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"healthcare-services/internal/model"
)

// CreateUser inserts u. A taken username returns ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, email, phone, role) VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Username, u.PasswordHash, u.Email, u.Phone, u.Role,
	)
	if err != nil {
		return fmt.Errorf("store: create user: %w", mapErr(err))
	}
	return nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	u := &model.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, email, phone, role, profile_picture,
		        mfa_enabled, email_verified, created_at, updated_at
		 FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.Phone, &u.Role, &u.ProfilePicture,
		&u.MFAEnabled, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: user by username: %w", mapErr(err))
	}
	return u, nil
}

func (s *Store) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: user exists: %w", err)
	}
	return exists, nil
}

// UpdateProfile overwrites the contact fields of an existing user.
func (s *Store) UpdateProfile(ctx context.Context, username, email, phone string, picture *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET email=$1, phone=$2, profile_picture=$3, updated_at=NOW()
		 WHERE username=$4`,
		email, phone, picture, username,
	)
	if err != nil {
		return fmt.Errorf("store: update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("store: update profile: %w", ErrNotFound)
	}
	return nil
}

func (s *Store) SetMFA(ctx context.Context, username string, enabled bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET mfa_enabled=$1, updated_at=NOW() WHERE username=$2`,
		enabled, username,
	)
	if err != nil {
		return fmt.Errorf("store: set mfa: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("store: set mfa: %w", ErrNotFound)
	}
	return nil
}
