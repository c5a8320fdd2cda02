package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"uk.co.dudmesh.pinboard/internal/credential"
	"uk.co.dudmesh.pinboard/internal/model"
	"uk.co.dudmesh.pinboard/internal/validation"
)

type Database interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, userID model.UserID) (*model.User, error)
	GetByHandle(ctx context.Context, handle string) (*model.User, error)
	SetVerified(ctx context.Context, userID model.UserID, verified bool) error
}

type service struct {
	db        Database
	validator *validation.Validator
	cost      int
}

func New(db Database) *service {
	return &service{db: db, validator: validation.New(), cost: credential.DefaultCost}
}

func (s *service) Create(ctx context.Context, params *model.CreateUserParams) (*model.User, error) {
	normalised := *params
	normalised.Handle = strings.TrimSpace(params.Handle)
	if err := s.validator.Validate(&normalised); err != nil {
		if validation.Failed(err, "password") {
			return nil, fmt.Errorf("%w: %w", model.ErrorPasswordTooShort, err)
		}
		return nil, fmt.Errorf("%w: %w", model.ErrorInvalidUserParams, err)
	}

	encodedPassword, err := credential.Hash(params.Password, s.cost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:        model.NewUserID(),
		CreatedAt: time.Now().UTC(),
		Status:    model.UserStatusActive,
		Handle:    normalised.Handle,
		Email:     normalised.Email,
		Password:  encodedPassword,
	}

	if err := s.db.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

func (s *service) Fetch(ctx context.Context, userID model.UserID) (*model.User, error) {
	user, err := s.db.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}

	return user, nil
}

// Authenticate returns the user for a handle and password. An unknown handle
// and a wrong password are indistinguishable to the caller.
func (s *service) Authenticate(ctx context.Context, handle, password string) (*model.User, error) {
	user, err := s.db.GetByHandle(ctx, strings.TrimSpace(handle))
	if errors.Is(err, model.ErrorUserNotFound) {
		return nil, model.ErrorInvalidUsernameOrPassword
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}

	if err := credential.Verify(user.Password, password); err != nil {
		if errors.Is(err, model.ErrorInvalidCredential) {
			return nil, model.ErrorInvalidUsernameOrPassword
		}
		return nil, err
	}
	if user.Status != model.UserStatusActive {
		return nil, model.ErrorInvalidUsernameOrPassword
	}

	return user, nil
}

func (s *service) SetVerified(ctx context.Context, userID model.UserID, verified bool) (*model.User, error) {
	if err := s.db.SetVerified(ctx, userID, verified); err != nil {
		return nil, fmt.Errorf("updating verification: %w", err)
	}
	return s.Fetch(ctx, userID)
}
