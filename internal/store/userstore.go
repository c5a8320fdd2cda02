package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"uk.co.dudmesh.pinboard/internal/model"
)

type UserStore struct {
	db *sqlx.DB
	retrier
}

func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	return s.do(ctx, "inserting user", func(ctx context.Context) error {
		res, err := s.db.NamedExecContext(ctx, `insert into users
			(ID, CreatedAt, Status, Handle, Email, Profile, Password, IsVerified)
			values(:ID, :CreatedAt, :Status, :Handle, :Email, :Profile, :Password, :IsVerified)`, user)
		if err != nil {
			if isUniqueViolation(err) {
				return model.ErrorHandleTaken
			}
			return err
		}
		if rows, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		} else if rows != 1 {
			return fmt.Errorf("expected 1 row to be affected, got %d", rows)
		}
		return nil
	})
}

func (s *UserStore) Get(ctx context.Context, userID model.UserID) (*model.User, error) {
	return s.fetch(ctx, `select * from users where ID = ?`, userID)
}

func (s *UserStore) GetByHandle(ctx context.Context, handle string) (*model.User, error) {
	return s.fetch(ctx, `select * from users where Handle = ?`, handle)
}

func (s *UserStore) fetch(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	err := s.do(ctx, "fetching user", func(ctx context.Context) error {
		err := s.db.GetContext(ctx, user, query, arg)
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrorUserNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserStore) SetVerified(ctx context.Context, userID model.UserID, verified bool) error {
	return s.do(ctx, "updating verification", func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `update users
			set IsVerified = ?, UpdatedAt = ?, Version = Version + 1
			where ID = ?`, verified, time.Now().UTC(), userID)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		}
		if rows == 0 {
			return model.ErrorUserNotFound
		}
		return nil
	})
}

// UpdatePasswordState writes the password-change fields only if the row is
// still at expectedVersion, and bumps the version on success.
func (s *UserStore) UpdatePasswordState(ctx context.Context, userID model.UserID, expectedVersion int64, update model.PasswordStateUpdate) error {
	return s.do(ctx, "updating password state", func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `update users
			set Password = coalesce(?, Password),
				PasswordChangeCount = ?,
				PasswordChangeLockUntil = ?,
				UpdatedAt = ?,
				Version = Version + 1
			where ID = ? and Version = ?`,
			update.PasswordHash,
			update.PasswordChangeCount,
			utcOrNil(update.PasswordChangeLockUntil),
			time.Now().UTC(),
			userID,
			expectedVersion,
		)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		}
		if rows == 1 {
			return nil
		}

		var exists int
		if err := s.db.GetContext(ctx, &exists, `select count(*) from users where ID = ?`, userID); err != nil {
			return err
		}
		if exists == 0 {
			return model.ErrorUserNotFound
		}
		return model.ErrorVersionConflict
	})
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
