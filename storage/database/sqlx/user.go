package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/user"
)

const userColumns = `user_id, email, full_name, role, is_active, password_hash, created_at, updated_at, last_login`

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int) error {
	q := `SELECT COUNT(*) FROM users WHERE email = ?`
	args := []interface{}{email}
	if len(excludedIDs) > 0 {
		var err error
		q, args, err = sqlx.In(q+` AND user_id NOT IN (?)`, email, excludedIDs)
		if err != nil {
			return errors.Wrap(err, "expanding excluded IDs")
		}
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "counting users by email")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO users (email, full_name, role, is_active, password_hash, created_at, updated_at)
		OUTPUT INSERTED.user_id
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	err := repo.db.GetContext(ctx, &usr.ID, repo.db.Rebind(q),
		usr.Email, usr.Name, usr.Role, usr.IsActive, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) getUser(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var usr user.User
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	if err := repo.db.GetContext(ctx, &usr, repo.db.Rebind(q), arg); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	return repo.getUser(ctx, `user_id = ?`, id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, `email = ?`, email)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users
		SET email = ?, full_name = ?, role = ?, is_active = ?, password_hash = ?, updated_at = ?
		WHERE user_id = ?`
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q),
		usr.Email, usr.Name, usr.Role, usr.IsActive, usr.PasswordHash, usr.UpdatedAt, usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = expectAffected(res); err != nil {
		return user.User{}, notFoundOr(err, user.ErrNotFound)
	}
	return usr, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id int, at time.Time) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`UPDATE users SET last_login = ? WHERE user_id = ?`), at, id)
	if err != nil {
		return errors.Wrap(err, "updating last login")
	}
	return notFoundOr(expectAffected(res), user.ErrNotFound)
}
