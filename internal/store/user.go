package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/contactsbook/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password, avatar, refresh_token, role, confirmed, created_at, updated_at`

func scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Password,
		&user.Avatar,
		&user.RefreshToken,
		&user.Role,
		&user.Confirmed,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (username, email, password, avatar, role, confirmed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.Password,
		user.Avatar,
		user.Role,
		user.Confirmed,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, translateError(err)
	}
	return user, nil
}

// UpdateRefreshToken stores the latest refresh token issued to the user.
// An empty token clears the stored value, forcing a fresh login.
func (r *UserRepository) UpdateRefreshToken(ctx context.Context, id int, token string) error {
	const query = `
		UPDATE users
		SET refresh_token = $1,
			updated_at = $2
		WHERE id = $3`
	return r.exec(ctx, query, token, time.Now(), id)
}

// ConfirmEmail flips the confirmed flag for the user with the given email.
func (r *UserRepository) ConfirmEmail(ctx context.Context, email string) error {
	const query = `
		UPDATE users
		SET confirmed = true,
			updated_at = $1
		WHERE email = $2`
	return r.exec(ctx, query, time.Now(), email)
}

// UpdateAvatar stores the avatar URL for the user.
func (r *UserRepository) UpdateAvatar(ctx context.Context, id int, avatarURL string) error {
	const query = `
		UPDATE users
		SET avatar = $1,
			updated_at = $2
		WHERE id = $3`
	return r.exec(ctx, query, avatarURL, time.Now(), id)
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
