package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avolkovs/authcore/internal/common"
	"github.com/avolkovs/authcore/internal/dbx"
	"github.com/avolkovs/authcore/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := userSelect + ` WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := userSelect + ` WHERE id = $1`
	return r.getOne(ctx, query, id)
}

const userSelect = `
	SELECT id, email, name, password_hash,
	       two_factor_state, two_factor_secret,
	       reset_token, reset_token_expires_at, created_at
	FROM users`

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var state int
	var resetToken sql.NullString
	var resetExpires sql.NullTime

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&state, &user.TwoFactor.Secret,
		&resetToken, &resetExpires, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.TwoFactor.State = models.TwoFactorState(state)
	if resetToken.Valid {
		user.ResetToken = resetToken.String
	}
	if resetExpires.Valid {
		t := resetExpires.Time
		user.ResetTokenExpires = &t
	}
	return user, nil
}

func (r *PostgresRepository) SetTwoFactorPending(ctx context.Context, userID, secret string) error {
	query := `
		UPDATE users
		SET two_factor_state = $2, two_factor_secret = $3
		WHERE id = $1
	`
	return r.exec(ctx, query, userID, int(models.TwoFactorPending), secret)
}

func (r *PostgresRepository) ConfirmTwoFactor(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET two_factor_state = $2
		WHERE id = $1 AND two_factor_state = $3
	`
	return r.exec(ctx, query, userID, int(models.TwoFactorEnabled), int(models.TwoFactorPending))
}

func (r *PostgresRepository) DisableTwoFactor(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET two_factor_state = $2, two_factor_secret = ''
		WHERE id = $1
	`
	return r.exec(ctx, query, userID, int(models.TwoFactorOff))
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, userID, token string, expires time.Time) error {
	query := `
		UPDATE users
		SET reset_token = $2, reset_token_expires_at = $3
		WHERE id = $1
	`
	return r.exec(ctx, query, userID, token, expires)
}

func (r *PostgresRepository) ConsumeResetToken(ctx context.Context, token, newPasswordHash string) error {
	// The WHERE clause is the single-use guarantee: the row update and the
	// token-clearing happen in one statement, so a token can only ever be
	// consumed once and only before its expiry.
	query := `
		UPDATE users
		SET password_hash = $2, reset_token = NULL, reset_token_expires_at = NULL
		WHERE reset_token = $1 AND reset_token_expires_at >= now()
	`
	return r.exec(ctx, query, token, newPasswordHash)
}

// exec runs an UPDATE and translates "no rows touched" to ErrorNotFound.
func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}
