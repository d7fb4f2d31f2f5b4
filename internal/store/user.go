package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/brikvest/apiserver/types"
)

// UserRepository handles persistence for users. All lookups exclude
// soft-deleted rows.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, phone, first_name, last_name, account_type,
		email_verified, kyc_status, COALESCE(referral_code, ''), password_hash,
		created_at, updated_at, deleted_at`

func scanUser(row interface{ Scan(...any) error }) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Phone,
		&user.FirstName,
		&user.LastName,
		&user.AccountType,
		&user.EmailVerified,
		&user.KYCStatus,
		&user.ReferralCode,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
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
		WHERE id = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail matches case-insensitively; emails are stored lowercased
// but lookups defend against legacy mixed-case rows.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1) AND deleted_at IS NULL`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE referral_code = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRowContext(ctx, query, code))
}

// Create inserts the user and assigns the default role in a single
// transaction, so a failure cannot leave a user without a role.
func (r *UserRepository) Create(ctx context.Context, user types.User, defaultRole string) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.User{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertUser = `
		INSERT INTO users (email, phone, first_name, last_name, account_type,
			email_verified, kyc_status, referral_code, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insertUser,
		user.Email,
		user.Phone,
		user.FirstName,
		user.LastName,
		user.AccountType,
		user.EmailVerified,
		user.KYCStatus,
		user.ReferralCode,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, mapError(err)
	}

	const assignRole = `
		INSERT INTO user_roles (user_id, role_id, created_at)
		SELECT $1, id, $2 FROM roles WHERE name = $3`
	result, err := tx.ExecContext(ctx, assignRole, user.ID, now, defaultRole)
	if err != nil {
		return types.User{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	const query = `
		UPDATE users
		SET phone = $1,
			first_name = $2,
			last_name = $3,
			password_hash = $4,
			kyc_status = $5,
			updated_at = $6
		WHERE id = $7 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Phone,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.KYCStatus,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

// MarkEmailVerified flips the verification flag.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id int) error {
	const query = `
		UPDATE users
		SET email_verified = TRUE, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
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

// SoftDelete stamps deleted_at instead of removing the row.
func (r *UserRepository) SoftDelete(ctx context.Context, id int) error {
	const query = `
		UPDATE users
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
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

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	const countQuery = `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY id
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
