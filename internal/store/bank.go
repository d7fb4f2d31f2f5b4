package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/brikvest/apiserver/types"
)

// BankRepository handles persistence for user bank accounts.
type BankRepository struct {
	db *sql.DB
}

func NewBankRepository(db *sql.DB) *BankRepository {
	return &BankRepository{db: db}
}

func (r *BankRepository) Create(ctx context.Context, account types.BankAccount) (types.BankAccount, error) {
	account.CreatedAt = time.Now()

	const query = `
		INSERT INTO bank_accounts (user_id, bank_code, bank_name, account_number,
			account_name, recipient_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		account.UserID,
		account.BankCode,
		account.BankName,
		account.AccountNumber,
		account.AccountName,
		account.RecipientCode,
		account.CreatedAt,
	).Scan(&account.ID); err != nil {
		return types.BankAccount{}, mapError(err)
	}
	return account, nil
}

func (r *BankRepository) Get(ctx context.Context, id int) (types.BankAccount, error) {
	const query = `
		SELECT id, user_id, bank_code, bank_name, account_number, account_name,
			recipient_code, created_at
		FROM bank_accounts
		WHERE id = $1`
	var account types.BankAccount
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.UserID,
		&account.BankCode,
		&account.BankName,
		&account.AccountNumber,
		&account.AccountName,
		&account.RecipientCode,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.BankAccount{}, ErrNotFound
		}
		return types.BankAccount{}, err
	}
	return account, nil
}

func (r *BankRepository) ListByUser(ctx context.Context, userID int) ([]types.BankAccount, error) {
	const query = `
		SELECT id, user_id, bank_code, bank_name, account_number, account_name,
			recipient_code, created_at
		FROM bank_accounts
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []types.BankAccount
	for rows.Next() {
		var account types.BankAccount
		if err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.BankCode,
			&account.BankName,
			&account.AccountNumber,
			&account.AccountName,
			&account.RecipientCode,
			&account.CreatedAt,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *BankRepository) Delete(ctx context.Context, id, userID int) error {
	const query = `DELETE FROM bank_accounts WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
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
