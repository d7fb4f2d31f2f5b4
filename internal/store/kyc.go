package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/brikvest/apiserver/types"
)

// KYCRepository handles persistence for identity documents.
type KYCRepository struct {
	db *sql.DB
}

func NewKYCRepository(db *sql.DB) *KYCRepository {
	return &KYCRepository{db: db}
}

func (r *KYCRepository) Create(ctx context.Context, doc types.KYCDocument) (types.KYCDocument, error) {
	doc.CreatedAt = time.Now()
	doc.Status = types.KYCStatusPending

	const query = `
		INSERT INTO kyc_documents (user_id, document_type, object_key, status, review_note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		doc.UserID,
		doc.DocumentType,
		doc.ObjectKey,
		doc.Status,
		doc.ReviewNote,
		doc.CreatedAt,
	).Scan(&doc.ID); err != nil {
		return types.KYCDocument{}, mapError(err)
	}
	return doc, nil
}

func (r *KYCRepository) Get(ctx context.Context, id int) (types.KYCDocument, error) {
	const query = `
		SELECT id, user_id, document_type, object_key, status, review_note, created_at, reviewed_at
		FROM kyc_documents
		WHERE id = $1`
	var doc types.KYCDocument
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.DocumentType,
		&doc.ObjectKey,
		&doc.Status,
		&doc.ReviewNote,
		&doc.CreatedAt,
		&doc.ReviewedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.KYCDocument{}, ErrNotFound
		}
		return types.KYCDocument{}, err
	}
	return doc, nil
}

func (r *KYCRepository) ListByUser(ctx context.Context, userID int) ([]types.KYCDocument, error) {
	const query = `
		SELECT id, user_id, document_type, object_key, status, review_note, created_at, reviewed_at
		FROM kyc_documents
		WHERE user_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// ListPending returns documents awaiting review, oldest first.
func (r *KYCRepository) ListPending(ctx context.Context) ([]types.KYCDocument, error) {
	const query = `
		SELECT id, user_id, document_type, object_key, status, review_note, created_at, reviewed_at
		FROM kyc_documents
		WHERE status = 'pending'
		ORDER BY created_at`
	return r.list(ctx, query)
}

func (r *KYCRepository) list(ctx context.Context, query string, args ...any) ([]types.KYCDocument, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []types.KYCDocument
	for rows.Next() {
		var doc types.KYCDocument
		if err := rows.Scan(
			&doc.ID,
			&doc.UserID,
			&doc.DocumentType,
			&doc.ObjectKey,
			&doc.Status,
			&doc.ReviewNote,
			&doc.CreatedAt,
			&doc.ReviewedAt,
		); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Review records the decision for a pending document.
func (r *KYCRepository) Review(ctx context.Context, id int, status, note string) (types.KYCDocument, error) {
	const query = `
		UPDATE kyc_documents
		SET status = $1, review_note = $2, reviewed_at = $3
		WHERE id = $4 AND status = 'pending'`
	now := time.Now()
	result, err := r.db.ExecContext(ctx, query, status, note, now, id)
	if err != nil {
		return types.KYCDocument{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.KYCDocument{}, err
	}
	if affected == 0 {
		return types.KYCDocument{}, ErrNotFound
	}
	return r.Get(ctx, id)
}
