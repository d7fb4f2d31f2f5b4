package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/brikvest/apiserver/types"
	"github.com/lib/pq"
)

// PropertyRepository handles persistence for investment listings.
type PropertyRepository struct {
	db *sql.DB
}

func NewPropertyRepository(db *sql.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

func (r *PropertyRepository) List(ctx context.Context, offset, limit int) ([]types.Property, int, error) {
	const countQuery = `SELECT COUNT(*) FROM properties WHERE status <> 'archived'`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT id, title, description, location, unit_price, total_units,
			available_units, expected_roi, status, image_keys, created_at, updated_at
		FROM properties
		WHERE status <> 'archived'
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var properties []types.Property
	for rows.Next() {
		var p types.Property
		if err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.Description,
			&p.Location,
			&p.UnitPrice,
			&p.TotalUnits,
			&p.AvailableUnits,
			&p.ExpectedROI,
			&p.Status,
			pq.Array(&p.ImageKeys),
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return properties, total, nil
}

func (r *PropertyRepository) Get(ctx context.Context, id int) (types.Property, error) {
	const query = `
		SELECT id, title, description, location, unit_price, total_units,
			available_units, expected_roi, status, image_keys, created_at, updated_at
		FROM properties
		WHERE id = $1`
	var p types.Property
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Location,
		&p.UnitPrice,
		&p.TotalUnits,
		&p.AvailableUnits,
		&p.ExpectedROI,
		&p.Status,
		pq.Array(&p.ImageKeys),
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Property{}, ErrNotFound
		}
		return types.Property{}, err
	}
	return p, nil
}

func (r *PropertyRepository) Create(ctx context.Context, p types.Property) (types.Property, error) {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	const query = `
		INSERT INTO properties (title, description, location, unit_price, total_units,
			available_units, expected_roi, status, image_keys, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		p.Title,
		p.Description,
		p.Location,
		p.UnitPrice,
		p.TotalUnits,
		p.AvailableUnits,
		p.ExpectedROI,
		p.Status,
		pq.Array(p.ImageKeys),
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID); err != nil {
		return types.Property{}, mapError(err)
	}
	return p, nil
}

func (r *PropertyRepository) Update(ctx context.Context, p types.Property) (types.Property, error) {
	p.UpdatedAt = time.Now()

	const query = `
		UPDATE properties
		SET title = $1,
			description = $2,
			location = $3,
			unit_price = $4,
			total_units = $5,
			available_units = $6,
			expected_roi = $7,
			status = $8,
			image_keys = $9,
			updated_at = $10
		WHERE id = $11`
	result, err := r.db.ExecContext(
		ctx,
		query,
		p.Title,
		p.Description,
		p.Location,
		p.UnitPrice,
		p.TotalUnits,
		p.AvailableUnits,
		p.ExpectedROI,
		p.Status,
		pq.Array(p.ImageKeys),
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return types.Property{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Property{}, err
	}
	if affected == 0 {
		return types.Property{}, ErrNotFound
	}
	return p, nil
}

func (r *PropertyRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM properties WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
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

// ReserveUnits decrements available units if enough remain. Returns
// ErrConflict when the listing cannot cover the requested units.
func (r *PropertyRepository) ReserveUnits(ctx context.Context, id, units int) error {
	const query = `
		UPDATE properties
		SET available_units = available_units - $1, updated_at = now()
		WHERE id = $2 AND available_units >= $1 AND status = 'open'`
	result, err := r.db.ExecContext(ctx, query, units, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

// ReleaseUnits returns units to a listing, e.g. after a cancelled payment.
func (r *PropertyRepository) ReleaseUnits(ctx context.Context, id, units int) error {
	const query = `
		UPDATE properties
		SET available_units = LEAST(available_units + $1, total_units), updated_at = now()
		WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, units, id)
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
