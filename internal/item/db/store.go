// Package db implements the item store on top of SQLite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tmorioka/sharefood/internal/db"
	"github.com/tmorioka/sharefood/internal/errorz"
	"github.com/tmorioka/sharefood/internal/item"
)

// Store is responsible for persisting items in a database.
type Store struct {
	db *sql.DB
}

// New creates a new Store.
func New(db *sql.DB) *Store {
	return &Store{
		db: db,
	}
}

// CreateItem creates an item in the database.
func (s *Store) CreateItem(ctx context.Context, it *item.Item) error {
	if it.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	var q db.Query
	q.Unsafe(`INSERT INTO items (id, owner_id, name, description, quantity, unit, expires_on, location, image_url, latitude, longitude, is_available, created_at, updated_at) VALUES (`)
	q.Params(it.ID, it.OwnerID, it.Name, it.Description, it.Quantity, it.Unit, timeParam(it.ExpiresOn), it.Location, it.ImageURL, floatParam(it.Latitude), floatParam(it.Longitude), it.IsAvailable, it.CreatedAt, it.UpdatedAt)
	q.Unsafe(`)`)

	str, params := q.Get()

	_, err := s.db.ExecContext(ctx, str, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

// UpdateItem updates an item in the database.
// It returns errorz.ErrNotFound if no item is found.
func (s *Store) UpdateItem(ctx context.Context, it *item.Item) error {
	var q db.Query
	q.Unsafe(`UPDATE items SET `)

	q.Unsafe(`name = `)
	q.Param(it.Name)

	q.Unsafe(`, description = `)
	q.Param(it.Description)

	q.Unsafe(`, quantity = `)
	q.Param(it.Quantity)

	q.Unsafe(`, unit = `)
	q.Param(it.Unit)

	q.Unsafe(`, expires_on = `)
	q.Param(timeParam(it.ExpiresOn))

	q.Unsafe(`, location = `)
	q.Param(it.Location)

	q.Unsafe(`, image_url = `)
	q.Param(it.ImageURL)

	q.Unsafe(`, latitude = `)
	q.Param(floatParam(it.Latitude))

	q.Unsafe(`, longitude = `)
	q.Param(floatParam(it.Longitude))

	q.Unsafe(`, is_available = `)
	q.Param(it.IsAvailable)

	q.Unsafe(`, updated_at = `)
	q.Param(it.UpdatedAt)

	q.Unsafe(` WHERE id = `)
	q.Param(it.ID)

	str, params := q.Get()

	result, err := s.db.ExecContext(ctx, str, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("item not found: %w", errorz.ErrNotFound)
	}

	return nil
}

// DeleteItem deletes an item from the database.
// It returns errorz.ErrNotFound if no item is found.
func (s *Store) DeleteItem(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("item not found: %w", errorz.ErrNotFound)
	}

	return nil
}

// FindItems queries for items based on the provided filter, newest first.
func (s *Store) FindItems(ctx context.Context, f *item.Filter) ([]item.Item, error) {
	var q db.Query
	q.Unsafe(`SELECT id, owner_id, name, description, quantity, unit, expires_on, location, image_url, latitude, longitude, is_available, created_at, updated_at FROM items WHERE 1=1 `)

	if len(f.IDs) > 0 {
		q.Unsafe(`AND id IN (`)
		q.Params(anySlice(f.IDs)...)
		q.Unsafe(`) `)
	}

	if len(f.OwnerIDs) > 0 {
		q.Unsafe(`AND owner_id IN (`)
		q.Params(anySlice(f.OwnerIDs)...)
		q.Unsafe(`) `)
	}

	if f.NameContains != "" {
		q.Unsafe(`AND name LIKE `)
		q.Param("%" + f.NameContains + "%")
	}

	if f.IsAvailable != nil {
		q.Unsafe(`AND is_available = `)
		q.Param(*f.IsAvailable)
	}

	q.Unsafe(` ORDER BY created_at DESC`)

	str, params := q.Get()

	rows, err := s.db.QueryContext(ctx, str, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]item.Item, 0)
	for rows.Next() {
		var (
			it        item.Item
			expiresOn sql.NullTime
			latitude  sql.NullFloat64
			longitude sql.NullFloat64
		)

		err := rows.Scan(&it.ID, &it.OwnerID, &it.Name, &it.Description, &it.Quantity, &it.Unit, &expiresOn, &it.Location, &it.ImageURL, &latitude, &longitude, &it.IsAvailable, &it.CreatedAt, &it.UpdatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		if expiresOn.Valid {
			t := expiresOn.Time.UTC()
			it.ExpiresOn = &t
		}

		if latitude.Valid {
			it.Latitude = &latitude.Float64
		}

		if longitude.Valid {
			it.Longitude = &longitude.Float64
		}

		it.CreatedAt = it.CreatedAt.UTC()
		it.UpdatedAt = it.UpdatedAt.UTC()

		out = append(out, it)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

// timeParam converts an optional time to a bind parameter.
func timeParam(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// floatParam converts an optional float to a bind parameter.
func floatParam(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func anySlice[T any](s []T) []any {
	out := make([]any, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	return out
}
