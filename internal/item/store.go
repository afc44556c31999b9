package item

import (
	"context"

	"github.com/google/uuid"
)

// Filter is used to filter items.
// Returned items must match all the provided fields.
// If a field is empty or nil, it's ignored.
type Filter struct {
	IDs          []uuid.UUID
	OwnerIDs     []uuid.UUID
	NameContains string
	IsAvailable  *bool
}

// Store provides access to the item store.
type Store interface {
	CreateItem(ctx context.Context, it *Item) error
	UpdateItem(ctx context.Context, it *Item) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	FindItems(ctx context.Context, filter *Filter) ([]Item, error)
}
