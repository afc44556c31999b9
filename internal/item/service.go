package item

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tmorioka/sharefood/internal/errorz"
)

// ErrNotOwner indicates the acting user does not own the item.
var ErrNotOwner = errors.New("not the owner of this item")

// NewItem is a request to list a new item.
type NewItem struct {
	Name        string
	Description string
	Quantity    int
	Unit        string
	ExpiresOn   *time.Time
	Location    string
	ImageURL    string
	Latitude    *float64
	Longitude   *float64
}

// Service provides the rules for managing item listings. Mutations are
// only allowed for the owner of the item, reads are public.
type Service struct {
	store Store

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:   store,
		NowFunc: time.Now,
	}
}

// Create lists a new item owned by owner.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, in NewItem) (Item, error) {
	now := s.NowFunc().UTC()

	it := Item{
		ID:          uuid.New(),
		OwnerID:     owner,
		Name:        in.Name,
		Description: in.Description,
		Quantity:    in.Quantity,
		Unit:        in.Unit,
		ExpiresOn:   in.ExpiresOn,
		Location:    in.Location,
		ImageURL:    in.ImageURL,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		IsAvailable: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateItem(ctx, &it); err != nil {
		return Item{}, err
	}

	return it, nil
}

// Get returns the item with the provided id.
// It returns errorz.ErrNotFound if no such item exists.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Item, error) {
	items, err := s.store.FindItems(ctx, &Filter{
		IDs: []uuid.UUID{id},
	})
	if err != nil {
		return Item{}, err
	}

	if len(items) != 1 {
		return Item{}, errorz.ErrNotFound
	}

	return items[0], nil
}

// List returns all items matching the provided filter, newest first.
func (s *Service) List(ctx context.Context, filter *Filter) ([]Item, error) {
	return s.store.FindItems(ctx, filter)
}

// Update applies the patch to the item with the provided id on behalf
// of actor.
//
// An unknown id yields errorz.ErrNotFound before any ownership check,
// so a missing item and a foreign item are not reported the same way.
// An actor that does not own the item gets ErrNotOwner.
func (s *Service) Update(ctx context.Context, actor, id uuid.UUID, patch Patch) (Item, error) {
	it, err := s.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}

	if it.OwnerID != actor {
		return Item{}, ErrNotOwner
	}

	patch.apply(&it)
	it.UpdatedAt = s.NowFunc().UTC()

	if err := s.store.UpdateItem(ctx, &it); err != nil {
		return Item{}, err
	}

	return it, nil
}

// Delete removes the item with the provided id on behalf of actor.
// The same not-found-before-ownership order as Update applies.
func (s *Service) Delete(ctx context.Context, actor, id uuid.UUID) error {
	it, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if it.OwnerID != actor {
		return ErrNotOwner
	}

	return s.store.DeleteItem(ctx, it.ID)
}
