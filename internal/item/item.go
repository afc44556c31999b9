package item

import (
	"time"

	"github.com/google/uuid"
)

// Item is a food listing offered by a user.
type Item struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Description string
	Quantity    int
	Unit        string
	ExpiresOn   *time.Time
	Location    string
	ImageURL    string
	Latitude    *float64
	Longitude   *float64
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Patch describes a partial update of an item. Nil fields are left
// unchanged. OwnerID and the timestamps are managed by the service and
// cannot be patched.
type Patch struct {
	Name        *string
	Description *string
	Quantity    *int
	Unit        *string
	ExpiresOn   *time.Time
	Location    *string
	ImageURL    *string
	Latitude    *float64
	Longitude   *float64
	IsAvailable *bool
}

// apply copies the set fields of the patch onto the item.
func (p Patch) apply(it *Item) {
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		it.Unit = *p.Unit
	}
	if p.ExpiresOn != nil {
		it.ExpiresOn = p.ExpiresOn
	}
	if p.Location != nil {
		it.Location = *p.Location
	}
	if p.ImageURL != nil {
		it.ImageURL = *p.ImageURL
	}
	if p.Latitude != nil {
		it.Latitude = p.Latitude
	}
	if p.Longitude != nil {
		it.Longitude = p.Longitude
	}
	if p.IsAvailable != nil {
		it.IsAvailable = *p.IsAvailable
	}
}
