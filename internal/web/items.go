package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tmorioka/sharefood/internal/errorz"
	"github.com/tmorioka/sharefood/internal/item"
	"github.com/tmorioka/sharefood/internal/session"
)

const (
	maxItemNameLen        = 50
	maxItemDescriptionLen = 255
	maxItemUnitLen        = 10
	maxItemLocationLen    = 120
)

var (
	errItemNameRequired   = errors.New("name is required")
	errItemNameTooLong    = errors.New("name must be at most 50 characters")
	errDescriptionTooLong = errors.New("description must be at most 255 characters")
	errQuantityTooSmall   = errors.New("quantity must be at least 1")
	errUnitTooLong        = errors.New("unit must be at most 10 characters")
	errLocationTooLong    = errors.New("location must be at most 120 characters")
)

// itemIn is the request body for creating and updating items. All
// fields are pointers so updates can distinguish absent fields from
// zero values.
type itemIn struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Quantity    *int       `json:"quantity"`
	Unit        *string    `json:"unit"`
	ExpiresOn   *time.Time `json:"expires_on"`
	Location    *string    `json:"location"`
	ImageURL    *string    `json:"image_url"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	IsAvailable *bool      `json:"is_available"`
}

// validate checks the fields that are present. All length limits count
// characters, not bytes.
func (in *itemIn) validate() errorz.InvalidInput {
	var invalid errorz.InvalidInput

	if in.Name != nil {
		switch {
		case *in.Name == "":
			invalid = append(invalid, errorz.Keyed{Key: "name", Err: errItemNameRequired})
		case utf8.RuneCountInString(*in.Name) > maxItemNameLen:
			invalid = append(invalid, errorz.Keyed{Key: "name", Err: errItemNameTooLong})
		}
	}

	if in.Description != nil && utf8.RuneCountInString(*in.Description) > maxItemDescriptionLen {
		invalid = append(invalid, errorz.Keyed{Key: "description", Err: errDescriptionTooLong})
	}

	if in.Quantity != nil && *in.Quantity < 1 {
		invalid = append(invalid, errorz.Keyed{Key: "quantity", Err: errQuantityTooSmall})
	}

	if in.Unit != nil && utf8.RuneCountInString(*in.Unit) > maxItemUnitLen {
		invalid = append(invalid, errorz.Keyed{Key: "unit", Err: errUnitTooLong})
	}

	if in.Location != nil && utf8.RuneCountInString(*in.Location) > maxItemLocationLen {
		invalid = append(invalid, errorz.Keyed{Key: "location", Err: errLocationTooLong})
	}

	return invalid
}

type itemJSON struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Quantity    int        `json:"quantity"`
	Unit        string     `json:"unit"`
	ExpiresOn   *time.Time `json:"expires_on"`
	Location    string     `json:"location"`
	ImageURL    string     `json:"image_url"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	IsAvailable bool       `json:"is_available"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func itemToJSON(it item.Item) itemJSON {
	return itemJSON{
		ID:          it.ID,
		OwnerID:     it.OwnerID,
		Name:        it.Name,
		Description: it.Description,
		Quantity:    it.Quantity,
		Unit:        it.Unit,
		ExpiresOn:   it.ExpiresOn,
		Location:    it.Location,
		ImageURL:    it.ImageURL,
		Latitude:    it.Latitude,
		Longitude:   it.Longitude,
		IsAvailable: it.IsAvailable,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := UserIDFromContext(r.Context())
	if !ok {
		s.handleError(w, r, session.ErrMissingToken)
		return
	}

	var in itemIn
	if err := s.readJSON(r, &in); err != nil {
		s.handleError(w, r, err)
		return
	}

	invalid := in.validate()

	// Creation requires the fields that updates may omit.
	if in.Name == nil {
		invalid = append(invalid, errorz.Keyed{Key: "name", Err: errItemNameRequired})
	}
	if in.Quantity == nil {
		invalid = append(invalid, errorz.Keyed{Key: "quantity", Err: errQuantityTooSmall})
	}

	if len(invalid) > 0 {
		s.handleError(w, r, invalid)
		return
	}

	newItem := item.NewItem{
		Name:      *in.Name,
		Quantity:  *in.Quantity,
		ExpiresOn: in.ExpiresOn,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
	}
	if in.Description != nil {
		newItem.Description = *in.Description
	}
	if in.Unit != nil {
		newItem.Unit = *in.Unit
	}
	if in.Location != nil {
		newItem.Location = *in.Location
	}
	if in.ImageURL != nil {
		newItem.ImageURL = *in.ImageURL
	}

	it, err := s.deps.ItemService.Create(r.Context(), owner, newItem)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"item": itemToJSON(it),
	})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	it, err := s.deps.ItemService.Get(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"item": itemToJSON(it),
	})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	filter := &item.Filter{
		NameContains: r.URL.Query().Get("name"),
	}

	if raw := r.URL.Query().Get("is_available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			s.handleError(w, r, errorz.InvalidInput{
				errorz.Keyed{Key: "is_available", Err: errors.New("must be true or false")},
			})
			return
		}
		filter.IsAvailable = &available
	}

	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			s.handleError(w, r, errorz.InvalidInput{
				errorz.Keyed{Key: "owner_id", Err: errors.New("must be a uuid")},
			})
			return
		}
		filter.OwnerIDs = []uuid.UUID{ownerID}
	}

	items, err := s.deps.ItemService.List(r.Context(), filter)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	out := make([]itemJSON, 0, len(items))
	for _, it := range items {
		out = append(out, itemToJSON(it))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"items": out,
	})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := UserIDFromContext(r.Context())
	if !ok {
		s.handleError(w, r, session.ErrMissingToken)
		return
	}

	id, err := itemID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	var in itemIn
	if err := s.readJSON(r, &in); err != nil {
		s.handleError(w, r, err)
		return
	}

	if invalid := in.validate(); len(invalid) > 0 {
		s.handleError(w, r, invalid)
		return
	}

	it, err := s.deps.ItemService.Update(r.Context(), actor, id, item.Patch{
		Name:        in.Name,
		Description: in.Description,
		Quantity:    in.Quantity,
		Unit:        in.Unit,
		ExpiresOn:   in.ExpiresOn,
		Location:    in.Location,
		ImageURL:    in.ImageURL,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		IsAvailable: in.IsAvailable,
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"item": itemToJSON(it),
	})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := UserIDFromContext(r.Context())
	if !ok {
		s.handleError(w, r, session.ErrMissingToken)
		return
	}

	id, err := itemID(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	err = s.deps.ItemService.Delete(r.Context(), actor, id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
	})
}

// itemID parses the item id from the URL. Unparseable ids are treated
// the same as unknown items.
func itemID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errorz.ErrNotFound
	}

	return id, nil
}
