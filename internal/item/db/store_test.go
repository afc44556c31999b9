package db_test

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	itemdb "github.com/tmorioka/sharefood/internal/item/db"

	"github.com/tmorioka/sharefood/internal/db/testdb"
	"github.com/tmorioka/sharefood/internal/errorz"
	"github.com/tmorioka/sharefood/internal/item"
)

func Test_Store_CreateAndFindItems(t *testing.T) {
	t.Run("ok, create and find by id", func(t *testing.T) {
		sqlDB := testdb.RunWhile(t, true)
		store := itemdb.New(sqlDB)
		ownerID := insertTestUser(t, sqlDB, "alice@example.com")

		it := testItem(ownerID, "tomatoes", time.Date(2024, 1, 29, 18, 0, 0, 0, time.UTC))

		err := store.CreateItem(context.Background(), it)
		if err != nil {
			t.Fatalf("failed to create item: %v", err)
		}

		got, err := store.FindItems(context.Background(), &item.Filter{
			IDs: []uuid.UUID{it.ID},
		})
		if err != nil {
			t.Fatalf("failed to find items: %v", err)
		}

		want := []item.Item{*it}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got\n%#v\nwant\n%#v\n", got, want)
		}
	})

	t.Run("ok, optional fields round-trip", func(t *testing.T) {
		sqlDB := testdb.RunWhile(t, true)
		store := itemdb.New(sqlDB)
		ownerID := insertTestUser(t, sqlDB, "alice@example.com")

		expiresOn := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
		lat, lng := 51.589, 4.774

		it := testItem(ownerID, "bread", time.Date(2024, 1, 29, 18, 0, 0, 0, time.UTC))
		it.ExpiresOn = &expiresOn
		it.Latitude = &lat
		it.Longitude = &lng

		err := store.CreateItem(context.Background(), it)
		if err != nil {
			t.Fatalf("failed to create item: %v", err)
		}

		got, err := store.FindItems(context.Background(), &item.Filter{
			IDs: []uuid.UUID{it.ID},
		})
		if err != nil {
			t.Fatalf("failed to find items: %v", err)
		}

		want := []item.Item{*it}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got\n%#v\nwant\n%#v\n", got, want)
		}
	})

	t.Run("fail, zero id", func(t *testing.T) {
		sqlDB := testdb.RunWhile(t, true)
		store := itemdb.New(sqlDB)
		ownerID := insertTestUser(t, sqlDB, "alice@example.com")

		it := testItem(ownerID, "tomatoes", time.Date(2024, 1, 29, 18, 0, 0, 0, time.UTC))
		it.ID = uuid.Nil

		err := store.CreateItem(context.Background(), it)
		if !errors.Is(err, errorz.ErrConstraintViolated) {
			t.Fatalf("expected %v, but got %v (via errors.Is)", errorz.ErrConstraintViolated, err)
		}
	})

	t.Run("fail, unknown owner", func(t *testing.T) {
		sqlDB := testdb.RunWhile(t, true)
		store := itemdb.New(sqlDB)

		it := testItem(uuid.New(), "tomatoes", time.Date(2024, 1, 29, 18, 0, 0, 0, time.UTC))

		err := store.CreateItem(context.Background(), it)
		if !errors.Is(err, errorz.ErrConstraintViolated) {
			t.Fatalf("expected %v, but got %v (via errors.Is)", errorz.ErrConstraintViolated, err)
		}
	})
}

func Test_Store_FindItems_Filters(t *testing.T) {
	setup := func(t *testing.T) (*itemdb.Store, []item.Item) {
		t.Helper()

		sqlDB := testdb.RunWhile(t, true)
		store := itemdb.New(sqlDB)

		aliceID := insertTestUser(t, sqlDB, "alice@example.com")
		bobID := insertTestUser(t, sqlDB, "bob@example.com")

		items := []item.Item{
			*testItem(aliceID, "cherry tomatoes", time.Date(2024, 1, 29, 18, 0, 0, 0, time.UTC)),
			*testItem(aliceID, "sourdough bread", time.Date(2024, 1, 29, 19, 0, 0, 0, time.UTC)),
			*testItem(bobID, "tomato soup", time.Date(2024, 1, 29, 20, 0, 0, 0, time.UTC)),
		}
		items[1].IsAvailable = false

		for i := range items {
			err := store.CreateItem(context.Background(), &items[i])
			if err != nil {
				t.Fatalf("failed to create item: %v", err)
			}
		}

		return store, items
	}

	t.Run("ok, no filter returns all newest first", func(t *testing.T) {
		store, items := setup(t)

		got, err := store.FindItems(context.Background(), &item.Filter{})
		if err != nil {
			t.Fatalf("failed to find items: %v", err)
		}

		want := []item.Item{items[2], items[1], items[0]}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got\n%#v\nwant\n%#v\n", got, want)
		}
	})

	t.Run("ok, filter by owner", func(t *testing.T) {
		store, items := setup(t)

		got, err := store.FindItems(context.Background(), &item.Filter{
			OwnerIDs: []uuid.UUID{items[0].OwnerID},
		})
		if err != nil {
			t.Fatalf("failed to find items: %v", err)
		}

		want := []item.Item{items[1], items[0]}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got\n%#v\nwant\n%#v\n", got, want)
		}
	})

	t.Run("ok, filter by name substring", func(t *testing.T) {
		store, items := setup(t)

		got, err := store.FindItems(context.Background(), &item.Filter{
			NameContains: "tomato",
		})
		if err != nil {
			t.Fatalf("failed to find items: %v", err)
		}

		want := []item.Item{items[2], items[0]}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got\n%#v\nwant\n%#v\n", got, want)
		}
	})

	t.Run("ok, filter by availability", func(t *testing.T) {
		store, items := setup(t)

		available := true
		got, err := store.FindItems(context.Background(), &item.Filter{
			IsAvailable: &available,
		})
		if err != nil {
			t.Fatalf("failed to find items: %v", err)
		}

		want := []item.Item{items[2], items[0]}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got\n%#v\nwant\n%#v\n", got, want)
		}
	})

	t.Run("ok, no match returns empty slice", func(t *testing.T) {
		store, _ := setup(t)

		got, err := store.FindItems(context.Background(), &item.Filter{
			IDs: []uuid.UUID{uuid.New()},
		})
		if err != nil {
			t.Fatalf("failed to find items: %v", err)
		}

		if len(got) != 0 {
			t.Errorf("expected no items, but got %d", len(got))
		}
	})
}

func Test_Store_UpdateItem(t *testing.T) {
	t.Run("ok, update", func(t *testing.T) {
		sqlDB := testdb.RunWhile(t, true)
		store := itemdb.New(sqlDB)
		ownerID := insertTestUser(t, sqlDB, "alice@example.com")

		it := testItem(ownerID, "tomatoes", time.Date(2024, 1, 29, 18, 0, 0, 0, time.UTC))

		err := store.CreateItem(context.Background(), it)
		if err != nil {
			t.Fatalf("failed to create item: %v", err)
		}

		it.Name = "roma tomatoes"
		it.Quantity = 8
		it.IsAvailable = false
		it.UpdatedAt = time.Date(2024, 1, 30, 9, 0, 0, 0, time.UTC)

		err = store.UpdateItem(context.Background(), it)
		if err != nil {
			t.Fatalf("failed to update item: %v", err)
		}

		got, err := store.FindItems(context.Background(), &item.Filter{
			IDs: []uuid.UUID{it.ID},
		})
		if err != nil {
			t.Fatalf("failed to find items: %v", err)
		}

		want := []item.Item{*it}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got\n%#v\nwant\n%#v\n", got, want)
		}
	})

	t.Run("fail, not found", func(t *testing.T) {
		sqlDB := testdb.RunWhile(t, true)
		store := itemdb.New(sqlDB)
		ownerID := insertTestUser(t, sqlDB, "alice@example.com")

		it := testItem(ownerID, "tomatoes", time.Date(2024, 1, 29, 18, 0, 0, 0, time.UTC))

		err := store.UpdateItem(context.Background(), it)
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected %v, but got %v (via errors.Is)", errorz.ErrNotFound, err)
		}
	})
}

func Test_Store_DeleteItem(t *testing.T) {
	t.Run("ok, delete", func(t *testing.T) {
		sqlDB := testdb.RunWhile(t, true)
		store := itemdb.New(sqlDB)
		ownerID := insertTestUser(t, sqlDB, "alice@example.com")

		it := testItem(ownerID, "tomatoes", time.Date(2024, 1, 29, 18, 0, 0, 0, time.UTC))

		err := store.CreateItem(context.Background(), it)
		if err != nil {
			t.Fatalf("failed to create item: %v", err)
		}

		err = store.DeleteItem(context.Background(), it.ID)
		if err != nil {
			t.Fatalf("failed to delete item: %v", err)
		}

		got, err := store.FindItems(context.Background(), &item.Filter{
			IDs: []uuid.UUID{it.ID},
		})
		if err != nil {
			t.Fatalf("failed to find items: %v", err)
		}

		if len(got) != 0 {
			t.Errorf("expected no items, but got %d", len(got))
		}
	})

	t.Run("fail, not found", func(t *testing.T) {
		sqlDB := testdb.RunWhile(t, true)
		store := itemdb.New(sqlDB)

		err := store.DeleteItem(context.Background(), uuid.New())
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected %v, but got %v (via errors.Is)", errorz.ErrNotFound, err)
		}
	})
}

func testItem(ownerID uuid.UUID, name string, createdAt time.Time) *item.Item {
	return &item.Item{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        name,
		Description: "still fresh, pick up tonight",
		Quantity:    3,
		Unit:        "kg",
		Location:    "Breda",
		ImageURL:    "https://example.com/photo.jpg",
		IsAvailable: true,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func insertTestUser(t *testing.T, sqlDB *sql.DB, email string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	now := time.Date(2024, 1, 29, 12, 0, 0, 0, time.UTC)

	_, err := sqlDB.ExecContext(context.Background(), `
INSERT INTO users (id, username, email, password_hash, is_verified, verification_token, token_expires_at, created_at, updated_at)
VALUES (?, ?, ?, ?, TRUE, NULL, NULL, ?, ?)`,
		id, "test-user", email, "$argon2id$v=19$m=47104,t=1,p=1$vP9U4C5jsOzFQLj0gvUkYw$YLrSb2dGfcVohlm8syynqHs6/NHxXS9rt/t6TjL7pi0", now, now)
	if err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}

	return id
}
