package links

import (
	"context"
	"errors"
	"testing"

	"github.com/shortkv/shortkv/pkg/shortkv/keygen"
	"github.com/shortkv/shortkv/pkg/shortkv/models"
	"github.com/shortkv/shortkv/pkg/shortkv/store"
)

func setupTestRepo(t *testing.T) *Repository {
	s, err := store.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	return NewRepository(s)
}

func TestCreateAnonymous(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec, err := repo.Create(ctx, "https://example.com/some/page", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if len(rec.URLKey) != keygen.KeyLength {
		t.Errorf("Expected %d-character key, got %q", keygen.KeyLength, rec.URLKey)
	}
	if rec.OwnerUsername != models.AnonymousOwner {
		t.Errorf("Expected anonymous owner, got %q", rec.OwnerUsername)
	}
	if rec.ExpiryDateUNIX == models.NeverExpires {
		t.Error("Anonymous link must carry a finite expiry")
	}
	if int64(rec.ExpiryDateUNIX) <= rec.CreatedDateUNIX {
		t.Errorf("Expiry %d must be after creation %d", rec.ExpiryDateUNIX, rec.CreatedDateUNIX)
	}

	got, err := repo.Get(ctx, rec.URLKey)
	if err != nil {
		t.Fatalf("Get after create failed: %v", err)
	}
	if got.RedirectLink != "https://example.com/some/page" {
		t.Errorf("Unexpected redirect link: %q", got.RedirectLink)
	}
}

func TestCreateOwned(t *testing.T) {
	repo := setupTestRepo(t)

	rec, err := repo.Create(context.Background(), "https://example.com", "someuser")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec.OwnerUsername != "someuser" {
		t.Errorf("Expected owner someuser, got %q", rec.OwnerUsername)
	}
	if rec.ExpiryDateUNIX != models.NeverExpires {
		t.Errorf("Owned link must never expire, got %d", rec.ExpiryDateUNIX)
	}
}

func TestCreateInvalidURL(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Create(context.Background(), "not a url", "")
	if !errors.Is(err, models.ErrInvalidURL) {
		t.Fatalf("Expected ErrInvalidURL, got %v", err)
	}
}

func TestCreateMagnetLink(t *testing.T) {
	repo := setupTestRepo(t)

	rec, err := repo.Create(context.Background(), "magnet:?xt=urn:btih:c12fe1c06bba254a9dc9f519b335aa7c1367a88a", "")
	if err != nil {
		t.Fatalf("Create with magnet link failed: %v", err)
	}
	if rec.URLKey == "" {
		t.Error("Expected a key for the magnet link")
	}
}

func TestGetNotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Get(context.Background(), "missing1")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestCheckAvailable(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	available, err := repo.CheckAvailable(ctx, "freshkey")
	if err != nil {
		t.Fatalf("CheckAvailable failed: %v", err)
	}
	if !available {
		t.Error("Expected unused key to be available")
	}

	rec, _ := repo.Create(ctx, "https://example.com", "")
	available, err = repo.CheckAvailable(ctx, rec.URLKey)
	if err != nil {
		t.Fatalf("CheckAvailable failed: %v", err)
	}
	if available {
		t.Error("Expected used key to be unavailable")
	}
}

func TestDeleteWrongOwner(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec, _ := repo.Create(ctx, "https://example.com", "alice")

	err := repo.Delete(ctx, rec.URLKey, "mallory")
	if !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("Expected ErrForbidden, got %v", err)
	}

	// The record must survive the refused delete
	if _, err := repo.Get(ctx, rec.URLKey); err != nil {
		t.Errorf("Record should still be retrievable, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec, _ := repo.Create(ctx, "https://example.com", "alice")
	if err := repo.Delete(ctx, rec.URLKey, "alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, rec.URLKey); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteNotFound(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.Delete(context.Background(), "missing1", "alice")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateKey(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec, _ := repo.Create(ctx, "https://example.com", "alice")
	created := rec.CreatedDateUNIX

	updated, err := repo.UpdateKey(ctx, rec.URLKey, "newkey12", "alice")
	if err != nil {
		t.Fatalf("UpdateKey failed: %v", err)
	}
	if updated.URLKey != "newkey12" {
		t.Errorf("Expected key newkey12, got %q", updated.URLKey)
	}

	if _, err := repo.Get(ctx, rec.URLKey); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Old key should be gone, got %v", err)
	}

	got, err := repo.Get(ctx, "newkey12")
	if err != nil {
		t.Fatalf("Get under new key failed: %v", err)
	}
	if got.RedirectLink != "https://example.com" || got.CreatedDateUNIX != created {
		t.Error("UpdateKey must preserve all fields except the key")
	}
	if got.URLKey != "newkey12" {
		t.Errorf("Stored record must carry the new key, got %q", got.URLKey)
	}
}

func TestUpdateKeyConflict(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec1, _ := repo.Create(ctx, "https://example.com/one", "alice")
	rec2, _ := repo.Create(ctx, "https://example.com/two", "alice")

	_, err := repo.UpdateKey(ctx, rec1.URLKey, rec2.URLKey, "alice")
	if !errors.Is(err, models.ErrKeyTaken) {
		t.Fatalf("Expected ErrKeyTaken, got %v", err)
	}
}

func TestUpdateKeyWrongOwner(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec, _ := repo.Create(ctx, "https://example.com", "alice")

	_, err := repo.UpdateKey(ctx, rec.URLKey, "newkey12", "mallory")
	if !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("Expected ErrForbidden, got %v", err)
	}
	if _, err := repo.Get(ctx, rec.URLKey); err != nil {
		t.Errorf("Record should survive the refused update, got %v", err)
	}
}

func TestKeysByOwner(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec1, _ := repo.Create(ctx, "https://example.com/one", "alice")
	rec2, _ := repo.Create(ctx, "https://example.com/two", "alice")
	repo.Create(ctx, "https://example.com/three", "bob")

	keys, err := repo.KeysByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("KeysByOwner failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Expected 2 keys, got %v", keys)
	}
	found := map[string]bool{keys[0]: true, keys[1]: true}
	if !found[rec1.URLKey] || !found[rec2.URLKey] {
		t.Errorf("Expected keys %q and %q, got %v", rec1.URLKey, rec2.URLKey, keys)
	}
}

func TestBatchFetchAllOrNothing(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rec, _ := repo.Create(ctx, "https://example.com", "alice")

	records, err := repo.BatchFetch(ctx, []string{rec.URLKey, "missing1"})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for the whole batch, got %v", err)
	}
	if records != nil {
		t.Errorf("Expected no partial result, got %v", records)
	}
}

func TestListByOwner(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	repo.Create(ctx, "https://example.com/one", "alice")
	repo.Create(ctx, "https://example.com/two", "alice")

	records, err := repo.ListByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.OwnerUsername != "alice" {
			t.Errorf("Expected owner alice, got %q", rec.OwnerUsername)
		}
	}
}

func TestValidRedirectLink(t *testing.T) {
	valid := []string{
		"https://example.com",
		"http://www.example.com/path?query=1",
		"www.example.com",
		"magnet:?xt=urn:btih:abc123",
	}
	for _, link := range valid {
		if !ValidRedirectLink(link) {
			t.Errorf("Expected %q to be valid", link)
		}
	}

	invalid := []string{
		"not a url",
		"",
		"magnet:?xt=wrong",
	}
	for _, link := range invalid {
		if ValidRedirectLink(link) {
			t.Errorf("Expected %q to be invalid", link)
		}
	}
}
