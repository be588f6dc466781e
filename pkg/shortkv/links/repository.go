package links

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/shortkv/shortkv/pkg/shortkv/keygen"
	"github.com/shortkv/shortkv/pkg/shortkv/models"
	"github.com/shortkv/shortkv/pkg/shortkv/store"
	"golang.org/x/sync/errgroup"
)

// anonymousTTL is how long a link created without an account lives.
const anonymousTTL = 28 * 24 * time.Hour

var (
	urlRegex    = regexp.MustCompile(`^((http(s)?://.)?(www\.)?[-a-zA-Z0-9@:%._+~#=]{2,256}\.[a-z]{2,6}\b([-a-zA-Z0-9@:%_+.~#?&/=]*))+$`)
	magnetRegex = regexp.MustCompile(`^magnet:\?xt=urn:[^\s]+$`)
)

// ValidRedirectLink reports whether a destination passes the URL/magnet-link
// shape check applied before any store access.
func ValidRedirectLink(link string) bool {
	return urlRegex.MatchString(link) || magnetRegex.MatchString(link)
}

// Repository persists link records in the URL bucket and enforces the
// ownership and expiry rules around them. Ownership checks are read-then-
// compare against the store, not atomic with the mutation they guard; a
// concurrent delete or update between the check and the act can interleave.
type Repository struct {
	store store.Store
}

// NewRepository creates a link repository on the given store.
func NewRepository(s store.Store) *Repository {
	return &Repository{store: s}
}

func (r *Repository) put(ctx context.Context, rec *models.LinkRecord, version string) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	obj := &store.Object{
		Value:   value,
		Version: version,
		Indexes: []store.IndexEntry{
			{Name: models.IndexOwnerUsername, Value: rec.OwnerUsername},
			{Name: models.IndexExpiryDate, Value: rec.ExpiryDateUNIX.String()},
		},
	}
	return r.store.Put(ctx, models.BucketURL, rec.URLKey, obj)
}

// Create validates the destination, assigns a fresh key and persists the
// record. Links without an owner are stored under the anonymous sentinel
// with a finite expiry; owned links never expire.
func (r *Repository) Create(ctx context.Context, redirectLink, ownerUsername string) (*models.LinkRecord, error) {
	if !ValidRedirectLink(redirectLink) {
		return nil, models.ErrInvalidURL
	}

	now := time.Now()
	rec := &models.LinkRecord{
		URLKey:          keygen.NewKey(),
		OwnerUsername:   models.AnonymousOwner,
		ExpiryDateUNIX:  models.ExpiryAt(now.Add(anonymousTTL)),
		CreatedDateUNIX: now.UnixMilli(),
		RedirectLink:    redirectLink,
	}
	if ownerUsername != "" && ownerUsername != models.AnonymousOwner {
		rec.OwnerUsername = ownerUsername
		rec.ExpiryDateUNIX = models.NeverExpires
	}

	if err := r.put(ctx, rec, ""); err != nil {
		return nil, fmt.Errorf("storing link %s: %w", rec.URLKey, err)
	}
	return rec, nil
}

// Get fetches the record stored under key, or models.ErrNotFound.
func (r *Repository) Get(ctx context.Context, key string) (*models.LinkRecord, error) {
	obj, err := r.store.Get(ctx, models.BucketURL, key)
	if err == store.ErrNotFound {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching link %s: %w", key, err)
	}

	var rec models.LinkRecord
	if err := json.Unmarshal(obj.Value, &rec); err != nil {
		return nil, fmt.Errorf("decoding link %s: %w", key, err)
	}
	return &rec, nil
}

// CheckAvailable reports whether key is free for use: true iff the store
// holds no record under it.
func (r *Repository) CheckAvailable(ctx context.Context, key string) (bool, error) {
	_, err := r.store.Get(ctx, models.BucketURL, key)
	if err == store.ErrNotFound {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking link %s: %w", key, err)
	}
	return false, nil
}

// CheckOwnership verifies that the record under key is owned by
// ownerUsername. Returns models.ErrNotFound when no record exists and
// models.ErrForbidden on an owner mismatch.
func (r *Repository) CheckOwnership(ctx context.Context, key, ownerUsername string) error {
	rec, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	if rec.OwnerUsername != ownerUsername {
		return models.ErrForbidden
	}
	return nil
}

// Delete removes the record under key after an ownership check.
func (r *Repository) Delete(ctx context.Context, key, ownerUsername string) error {
	if err := r.CheckOwnership(ctx, key, ownerUsername); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, models.BucketURL, key); err != nil {
		return fmt.Errorf("deleting link %s: %w", key, err)
	}
	return nil
}

// UpdateKey reassigns the record under oldKey to newKey, preserving every
// other field. The old record is deleted (ownership-gated) before the
// re-store under the new key; if the re-store fails the link is lost, as
// there is no compensating rollback across two store keys.
func (r *Repository) UpdateKey(ctx context.Context, oldKey, newKey, ownerUsername string) (*models.LinkRecord, error) {
	available, err := r.CheckAvailable(ctx, newKey)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, models.ErrKeyTaken
	}

	rec, err := r.Get(ctx, oldKey)
	if err != nil {
		return nil, err
	}
	rec.URLKey = newKey

	if err := r.Delete(ctx, oldKey, ownerUsername); err != nil {
		return nil, err
	}
	if err := r.put(ctx, rec, ""); err != nil {
		return nil, fmt.Errorf("storing link %s: %w", newKey, err)
	}
	return rec, nil
}

// KeysByOwner returns every URL key registered under ownerUsername, paging
// the ownerUsername_bin index until the store signals completion.
func (r *Repository) KeysByOwner(ctx context.Context, ownerUsername string) ([]string, error) {
	keys, err := store.QueryAllKeys(ctx, r.store, models.BucketURL, models.IndexOwnerUsername, ownerUsername)
	if err != nil {
		return nil, fmt.Errorf("querying links of %s: %w", ownerUsername, err)
	}
	return keys, nil
}

// BatchFetch resolves each key to its full record concurrently. The fetches
// join on full completion: any single failure fails the whole batch and no
// partial result is returned.
func (r *Repository) BatchFetch(ctx context.Context, keys []string) ([]*models.LinkRecord, error) {
	records := make([]*models.LinkRecord, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			rec, err := r.Get(ctx, key)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// ListByOwner composes KeysByOwner and BatchFetch into the owner dashboard
// listing.
func (r *Repository) ListByOwner(ctx context.Context, ownerUsername string) ([]*models.LinkRecord, error) {
	keys, err := r.KeysByOwner(ctx, ownerUsername)
	if err != nil {
		return nil, err
	}
	return r.BatchFetch(ctx, keys)
}
