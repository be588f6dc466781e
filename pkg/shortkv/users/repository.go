package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/shortkv/shortkv/pkg/shortkv/auth"
	"github.com/shortkv/shortkv/pkg/shortkv/models"
	"github.com/shortkv/shortkv/pkg/shortkv/store"
)

var (
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9._]{4,20}$`)
	emailRegex    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,4}$`)
)

// ValidUsername reports whether a username is 4-20 characters of
// alphanumerics, dots and underscores.
func ValidUsername(username string) bool {
	return usernameRegex.MatchString(username)
}

// ValidEmail reports whether an email has a standard shape.
func ValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidPassword reports whether a password is 8-17 alphanumeric characters
// containing at least one letter and one digit.
func ValidPassword(password string) bool {
	if len(password) < 8 || len(password) > 17 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			return false
		}
	}
	return hasLetter && hasDigit
}

// LoginStatus is the outcome of a credential check. The three cases are
// independently observable by callers.
type LoginStatus int

const (
	LoginOK LoginStatus = iota
	LoginWrongPassword
	LoginNoAccount
)

// Repository persists account records in the USER bucket. Username is the
// primary key; email is reachable through the email_bin secondary index.
// Email uniqueness is enforced here before insert, not by the store.
type Repository struct {
	store store.Store

	// deleteKey is the process-wide administrative secret gating account
	// deletion.
	deleteKey string
}

// NewRepository creates a user repository on the given store.
func NewRepository(s store.Store, deleteKey string) *Repository {
	return &Repository{store: s, deleteKey: deleteKey}
}

func (r *Repository) put(ctx context.Context, rec *models.UserRecord, version string) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	obj := &store.Object{
		Value:   value,
		Version: version,
		Indexes: []store.IndexEntry{
			{Name: models.IndexEmail, Value: rec.Email},
		},
	}
	return r.store.Put(ctx, models.BucketUser, rec.Username, obj)
}

// Find fetches the account stored under username, or models.ErrNotFound.
// An absent account is an expected outcome for callers like registration;
// they branch on the error rather than failing.
func (r *Repository) Find(ctx context.Context, username string) (*models.UserRecord, error) {
	obj, err := r.store.Get(ctx, models.BucketUser, username)
	if err == store.ErrNotFound {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", username, err)
	}

	var rec models.UserRecord
	if err := json.Unmarshal(obj.Value, &rec); err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", username, err)
	}
	return &rec, nil
}

// UsernamesByEmail returns every username registered under email via the
// email_bin index. No match yields an empty slice, not an error.
func (r *Repository) UsernamesByEmail(ctx context.Context, email string) ([]string, error) {
	usernames, err := store.QueryAllKeys(ctx, r.store, models.BucketUser, models.IndexEmail, email)
	if err != nil {
		return nil, fmt.Errorf("querying usernames by email: %w", err)
	}
	return usernames, nil
}

// Create validates the formats, checks both uniqueness axes and persists the
// account with a salted password hash. Validation short-circuits before any
// store access.
func (r *Repository) Create(ctx context.Context, username, email, password string) (*models.UserRecord, error) {
	if !ValidEmail(email) {
		return nil, models.ErrInvalidEmail
	}
	if !ValidUsername(username) {
		return nil, models.ErrInvalidUsername
	}
	if !ValidPassword(password) {
		return nil, models.ErrInvalidPassword
	}

	_, err := r.Find(ctx, username)
	if err == nil {
		return nil, models.ErrUsernameTaken
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	usernames, err := r.UsernamesByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(usernames) > 0 {
		return nil, models.ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	rec := &models.UserRecord{
		Username:        username,
		Email:           email,
		Password:        hash,
		CreatedDateUNIX: time.Now().UnixMilli(),
	}
	if err := r.put(ctx, rec, ""); err != nil {
		return nil, fmt.Errorf("storing user %s: %w", username, err)
	}
	return rec, nil
}

// ChangePassword rewrites the password of the account registered under
// email, after verifying that username matches the account the email index
// points at. The mutated record is always written back to the store.
func (r *Repository) ChangePassword(ctx context.Context, username, email, newPassword string) error {
	if !ValidPassword(newPassword) {
		return models.ErrInvalidPassword
	}

	usernames, err := r.UsernamesByEmail(ctx, email)
	if err != nil {
		return err
	}
	if len(usernames) == 0 || usernames[0] != username {
		return models.ErrMismatch
	}

	rec, err := r.Find(ctx, username)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	rec.Password = hash

	if err := r.put(ctx, rec, ""); err != nil {
		return fmt.Errorf("storing user %s: %w", username, err)
	}
	return nil
}

// Login verifies credentials. The stored hash never leaves the repository.
func (r *Repository) Login(ctx context.Context, username, password string) (LoginStatus, error) {
	rec, err := r.Find(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		return LoginNoAccount, nil
	}
	if err != nil {
		return 0, err
	}

	if !auth.CheckPassword(password, rec.Password) {
		return LoginWrongPassword, nil
	}
	return LoginOK, nil
}

// DeleteAccount removes the USER record after checking the administrative
// delete key. The user's links are retained; there is no cascade.
func (r *Repository) DeleteAccount(ctx context.Context, username, suppliedDeleteKey string) error {
	if r.deleteKey == "" || suppliedDeleteKey != r.deleteKey {
		return models.ErrForbidden
	}
	if err := r.store.Delete(ctx, models.BucketUser, username); err != nil {
		return fmt.Errorf("deleting user %s: %w", username, err)
	}
	return nil
}
