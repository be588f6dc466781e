package models

// UserRecord is an account as stored in the USER bucket, keyed by Username.
// Password holds the salted bcrypt hash, never the plaintext; handlers must
// not serialize it back to clients.
type UserRecord struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	CreatedDateUNIX int64  `json:"createdDateUNIX"`
}
