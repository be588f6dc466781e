package models

// Bucket names in the key-value store
const (
	BucketURL  = "URL"
	BucketUser = "USER"
)

// Secondary index names. The store maintains these as exact-value indexes
// over the primary keys of each bucket.
const (
	IndexOwnerUsername = "ownerUsername_bin"
	IndexExpiryDate    = "expiryDateUNIX_bin"
	IndexEmail         = "email_bin"
)

// AnonymousOwner is the sentinel owner for links created without an account.
const AnonymousOwner = "-"
