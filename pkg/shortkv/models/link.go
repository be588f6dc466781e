package models

import (
	"bytes"
	"strconv"
	"time"
)

// NeverExpires is the zero Expiry; it serializes as the "-" sentinel.
const NeverExpires Expiry = 0

// Expiry is a link expiry timestamp in epoch milliseconds. The zero value
// means the link never expires and is stored as the string "-", matching
// the on-disk format where owned links carry "-" and anonymous links carry
// a numeric timestamp.
type Expiry int64

// ExpiryAt converts a time to an Expiry in epoch milliseconds.
func ExpiryAt(t time.Time) Expiry {
	return Expiry(t.UnixMilli())
}

// Expired reports whether the expiry has passed at time t.
// A NeverExpires value is never expired.
func (e Expiry) Expired(t time.Time) bool {
	return e != NeverExpires && int64(e) <= t.UnixMilli()
}

func (e Expiry) MarshalJSON() ([]byte, error) {
	if e == NeverExpires {
		return []byte(`"-"`), nil
	}
	return []byte(strconv.FormatInt(int64(e), 10)), nil
}

func (e *Expiry) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte(`"-"`)) {
		*e = NeverExpires
		return nil
	}
	ms, err := strconv.ParseInt(string(bytes.Trim(data, `"`)), 10, 64)
	if err != nil {
		return err
	}
	*e = Expiry(ms)
	return nil
}

// String renders the expiry as it appears on the wire.
func (e Expiry) String() string {
	if e == NeverExpires {
		return "-"
	}
	return strconv.FormatInt(int64(e), 10)
}

// LinkRecord is a shortened link as stored in the URL bucket, keyed by URLKey.
type LinkRecord struct {
	URLKey          string `json:"urlKey"`
	OwnerUsername   string `json:"ownerUsername"`
	ExpiryDateUNIX  Expiry `json:"expiryDateUNIX"`
	CreatedDateUNIX int64  `json:"createdDateUNIX"`
	RedirectLink    string `json:"redirectLink"`
}

// Anonymous reports whether the link was created without an owning account.
func (l *LinkRecord) Anonymous() bool {
	return l.OwnerUsername == AnonymousOwner
}
