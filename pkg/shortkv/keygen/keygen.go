// Package keygen produces the short URL-safe identifiers that key link
// records.
package keygen

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

// KeyLength is the length of every generated URL key.
const KeyLength = 8

// NewKey returns a random 8-character key over [A-Za-z0-9]: base64 of random
// bytes with '+', '/' and '=' stripped out. The key space is large enough
// relative to expected load that no duplicate check is made against the
// store; collisions are an accepted risk of the generation policy.
func NewKey() string {
	for {
		buf := make([]byte, 28)
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand only fails when the OS entropy source is
			// broken; there is no useful recovery.
			panic(err)
		}
		s := base64.StdEncoding.EncodeToString(buf)
		s = strings.NewReplacer("+", "", "/", "", "=", "").Replace(s)
		if len(s) >= KeyLength {
			return s[:KeyLength]
		}
	}
}
