// Package gen provides utility functions for generating identifiers.
package gen

import (
	"fmt"

	"github.com/google/uuid"
)

const sep = "|"

// Key joins a and b with a separator.
func Key(a, b string) string {
	return fmt.Sprintf("%s%s%s", a, sep, b)
}

// UUIDv5 generates a deterministic UUIDv5 from a and b.
// Used for download keys (url + resolution) and stored file ids.
func UUIDv5(a, b string) string {
	key := Key(a, b)

	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// ID returns a random UUIDv4.
func ID() string {
	return uuid.NewString()
}
