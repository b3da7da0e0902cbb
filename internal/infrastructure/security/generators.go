package security

import "github.com/oklog/ulid/v2"

// GenerateULID generates a new ULID string, used for request correlation.
func GenerateULID() string {
	return ulid.Make().String()
}
