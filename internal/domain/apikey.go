package domain

import (
	"time"
)

// keyHashLen is the hex length of a SHA-256 digest.
const keyHashLen = 64

// APIKey authenticates requests on behalf of a user. Only the SHA-256 hash
// of the token is kept; the plaintext is shown once at creation.
type APIKey struct {
	ID        string
	UserID    int64
	Name      string
	KeyHash   string
	CreatedAt time.Time
	RevokedAt *time.Time
}

func (a *APIKey) IsRevoked() bool {
	return a.RevokedAt != nil
}

// Status is "revoked" or "active", as listed by the CLI and API.
func (a *APIKey) Status() string {
	if a.IsRevoked() {
		return "revoked"
	}
	return "active"
}

func ValidateAPIKey(a *APIKey) error {
	switch {
	case a == nil:
		return NewValidationError("api key is required")
	case a.ID == "":
		return NewValidationError("api key id is required")
	case a.UserID <= 0:
		return NewValidationError("api key user id is required")
	case a.Name == "":
		return NewValidationError("api key name is required")
	case !isHexDigest(a.KeyHash):
		return NewValidationError("api key hash must be a hex SHA-256 digest")
	}
	return nil
}

func isHexDigest(s string) bool {
	if len(s) != keyHashLen {
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
