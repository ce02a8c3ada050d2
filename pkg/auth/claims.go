package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/gemline-backend/pkg/enums"
)

// Audience is the only audience admin tokens are minted for and accepted with.
const Audience = "gemline-admin"

// AccessTokenPayload is what the caller supplies when minting. TTL overrides
// the configured expiration when positive; an empty JTI gets a uuid.
type AccessTokenPayload struct {
	Subject string
	Email   string
	Role    enums.AdminRole
	JTI     string
	TTL     time.Duration
}

// AccessTokenClaims is the JWT body carried by back-office callers.
type AccessTokenClaims struct {
	Email string          `json:"email"`
	Role  enums.AdminRole `json:"role"`
	jwt.RegisteredClaims
}

// Actor returns the identifier recorded as triggered_by for work done with this token.
func (c *AccessTokenClaims) Actor() string {
	if c == nil {
		return ""
	}
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}
