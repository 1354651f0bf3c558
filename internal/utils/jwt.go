package utils // package utils provides helper functions for token creation, hashing and codes

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// ErrMissingToken is returned by Verify when no token was presented at all.
var ErrMissingToken = errors.New("missing token")

// ErrInvalidToken covers every other rejection: bad signature, malformed
// token, unexpected algorithm or expiry.  Callers do not need to tell these
// apart; clients see a single "Invalid or Expired Token" message.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the payload carried by an access token.  Role holds the role
// id (not its name) so that permission changes on a role take effect
// without reissuing tokens.
type Claims struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  uint64 `json:"role"`
	jwt.RegisteredClaims
}

// AccessToken represents a signed JWT along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenIssuer signs and verifies HS256 access tokens with a single
// process-wide secret.  Tokens are stateless: there is no revocation list.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer whose tokens live for ttl.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue builds and signs a token for the given account.
func (ti *TokenIssuer) Issue(userID uint64, email string, roleID uint64) (AccessToken, error) {
	now := ti.now().UTC()
	exp := now.Add(ti.ttl)
	claims := Claims{
		ID:    userID,
		Email: email,
		Role:  roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Verify parses raw and returns its claims.  Only HMAC-signed tokens are
// accepted.
func (ti *TokenIssuer) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return ti.secret, nil
	}, jwt.WithTimeFunc(ti.now))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
