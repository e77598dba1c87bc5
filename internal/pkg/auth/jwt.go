package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ProviderSupabase is the ProviderAccount provider name for bearer token
// identities.
const ProviderSupabase = "supabase"

var ErrInvalidToken = errors.New("invalid token")

// Claims are the claims we read from a Supabase access token
type Claims struct {
	jwt.RegisteredClaims
	Email        string                 `json:"email"`
	Role         string                 `json:"role"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// Name returns the display name carried in user metadata, if any.
func (c *Claims) Name() string {
	for _, key := range []string{"full_name", "name", "user_name"} {
		if v, ok := c.UserMetadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// TokenVerifier validates HS256 bearer tokens signed with a shared secret
type TokenVerifier struct {
	secret   []byte
	audience string
	leeway   time.Duration
}

// NewTokenVerifier creates a verifier. An empty audience skips the aud check.
func NewTokenVerifier(secret, audience string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), audience: audience, leeway: 30 * time.Second}
}

// Enabled reports whether a secret is configured.
func (v *TokenVerifier) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// Verify parses and validates a token and returns its claims.
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	if !v.Enabled() {
		return nil, fmt.Errorf("%w: bearer tokens are not configured", ErrInvalidToken)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Sign issues a token for the given claims. Used by tests and local tooling.
func (v *TokenVerifier) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
