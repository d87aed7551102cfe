package shopify

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSessionToken = errors.New("invalid session token")

// SessionTokenClaims are the claims of an App Bridge session token.
type SessionTokenClaims struct {
	Dest string `json:"dest"`
	Sid  string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// VerifySessionToken validates an HS256 App Bridge token signed with the API
// secret and returns the shop domain from its dest claim.
func (c *Client) VerifySessionToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidSessionToken
	}

	var claims SessionTokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return []byte(c.APISecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(c.APIKey),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}

	u, err := url.Parse(claims.Dest)
	if err != nil {
		return "", fmt.Errorf("%w: bad dest", ErrInvalidSessionToken)
	}
	shop := NormalizeShop(u.Host)
	if !IsValidShopDomain(shop) {
		return "", fmt.Errorf("%w: bad dest %q", ErrInvalidSessionToken, claims.Dest)
	}
	return shop, nil
}

// IssueSessionToken signs a token the way App Bridge does. The dev server
// and tests use it to call session-protected routes.
func (c *Client) IssueSessionToken(shop string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionTokenClaims{
		Dest: "https://" + shop,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + shop + "/admin",
			Audience:  jwt.ClaimStrings{c.APIKey},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Second)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.APISecret))
}
