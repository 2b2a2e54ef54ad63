package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pricing-table-api/internal/pricing"
)

// Claims are the token claims the pricing table cares about: who the viewer
// is and which shop roles they hold. Tokens are minted by the shop's identity
// service; this package only consumes them.
type Claims struct {
	UserID int64    `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// ClaimsViewer is an authenticated viewer backed by verified token claims.
type ClaimsViewer struct {
	UserID int64
	roles  []string
}

func (v *ClaimsViewer) Authenticated() bool { return true }

func (v *ClaimsViewer) HasRole(role string) bool {
	for _, r := range v.roles {
		if r == role {
			return true
		}
	}
	return false
}

func (v *ClaimsViewer) Roles() []string { return v.roles }

// ParseViewer verifies a token and returns the viewer it identifies.
func ParseViewer(tokenString string, secret []byte) (*ClaimsViewer, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return &ClaimsViewer{UserID: claims.UserID, roles: claims.Roles}, nil
}

// ViewerFromRequest derives the viewer from an optional Bearer token. The
// pricing table is public, so a missing, malformed or expired token yields
// the anonymous viewer instead of an error; audience-restricted rule sets
// simply will not match.
func ViewerFromRequest(r *http.Request, secret []byte) pricing.Viewer {
	header := r.Header.Get("Authorization")
	if header == "" || len(secret) == 0 {
		return pricing.Anonymous
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return pricing.Anonymous
	}

	viewer, err := ParseViewer(parts[1], secret)
	if err != nil {
		return pricing.Anonymous
	}
	return viewer
}

// GenerateToken signs a viewer token. Used by seed tooling and tests; the
// production tokens come from the identity service.
func GenerateToken(userID int64, roles []string, secret []byte, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			Issuer:    "pricing-table-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
