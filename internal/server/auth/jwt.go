// Package auth adapts the external identity provider: it turns a bearer
// token into the opaque owner id the core operates on. Token issuance and
// credential handling live outside this repository.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pdfvault/pdfvault/internal/common"
)

// Claims includes the registered claims plus the authenticated owner id.
type Claims struct {
	jwt.RegisteredClaims
	OwnerID string
}

// GenerateToken signs a session token for ownerID. Used by tests and by
// deployments that front the server with their own sign-in flow.
func GenerateToken(ownerID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		OwnerID: ownerID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// OwnerIDFromToken verifies tokenString and extracts the owner id.
func OwnerIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	if claims.OwnerID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.OwnerID, nil
}
