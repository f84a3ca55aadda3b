// Package auth issues and validates the signed account-link tokens used as
// confirmation entities when two accounts are being linked.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/offerhub/userfed/internal/common"
)

// LinkClaims carries the standard claims plus the user id being linked.
type LinkClaims struct {
	jwt.RegisteredClaims
	UserID string
}

// GenerateLinkToken mints an HS256-signed token binding userID for the
// given validity window.
func GenerateLinkToken(userID string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		UserID: userID,
	})
	return token.SignedString(secretKey)
}

// ParseLinkToken verifies the signature and expiry and returns the embedded
// user id. Invalid or expired tokens yield common.ErrInvalidToken.
func ParseLinkToken(tokenString string, secretKey []byte) (string, error) {
	claims := &LinkClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", common.ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.UserID, nil
}
