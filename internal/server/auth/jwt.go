// Package auth issues and verifies the session tokens handed out after a
// successful wallet sign-in.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the signed-in wallet address next to the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	Address string `json:"address"`
}

// GenerateToken signs an HS256 token for address valid for validityDuration.
func GenerateToken(address string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
			Subject:   address,
		},
		Address: address,
	})

	return token.SignedString(secretKey)
}

// GetAddressFromToken validates tokenString and returns its address claim.
// Expired tokens yield common.ErrTokenExpired, any other failure
// common.ErrInvalidToken.
func GetAddressFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Address == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Address, nil
}
