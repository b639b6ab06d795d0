// Package auth issues and checks the HS256 access tokens handed out on login.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/alertkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the username alongside the standard registered claims.
// Only exp is set among the registered ones.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for username that expires validity after issuedAt.
func GenerateToken(username string, secretKey []byte, issuedAt time.Time, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(validity)),
		},
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// BearerToken extracts the token from an Authorization header value. The
// header must consist of exactly two fields, the first being "Bearer"
// (any case). Anything else yields common.ErrTokenMissing.
func BearerToken(header string) (string, error) {
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], common.BearerScheme) {
		return "", common.ErrTokenMissing
	}
	return fields[1], nil
}

// GetUsernameFromToken verifies tokenString against secretKey at time now and
// returns the username it was issued for.
//
// A token with a valid signature whose exp is not after now yields
// common.ErrTokenExpired. Any other failure, including a wrong algorithm,
// a missing exp or an empty username, yields common.ErrInvalidToken.
func GetUsernameFromToken(tokenString string, secretKey []byte, now time.Time) (string, error) {
	keyFunc := func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && signatureValid(tokenString, keyFunc) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Username == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Username, nil
}

// signatureValid checks only the signature and algorithm, ignoring claims.
func signatureValid(tokenString string, keyFunc jwt.Keyfunc) bool {
	_, err := jwt.ParseWithClaims(tokenString, &Claims{}, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	return err == nil
}
