package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtKey is the secret used to sign tokens.
// In a production environment, this should be loaded from an environment variable or a secret manager.
var jwtKey = []byte("my_strong_and_long_secret_key_2026")

// CustomClaims is the data carried inside a session token.
type CustomClaims struct {
	UserID string `json:"user_id"`
	Handle string `json:"handle"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed JWT for a specific user. Session issuance
// itself lives with the external auth collaborator; this helper exists for
// the provisioning CLI and tests.
func GenerateToken(userID, handle string, duration time.Duration) (string, error) {
	claims := &CustomClaims{
		UserID: userID,
		Handle: handle,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "chat-duo",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// ValidateToken parses and validates the signature and expiration of a JWT.
func ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
