package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Actor is the already-authenticated caller of a request. Authentication
// itself happens upstream; we only decode the identity so writes can be
// attributed to it.
type Actor struct {
	ID   uuid.UUID
	Role string
}

type actorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier decodes bearer tokens minted by the identity service.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates a token, returning the actor it identifies.
func (v *TokenVerifier) Verify(tokenString string) (*Actor, error) {
	claims := &actorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}

	return &Actor{ID: id, Role: claims.Role}, nil
}
