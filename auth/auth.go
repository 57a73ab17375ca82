// Package auth verifies bearer tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrMissingToken is returned when no bearer token was supplied.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken is returned for malformed, expired or badly signed
	// tokens, or tokens that do not carry a user id.
	ErrInvalidToken = errors.New("invalid token")
)

// Verifier checks HS256 tokens whose jti claim is the user's ObjectID hex.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a Verifier for tokens signed with secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// UserID extracts the user id from an Authorization header value. Both
// "Bearer <token>" and a bare token are accepted.
func (v *Verifier) UserID(authorization string) (primitive.ObjectID, error) {
	tokenString := strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
	if tokenString == "" {
		return primitive.NilObjectID, ErrMissingToken
	}

	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return primitive.NilObjectID, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	oid, err := primitive.ObjectIDFromHex(claims.Id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return oid, nil
}
