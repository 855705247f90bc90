package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reimagine/reimagine/internal/model"
)

// ErrInvalidToken is returned for any token the verifier rejects.
// Callers get a single failure mode; the underlying reason is wrapped.
var ErrInvalidToken = errors.New("invalid identity token")

// Claims are the identity provider claims this service consumes.
// The user ID rides in the standard subject claim.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Verifier validates identity provider bearer tokens.
// Tokens are symmetric HS256 JWTs signed with a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier with the provider's shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify validates the token and extracts the caller identity.
func (v *Verifier) Verify(tokenString string) (*model.AuthContext, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject claim", ErrInvalidToken)
	}

	return &model.AuthContext{
		UserID: claims.Subject,
		Email:  claims.Email,
	}, nil
}
