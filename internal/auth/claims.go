package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vbonduro/ecosort/internal/domain"
)

// tokenClaims is the payload of an EcoSort access token.
type tokenClaims struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Decoded is the result of decoding an access token.
type Decoded struct {
	Claims domain.Claims
	// ExpiresAt is zero when the token carries no exp claim.
	ExpiresAt time.Time
}

// DecodeClaims extracts the user claims from an access token. With an empty
// secret the signature is not checked: the dashboard only displays the claims
// and the API validates the token on every call. With a secret the token must
// be a valid HS256 JWT.
func DecodeClaims(token string, secret []byte) (*Decoded, error) {
	var tc tokenClaims
	if len(secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
			return nil, fmt.Errorf("decode access token: %w", err)
		}
	} else {
		_, err := jwt.ParseWithClaims(token, &tc, func(*jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return nil, fmt.Errorf("verify access token: %w", err)
		}
	}

	if tc.Email == "" && tc.FirstName == "" && tc.LastName == "" {
		return nil, errors.New("access token carries no user claims")
	}

	d := &Decoded{Claims: domain.Claims{
		FirstName: tc.FirstName,
		LastName:  tc.LastName,
		Email:     tc.Email,
		Role:      tc.Role,
	}}
	if tc.ExpiresAt != nil {
		d.ExpiresAt = tc.ExpiresAt.Time
	}
	return d, nil
}
