package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"quizlive-service/internal/domain"
)

// Identity is what the engine needs from an access token: who the caller is
// and whether they carry the administrative role. Issuing tokens is someone
// else's job.
type Identity struct {
	Subject string
	Admin   bool
}

// Authenticator verifies bearer tokens and extracts the caller identity.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// FromRequest parses the Authorization header. A missing or unverifiable
// token yields ErrUnauthorized.
func (a *Authenticator) FromRequest(r *http.Request) (Identity, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return Identity{}, domain.ErrUnauthorized
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, domain.ErrUnauthorized
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, domain.ErrUnauthorized
	}
	admin, _ := claims["admin"].(bool)
	return Identity{Subject: sub, Admin: admin}, nil
}
