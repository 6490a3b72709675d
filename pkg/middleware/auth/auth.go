// middleware/auth/auth.go
package auth

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Middleware verifies bearer tokens for manifest routes that require auth.
// Verification is HS256 against a shared secret; issuing tokens is someone
// else's job.
type Middleware struct {
	secret []byte
}

func New(secret []byte) *Middleware { return &Middleware{secret: secret} }

// FromEnv reads TURBO_JWT_SECRET. An empty secret produces a middleware
// that rejects every guarded request.
func FromEnv() *Middleware {
	return New([]byte(strings.TrimSpace(os.Getenv("TURBO_JWT_SECRET"))))
}

// Subject validates the request's bearer token and returns its subject.
func (m *Middleware) Subject(r *http.Request) (string, error) {
	if len(m.secret) == 0 {
		return "", fmt.Errorf("auth: no secret configured")
	}
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(raw, "Bearer ") {
		return "", fmt.Errorf("auth: missing bearer token")
	}
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("auth: %w", err)
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}
	return sub, nil
}
