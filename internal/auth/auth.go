// Package auth issues and checks client bearer tokens and guards admin routes.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	// RoleClient is the only role carried by client tokens.
	RoleClient = "client"
	// TokenType is reported alongside issued tokens.
	TokenType = "bearer"

	AdminPasswordHeader = "X-Admin-Password"
	AdminKeyHeader      = "X-Admin-Key"

	defaultTokenTTL = 480 * time.Minute
)

var (
	// ErrInvalidToken is returned for malformed, expired or mis-signed tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidRole is returned when a valid token carries a non-client role.
	ErrInvalidRole = errors.New("invalid token role")
)

type contextKey int

const (
	clientCodeKey contextKey = iota
	clientNameKey
)

// Claims is the JWT payload of a client token.
type Claims struct {
	ClientName string `json:"client_name"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 client tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. A non-positive ttl uses 480 minutes.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the given client.
func (i *Issuer) Issue(clientCode, clientName string) (string, error) {
	now := i.now()
	claims := Claims{
		ClientName: clientName,
		Role:       RoleClient,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientCode,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign client token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and checks its signature, expiry and role.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleClient {
		return nil, ErrInvalidRole
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ClientCodeFromContext extracts the authenticated client code.
func ClientCodeFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(clientCodeKey).(string); ok {
		return v
	}
	return ""
}

// ClientNameFromContext extracts the authenticated client name.
func ClientNameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(clientNameKey).(string); ok {
		return v
	}
	return ""
}

// WithClient returns a context carrying the client identity.
func WithClient(ctx context.Context, clientCode, clientName string) context.Context {
	ctx = context.WithValue(ctx, clientCodeKey, clientCode)
	return context.WithValue(ctx, clientNameKey, clientName)
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Middleware requires a valid client token and injects the client identity.
func Middleware(issuer *Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				writeDetail(w, http.StatusUnauthorized, "Missing bearer token")
				return
			}
			claims, err := issuer.Verify(token)
			switch {
			case errors.Is(err, ErrInvalidRole):
				writeDetail(w, http.StatusForbidden, "Invalid token role")
				return
			case err != nil:
				writeDetail(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			ctx := WithClient(r.Context(), claims.Subject, claims.ClientName)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidAdminSecret compares a candidate against the configured admin secret.
// An empty secret or candidate never matches.
func ValidAdminSecret(secret, candidate string) bool {
	if secret == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(candidate)) == 1
}

// AdminMiddleware requires the admin secret in X-Admin-Password or X-Admin-Key.
func AdminMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			candidate := r.Header.Get(AdminPasswordHeader)
			if candidate == "" {
				candidate = r.Header.Get(AdminKeyHeader)
			}
			if !ValidAdminSecret(secret, candidate) {
				writeDetail(w, http.StatusUnauthorized, "Invalid admin password")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
