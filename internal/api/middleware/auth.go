package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// DevProviderID is attached to requests when auth is relaxed in development
const DevProviderID = "dev-provider"

// ParseAPIKeys turns "key1:client1,key2" into a key to client id map.
// A key without a client id maps to itself.
func ParseAPIKeys(raw string) map[string]string {
	keys := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, client, found := strings.Cut(part, ":")
		if !found || client == "" {
			client = key
		}
		keys[key] = client
	}
	return keys
}

// APIKeyAuth validates the X-API-Key header against validKeys
func APIKeyAuth(validKeys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				writeError(w, "missing API key", http.StatusUnauthorized)
				return
			}

			clientID, valid := validKeys[apiKey]
			if !valid {
				writeError(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientID extracts the API key client id from context
func GetClientID(ctx context.Context) string {
	if id, ok := ctx.Value(ClientIDKey).(string); ok {
		return id
	}
	return ""
}

// BearerAuth validates an HS256 JWT and stores its subject as the provider id.
// With an empty secret and devMode set, requests pass as DevProviderID.
func BearerAuth(secret string, devMode bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				if !devMode {
					writeError(w, "authentication not configured", http.StatusServiceUnavailable)
					return
				}
				ctx := context.WithValue(r.Context(), ProviderIDKey, DevProviderID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				writeError(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			subject, err := verifyToken(raw, secret)
			if err != nil {
				writeError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ProviderIDKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProviderID returns the authenticated provider, or "" outside BearerAuth
func ProviderID(ctx context.Context) string {
	if id, ok := ctx.Value(ProviderIDKey).(string); ok {
		return id
	}
	return ""
}

func verifyToken(raw, secret string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// IssueToken signs an HS256 token for subject; used by safetyctl and tests
func IssueToken(secret, subject string, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = subject
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
