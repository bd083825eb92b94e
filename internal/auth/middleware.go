package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const userContextKey contextKey = "user"

// User holds the authenticated caller's identity for a control-plane request.
type User struct {
	ID       string
	TenantID uuid.UUID
	Email    string
	Name     string
	Roles    []string
}

// ServiceClaims are the claims carried by a tracksync control-plane bearer
// token. There is no external identity provider in scope for this pipeline
// (spec.md §1 treats authentication services as an out-of-scope external
// collaborator); callers are other internal services or operators holding a
// token signed with the shared HMAC secret configured for this deployment.
type ServiceClaims struct {
	jwt.RegisteredClaims
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
}

// Config configures the bearer-token middleware.
type Config struct {
	// Secret is the shared HMAC key used to verify service tokens.
	Secret []byte
	// SkipPaths are path prefixes that bypass authentication (e.g. /health).
	SkipPaths []string
}

// Middleware validates HMAC-signed bearer tokens on the control-plane API.
type Middleware struct {
	config Config
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(config Config) *Middleware {
	return &Middleware{config: config}
}

// Handler returns the HTTP middleware handler.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, path := range m.config.SkipPaths {
			if strings.HasPrefix(r.URL.Path, path) {
				next.ServeHTTP(w, r)
				return
			}
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			http.Error(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}

		claims, err := m.parseToken(parts[1])
		if err != nil {
			slog.Debug("token validation failed", "error", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		var tenantID uuid.UUID
		if claims.TenantID != "" {
			tenantID, err = uuid.Parse(claims.TenantID)
			if err != nil {
				slog.Warn("invalid tenant_id in token", "tenant_id", claims.TenantID)
			}
		}

		user := &User{
			ID:       claims.Subject,
			TenantID: tenantID,
			Email:    claims.Email,
			Name:     claims.Name,
			Roles:    claims.Roles,
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) parseToken(tokenString string) (*ServiceClaims, error) {
	if len(m.config.Secret) == 0 {
		return nil, errors.New("auth secret not configured")
	}

	claims := &ServiceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// FromContext extracts the authenticated user from a request context.
func FromContext(ctx context.Context) *User {
	if u, ok := ctx.Value(userContextKey).(*User); ok {
		return u
	}
	return nil
}

// HasRole checks if the user carries the given role.
func HasRole(ctx context.Context, role string) bool {
	user := FromContext(ctx)
	if user == nil {
		return false
	}
	for _, r := range user.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RequireRole is middleware that rejects callers missing the given role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasRole(r.Context(), role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetTenantID extracts the tenant ID from the request context.
func GetTenantID(ctx context.Context) uuid.UUID {
	user := FromContext(ctx)
	if user == nil {
		return uuid.Nil
	}
	return user.TenantID
}

// UserInfo returns a JSON-serializable summary of the user.
func (u *User) UserInfo() map[string]any {
	return map[string]any{
		"id":        u.ID,
		"tenant_id": u.TenantID.String(),
		"email":     u.Email,
		"name":      u.Name,
		"roles":     u.Roles,
	}
}

// MarshalJSON implements json.Marshaler.
func (u *User) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.UserInfo())
}
