package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/verifatura/saft-validator-service/internal/models"
)

type contextKey string

const claimsKey contextKey = "claims"

// tokenTTL is the lifetime of issued tokens.
const tokenTTL = 8 * time.Hour

// openPaths are reachable without a token.
var openPaths = map[string]bool{
	"/health":    true,
	"/api/login": true,
}

var (
	jwtSecret []byte
	enabled   bool
	users     []models.AuthUser
)

// Claims carried inside issued tokens.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Init loads the signing secret and the user list from configuration. The
// JWT_SECRET environment variable overrides the config value. When auth is
// disabled the middleware lets every request through.
func Init(cfg *models.AuthConfig) error {
	enabled = cfg.Enabled
	if !enabled {
		return nil
	}

	secret := cfg.Secret
	if env := os.Getenv("JWT_SECRET"); env != "" {
		secret = env
	}
	if secret == "" {
		return fmt.Errorf("auth enabled but no secret configured (set auth.secret or JWT_SECRET)")
	}
	jwtSecret = []byte(secret)
	users = cfg.Users
	return nil
}

// Enabled reports whether request authentication is active.
func Enabled() bool {
	return enabled
}

// GenerateToken issues a signed JWT for the given user.
func GenerateToken(username string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// JWTMiddleware validates the Bearer token on every request except the open
// paths. Valid claims are placed on the request context.
func JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !enabled || openPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims,
			func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return jwtSecret, nil
			})
		if err != nil || !token.Valid {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaimsFromContext returns the claims placed by the middleware.
func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	if !ok {
		return nil, fmt.Errorf("no claims in context")
	}
	return claims, nil
}
