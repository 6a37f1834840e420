package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/pkg/errors"

	"github.com/andrewpaige1/studyplan-api/config"
	"github.com/andrewpaige1/studyplan-api/logger"
)

// CustomClaims holds the non-registered claims of a session token.
type CustomClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (c *CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// EnsureValidToken validates HS256 session tokens taken from the session
// cookie or the Authorization header. Requests without a token pass through
// unauthenticated; RequireUser rejects them on protected routes. Requests to
// publicPaths skip validation, so a stale cookie cannot block signing in.
func EnsureValidToken(env config.Environment, publicPaths ...string) (func(http.Handler) http.Handler, error) {
	secret := []byte(env.JWTSecret)
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return secret, nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		env.JWTIssuer,
		[]string{env.JWTAudience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, errors.Wrap(err, "middleware: set up jwt validator")
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Info("rejected session token", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	}

	mw := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithCredentialsOptional(true),
		jwtmiddleware.WithTokenExtractor(tokenExtractor(env.CookieName)),
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	public := make(map[string]bool, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = true
	}

	return func(next http.Handler) http.Handler {
		checked := mw.CheckJWT(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			checked.ServeHTTP(w, r)
		})
	}, nil
}

// tokenExtractor prefers the session cookie and falls back to a bearer token.
// A missing cookie is not an error.
func tokenExtractor(cookieName string) jwtmiddleware.TokenExtractor {
	return func(r *http.Request) (string, error) {
		if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
			return cookie.Value, nil
		}
		return jwtmiddleware.AuthHeaderTokenExtractor(r)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
