package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/andrewpaige1/studyplan-api/config"
	"github.com/andrewpaige1/studyplan-api/models"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// Claims is the session token payload. Subject carries the user id.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// CreateToken signs an HS256 session token for user, valid for env.SessionTTL from now.
func CreateToken(env config.Environment, user models.User, now time.Time) (string, time.Time, error) {
	if env.JWTSecret == "" {
		return "", time.Time{}, errors.New("auth: JWT secret not configured")
	}
	expires := now.Add(env.SessionTTL)
	claims := Claims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    env.JWTIssuer,
			Audience:  jwt.ClaimStrings{env.JWTAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(env.JWTSecret))
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "auth: sign token")
	}
	return signed, expires, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "auth: hash password")
	}
	return string(hash), nil
}

// CheckPassword returns ErrInvalidCredentials when password does not match hash.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func SetSessionCookie(w http.ResponseWriter, env config.Environment, token string, expires time.Time) {
	http.SetCookie(w, sessionCookie(env, token, expires))
}

func ClearSessionCookie(w http.ResponseWriter, env config.Environment) {
	c := sessionCookie(env, "", time.Unix(0, 0))
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func sessionCookie(env config.Environment, value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     env.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   env.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if !env.IsDevelopment {
		c.Domain = env.Domain
	}
	return c
}
