package middleware

import (
	"context"
	"net/http"

	"gorm.io/gorm"

	"github.com/andrewpaige1/studyplan-api/logger"
	"github.com/andrewpaige1/studyplan-api/models"
	"github.com/andrewpaige1/studyplan-api/utils"
)

type contextKey string

const userKey contextKey = "user"

// RequireUser loads the session's user and attaches it to the request
// context. Requests without a valid session, or whose user no longer
// exists, get 401.
func RequireUser(db *gorm.DB) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetSubject(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			var user models.User
			if err := db.WithContext(r.Context()).Where("id = ?", userID).First(&user).Error; err != nil {
				if err != gorm.ErrRecordNotFound {
					logger.Error("RequireUser: user lookup failed", "user_id", userID, "error", err)
				}
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), &user)))
		}
	}
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// CurrentUser returns the user attached by RequireUser.
func CurrentUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}
