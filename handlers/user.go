package handlers

import (
	"net/http"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/andrewpaige1/studyplan-api/auth"
	"github.com/andrewpaige1/studyplan-api/logger"
	"github.com/andrewpaige1/studyplan-api/models"
	"github.com/andrewpaige1/studyplan-api/validation"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=8,bcryptlen"`
	Name     string `json:"name" validate:"max=120"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var errEmailTaken = &httpError{status: http.StatusConflict, message: "Email is already registered"}

// POST /api/auth/register
func (db *DBHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Email = auth.NormalizeEmail(req.Email)
	if err := validation.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}

	var count int64
	if err := db.WithContext(r.Context()).Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		writeError(w, r, serverError("Error creating account", err))
		return
	}
	if count > 0 {
		writeError(w, r, errEmailTaken)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, serverError("Error creating account", err))
		return
	}
	user := models.User{Email: req.Email, Name: req.Name, PasswordHash: hash}
	if err := db.WithContext(r.Context()).Create(&user).Error; err != nil {
		// a concurrent registration can win the unique index
		if db.WithContext(r.Context()).Where("email = ?", req.Email).First(&models.User{}).Error == nil {
			writeError(w, r, errEmailTaken)
			return
		}
		writeError(w, r, serverError("Error creating account", err))
		return
	}

	if err := db.startSession(w, user); err != nil {
		writeError(w, r, serverError("Error creating session", err))
		return
	}
	logger.Info("Register: created user", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

// POST /api/auth/login
func (db *DBHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}

	invalid := &httpError{status: http.StatusUnauthorized, message: "Invalid email or password"}
	var user models.User
	err := db.WithContext(r.Context()).Where("email = ?", auth.NormalizeEmail(req.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, r, invalid)
		return
	}
	if err != nil {
		writeError(w, r, serverError("Error signing in", err))
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, r, invalid)
		return
	}

	if err := db.startSession(w, user); err != nil {
		writeError(w, r, serverError("Error creating session", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// POST /api/auth/logout
func (db *DBHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, db.Env)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

// GET /api/auth/session
func (db *DBHandler) Session(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (db *DBHandler) startSession(w http.ResponseWriter, user models.User) error {
	token, expires, err := auth.CreateToken(db.Env, user, db.now())
	if err != nil {
		return err
	}
	auth.SetSessionCookie(w, db.Env, token, expires)
	return nil
}
