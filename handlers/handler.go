package handlers

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/andrewpaige1/studyplan-api/config"
	"github.com/andrewpaige1/studyplan-api/extract"
	"github.com/andrewpaige1/studyplan-api/llm"
	"github.com/andrewpaige1/studyplan-api/middleware"
)

// PublicPaths are served without session token validation.
var PublicPaths = []string{"/healthz", "/api/auth/register", "/api/auth/login", "/api/auth/logout"}

type DBHandler struct {
	*gorm.DB
	LLM       llm.Client
	Extractor extract.Extractor
	Env       config.Environment
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (db *DBHandler) now() time.Time {
	if db.Now != nil {
		return db.Now()
	}
	return time.Now()
}

func (db *DBHandler) location() *time.Location {
	if db.Env.Location != nil {
		return db.Env.Location
	}
	return time.Local
}

// Routes registers every endpoint. Routes behind RequireUser expect
// EnsureValidToken to run first.
func (db *DBHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	protected := middleware.RequireUser(db.DB)

	mux.HandleFunc("GET /healthz", db.Healthz)

	// Auth
	mux.HandleFunc("POST /api/auth/register", db.Register)
	mux.HandleFunc("POST /api/auth/login", db.Login)
	mux.HandleFunc("POST /api/auth/logout", db.Logout)
	mux.HandleFunc("GET /api/auth/session", protected(db.Session))

	// Study blocks
	mux.HandleFunc("GET /api/study-blocks", protected(db.GetStudyBlocks))
	mux.HandleFunc("POST /api/study-blocks", protected(db.CreateStudyBlock))
	mux.HandleFunc("GET /api/study-blocks/{id}", protected(db.GetStudyBlockByID))
	mux.HandleFunc("DELETE /api/study-blocks/{id}", protected(db.DeleteStudyBlockByID))
	mux.HandleFunc("POST /api/study-blocks/{id}/generate-plan", protected(db.GeneratePlan))
	mux.HandleFunc("POST /api/generate-tasks", protected(db.PreviewPlan))

	// Tasks
	mux.HandleFunc("GET /api/tasks/today", protected(db.GetTodayTasks))
	mux.HandleFunc("GET /api/tasks/{id}", protected(db.GetTaskByID))
	mux.HandleFunc("PATCH /api/tasks/{id}", protected(db.UpdateTaskByID))
	mux.HandleFunc("POST /api/tasks/{id}/generate-summary", protected(db.GenerateSummary))
	mux.HandleFunc("GET /api/tasks/{id}/materials", protected(db.GetTaskMaterials))

	// Uploads
	mux.HandleFunc("POST /api/uploads/extract", protected(db.ExtractUpload))

	return mux
}

func (db *DBHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
