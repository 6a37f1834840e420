package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/andrewpaige1/studyplan-api/models"
	"github.com/andrewpaige1/studyplan-api/studyguide"
)

const summaryFailureMessage = "Error generating summary"

var errTaskNotFound = notFound("Task not found")

// findOwnedTask loads a task by id scoped to the user.
func (db *DBHandler) findOwnedTask(r *http.Request, userID string, withBlock bool) (models.Task, error) {
	var task models.Task
	q := db.WithContext(r.Context()).Where("id = ? AND user_id = ?", r.PathValue("id"), userID)
	if withBlock {
		q = q.Preload("StudyBlock")
	}
	if err := q.First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return task, errTaskNotFound
		}
		return task, serverError("Error fetching task", err)
	}
	return task, nil
}

// POST /api/tasks/{id}/generate-summary
func (db *DBHandler) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	task, err := db.findOwnedTask(r, user.ID, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if task.StudyBlock == nil {
		writeError(w, r, errTaskNotFound)
		return
	}

	resp, err := db.LLM.Complete(r.Context(), studyguide.BuildRequest(task, *task.StudyBlock, db.Env.LLMMaxTokens))
	if err != nil {
		writeError(w, r, serverError(summaryFailureMessage, err))
		return
	}
	summary, materials, err := studyguide.FromResponse(task, resp)
	if err != nil {
		writeError(w, r, serverError(summaryFailureMessage, err))
		return
	}

	if err := db.saveSummary(r, &task, summary, materials); err != nil {
		writeError(w, r, serverError(summaryFailureMessage, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"summary": summary, "materials": materials})
}

// saveSummary overwrites the summary, its materials and lastSummaryDate.
func (db *DBHandler) saveSummary(r *http.Request, task *models.Task, summary string, materials studyguide.Materials) error {
	var raw datatypes.JSON
	if !materials.IsEmpty() {
		encoded, err := json.Marshal(materials)
		if err != nil {
			return errors.Wrap(err, "encode materials")
		}
		raw = encoded
	}
	now := db.now().UTC()
	err := db.WithContext(r.Context()).Model(task).Updates(map[string]interface{}{
		"summary":           summary,
		"materials":         raw,
		"last_summary_date": now,
	}).Error
	if err != nil {
		return errors.Wrap(err, "save summary")
	}
	task.Summary = &summary
	task.Materials = raw
	task.LastSummaryDate = &now
	return nil
}
