package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/andrewpaige1/studyplan-api/logger"
	"github.com/andrewpaige1/studyplan-api/models"
	"github.com/andrewpaige1/studyplan-api/planner"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	maxIdempotencyKeyLen = 100
	planBatchSize        = 100
	planSuccessMessage   = "Study plan generated successfully"
	planFailureMessage   = "Error generating study plan"
)

// POST /api/study-blocks/{id}/generate-plan
func (db *DBHandler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// ownership is checked before any model call
	block, err := db.findOwnedBlock(r, user.ID, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLen {
		writeError(w, r, badRequest("Idempotency-Key is too long"))
		return
	}
	if key != "" {
		tasks, found, err := db.replayPlan(r, block, key)
		if err != nil {
			writeError(w, r, serverError(planFailureMessage, err))
			return
		}
		if found {
			logger.Info("GeneratePlan: replayed plan", "block_id", block.ID, "idempotency_key", key)
			writeJSON(w, http.StatusOK, map[string]interface{}{"message": planSuccessMessage, "tasks": tasks})
			return
		}
	}

	loc := db.location()
	resp, err := db.LLM.Complete(r.Context(), planner.BuildRequest(block, loc, db.Env.LLMMaxTokens))
	if err != nil {
		writeError(w, r, serverError(planFailureMessage, err))
		return
	}
	items, err := planner.ParseResponse(resp)
	if err != nil {
		writeError(w, r, serverError(planFailureMessage, err))
		return
	}
	tasks, err := planner.BuildTasks(items, block, loc)
	if err != nil {
		writeError(w, r, serverError(planFailureMessage, err))
		return
	}
	for i := range tasks {
		tasks[i].DueDate = tasks[i].DueDate.UTC()
	}

	err = db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&tasks, planBatchSize).Error; err != nil {
			return errors.Wrap(err, "insert tasks")
		}
		if key == "" {
			return nil
		}
		ids := make([]string, len(tasks))
		for i, t := range tasks {
			ids[i] = t.ID
		}
		record := models.PlanRequest{StudyBlockID: block.ID, IdempotencyKey: key, UserID: user.ID, TaskIDs: ids}
		return errors.Wrap(tx.Create(&record).Error, "record plan request")
	})
	if err != nil {
		// a concurrent request with the same key may have committed first
		if key != "" {
			if stored, found, rerr := db.replayPlan(r, block, key); rerr == nil && found {
				writeJSON(w, http.StatusOK, map[string]interface{}{"message": planSuccessMessage, "tasks": stored})
				return
			}
		}
		writeError(w, r, serverError(planFailureMessage, err))
		return
	}

	logger.Info("GeneratePlan: created tasks", "block_id", block.ID, "count", len(tasks))
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": planSuccessMessage, "tasks": tasks})
}

// replayPlan returns the tasks created by an earlier request with the same key.
func (db *DBHandler) replayPlan(r *http.Request, block models.StudyBlock, key string) ([]models.Task, bool, error) {
	var record models.PlanRequest
	err := db.WithContext(r.Context()).
		Where("study_block_id = ? AND idempotency_key = ?", block.ID, key).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	tasks := []models.Task{}
	if len(record.TaskIDs) > 0 {
		if err := orderedTasks(db.WithContext(r.Context())).
			Where("id IN ? AND user_id = ?", []string(record.TaskIDs), block.UserID).
			Find(&tasks).Error; err != nil {
			return nil, false, err
		}
	}
	return tasks, true, nil
}

// previewTask is a generated task that has not been saved.
type previewTask struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	TaskType         string    `json:"taskType"`
	DueDate          time.Time `json:"dueDate"`
	EstimatedMinutes int       `json:"estimatedMinutes"`
}

// POST /api/generate-tasks
// Generates a plan for an unsaved study block and returns it without
// persisting anything.
func (db *DBHandler) PreviewPlan(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	block, err := db.decodeBlock(w, r, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	loc := db.location()
	resp, err := db.LLM.Complete(r.Context(), planner.BuildRequest(block, loc, db.Env.LLMMaxTokens))
	if err != nil {
		writeError(w, r, serverError(planFailureMessage, err))
		return
	}
	items, err := planner.ParseResponse(resp)
	if err != nil {
		writeError(w, r, serverError(planFailureMessage, err))
		return
	}
	tasks, err := planner.BuildTasks(items, block, loc)
	if err != nil {
		writeError(w, r, serverError(planFailureMessage, err))
		return
	}

	out := make([]previewTask, len(tasks))
	for i, t := range tasks {
		out[i] = previewTask{
			Title:            t.Title,
			Description:      t.Description,
			TaskType:         t.TaskType,
			DueDate:          t.DueDate.UTC(),
			EstimatedMinutes: t.EstimatedMinutes,
		}
	}
	logger.Info("PreviewPlan: generated tasks", "user_id", user.ID, "count", len(out))
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": out})
}
