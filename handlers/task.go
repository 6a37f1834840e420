package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/andrewpaige1/studyplan-api/logger"
	"github.com/andrewpaige1/studyplan-api/models"
	"github.com/andrewpaige1/studyplan-api/studyguide"
	"github.com/andrewpaige1/studyplan-api/utils"
)

// updateTaskRequest is a partial update; absent fields are left unchanged.
type updateTaskRequest struct {
	Completed *bool   `json:"completed"`
	Summary   *string `json:"summary"`
}

type todayTask struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate"`
	Completed   bool      `json:"completed"`
	TaskType    string    `json:"taskType"`
	Minutes     int       `json:"estimatedMinutes"`
	BlockTitle  string    `json:"blockTitle"`
	BlockID     string    `json:"blockId"`
}

// GET /api/tasks/{id}
func (db *DBHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	task, err := db.findOwnedTask(r, user.ID, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"task": task})
}

// PATCH /api/tasks/{id}
func (db *DBHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	task, err := db.findOwnedTask(r, user.ID, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	updates := map[string]interface{}{}
	if req.Completed != nil {
		switch {
		case *req.Completed && !task.Completed:
			updates["completed"] = true
			updates["completed_at"] = db.now().UTC()
		case !*req.Completed && task.Completed:
			updates["completed"] = false
			updates["completed_at"] = nil
		}
	}
	if len(updates) > 0 {
		if err := db.WithContext(r.Context()).Model(&task).Updates(updates).Error; err != nil {
			writeError(w, r, serverError("Error updating task", err))
			return
		}
	}

	if req.Summary != nil && strings.TrimSpace(*req.Summary) != "" {
		summary := strings.TrimSpace(*req.Summary)
		if err := db.saveSummary(r, &task, summary, studyguide.Segment(task.TaskType, summary)); err != nil {
			writeError(w, r, serverError("Error updating task", err))
			return
		}
	}

	var updated models.Task
	if err := db.WithContext(r.Context()).First(&updated, "id = ?", task.ID).Error; err != nil {
		writeError(w, r, serverError("Error updating task", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"task": updated})
}

// GET /api/tasks/today[?tz=Area/City]
func (db *DBHandler) GetTodayTasks(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	loc := db.location()
	if tz := strings.TrimSpace(r.URL.Query().Get("tz")); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			writeError(w, r, badRequest("Invalid time zone"))
			return
		}
	}
	start, end := utils.DayBounds(db.now(), loc)
	logger.Debug("GetTodayTasks: window", "user_id", user.ID, "start", start, "end", end)

	var tasks []models.Task
	if err := orderedTasks(db.WithContext(r.Context())).
		Preload("StudyBlock").
		Where("user_id = ? AND due_date >= ? AND due_date < ?", user.ID, start.UTC(), end.UTC()).
		Find(&tasks).Error; err != nil {
		writeError(w, r, serverError("Error fetching tasks", err))
		return
	}

	out := make([]todayTask, 0, len(tasks))
	for _, t := range tasks {
		item := todayTask{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			DueDate:     t.DueDate,
			Completed:   t.Completed,
			TaskType:    t.TaskType,
			Minutes:     t.EstimatedMinutes,
			BlockID:     t.StudyBlockID,
		}
		if t.StudyBlock != nil {
			item.BlockTitle = t.StudyBlock.Title
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": out})
}

// GET /api/tasks/{id}/materials
func (db *DBHandler) GetTaskMaterials(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	task, err := db.findOwnedTask(r, user.ID, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var materials studyguide.Materials
	if len(task.Materials) > 0 {
		if err := json.Unmarshal(task.Materials, &materials); err != nil {
			writeError(w, r, serverError("Error reading materials", err))
			return
		}
	}
	if materials.IsEmpty() && task.Summary != nil {
		materials = studyguide.Segment(task.TaskType, *task.Summary)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"taskType": task.TaskType, "materials": materials})
}
