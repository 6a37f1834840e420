package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/andrewpaige1/studyplan-api/logger"
	"github.com/andrewpaige1/studyplan-api/models"
	"github.com/andrewpaige1/studyplan-api/utils"
	"github.com/andrewpaige1/studyplan-api/validation"
)

type createStudyBlockRequest struct {
	Title        string   `json:"title" validate:"required,notblank,max=200"`
	TestDate     string   `json:"testDate" validate:"required,date"`
	HoursPerDay  int      `json:"hoursPerDay" validate:"required,min=1,max=24"`
	SelectedDays []string `json:"selectedDays" validate:"required,min=1,max=7,dive,weekday"`
	Content      string   `json:"content" validate:"required,notblank"`
}

var errBlockNotFound = notFound("Study block not found")

func orderedTasks(db *gorm.DB) *gorm.DB {
	return db.Order("due_date ASC").Order("created_at ASC")
}

// GET /api/study-blocks
func (db *DBHandler) GetStudyBlocks(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	blocks := []models.StudyBlock{}
	if err := db.WithContext(r.Context()).
		Preload("Tasks", orderedTasks).
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&blocks).Error; err != nil {
		writeError(w, r, serverError("Error fetching study blocks", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"studyBlocks": blocks})
}

// POST /api/study-blocks
func (db *DBHandler) CreateStudyBlock(w http.ResponseWriter, r *http.Request) {
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
	if err := db.WithContext(r.Context()).Create(&block).Error; err != nil {
		writeError(w, r, serverError("Error creating study block", err))
		return
	}
	block.Tasks = []models.Task{}

	logger.Info("CreateStudyBlock: created block", "block_id", block.ID, "user_id", user.ID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"studyBlock": block})
}

// decodeBlock reads and validates a study block from the request body. The
// block starts today and ends on the test date; ownership always comes from
// the session.
func (db *DBHandler) decodeBlock(w http.ResponseWriter, r *http.Request, userID string) (models.StudyBlock, error) {
	var req createStudyBlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return models.StudyBlock{}, err
	}
	req.SelectedDays = normalizeDays(req.SelectedDays)
	if err := validation.Struct(req); err != nil {
		return models.StudyBlock{}, err
	}

	loc := db.location()
	today := utils.StartOfDay(db.now(), loc)
	testDate, err := utils.ParseDate(req.TestDate, loc)
	if err != nil {
		return models.StudyBlock{}, validation.NewFieldError("testDate", err.Error())
	}
	testDate = utils.StartOfDay(testDate, loc)
	if testDate.Before(today) {
		return models.StudyBlock{}, validation.NewFieldError("testDate", "testDate cannot be in the past")
	}

	return models.StudyBlock{
		Title:      strings.TrimSpace(req.Title),
		StartDate:  today.UTC(),
		EndDate:    testDate.UTC(),
		TotalHours: req.HoursPerDay,
		DaysOfWeek: req.SelectedDays,
		Content:    strings.TrimSpace(req.Content),
		Status:     models.StatusActive,
		UserID:     userID,
	}, nil
}

// normalizeDays upper-cases and de-duplicates day codes and sorts known codes
// Sunday first. Unknown codes are kept so validation can report them.
func normalizeDays(days []string) []string {
	if days == nil {
		return nil
	}
	index := make(map[string]int, len(models.Weekdays))
	for i, d := range models.Weekdays {
		index[d] = i
	}
	seen := make(map[string]bool, len(days))
	out := make([]string, 0, len(days))
	for _, d := range days {
		d = strings.ToUpper(strings.TrimSpace(d))
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := index[out[i]]
		b, bok := index[out[j]]
		if aok && bok {
			return a < b
		}
		return aok && !bok
	})
	return out
}

// findOwnedBlock loads a block by id scoped to the user.
func (db *DBHandler) findOwnedBlock(r *http.Request, userID string, withTasks bool) (models.StudyBlock, error) {
	var block models.StudyBlock
	q := db.WithContext(r.Context()).Where("id = ? AND user_id = ?", r.PathValue("id"), userID)
	if withTasks {
		q = q.Preload("Tasks", orderedTasks)
	}
	if err := q.First(&block).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return block, errBlockNotFound
		}
		return block, serverError("Error fetching study block", err)
	}
	if block.Tasks == nil {
		block.Tasks = []models.Task{}
	}
	return block, nil
}

// GET /api/study-blocks/{id}
func (db *DBHandler) GetStudyBlockByID(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	block, err := db.findOwnedBlock(r, user.ID, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"studyBlock": block})
}

// DELETE /api/study-blocks/{id}
func (db *DBHandler) DeleteStudyBlockByID(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	block, err := db.findOwnedBlock(r, user.ID, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("study_block_id = ?", block.ID).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("study_block_id = ?", block.ID).Delete(&models.PlanRequest{}).Error; err != nil {
			return err
		}
		return tx.Delete(&block).Error
	})
	if err != nil {
		writeError(w, r, serverError("Error deleting study block", err))
		return
	}

	logger.Info("DeleteStudyBlockByID: deleted block", "block_id", block.ID, "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Study block deleted"})
}
