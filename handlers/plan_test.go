package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/andrewpaige1/studyplan-api/internal/testutil"
	"github.com/andrewpaige1/studyplan-api/llm"
	"github.com/andrewpaige1/studyplan-api/models"
	"github.com/andrewpaige1/studyplan-api/utils"
)

type planResponse struct {
	Message string        `json:"message"`
	Tasks   []models.Task `json:"tasks"`
}

func planItems(s *testServer, types ...string) []map[string]string {
	items := make([]map[string]string, len(types))
	for i, tt := range types {
		items[i] = map[string]string{
			"title":       fmt.Sprintf("Task %d", i+1),
			"description": "Study unit " + fmt.Sprint(i+1),
			"taskType":    tt,
			"dueDate":     s.today().AddDate(0, 0, i).Format(utils.DateLayout),
		}
	}
	return items
}

func toolReply(t *testing.T, items []map[string]string) *llm.Response {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"tasks": items})
	require.NoError(t, err)
	return &llm.Response{ToolInput: raw, StopReason: "tool_use"}
}

func TestGeneratePlanCreatesTasks(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "ada@example.com")
	block := testutil.CreateStudyBlock(t, s.db, user, "Biology", s.today(), s.today().AddDate(0, 0, 10))
	s.llm.reply(toolReply(t, planItems(s, "learn", "Practice", "review")), nil)

	rec := s.do("POST", "/api/study-blocks/"+block.ID+"/generate-plan", nil, &user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp planResponse
	decode(t, rec, &resp)
	assert.Equal(t, "Study plan generated successfully", resp.Message)
	require.Len(t, resp.Tasks, 3)
	assert.Equal(t, models.TaskTypePractice, resp.Tasks[1].TaskType)
	for _, task := range resp.Tasks {
		assert.NotEmpty(t, task.ID)
		assert.Equal(t, user.ID, task.UserID)
		assert.Equal(t, block.ID, task.StudyBlockID)
		assert.False(t, task.Completed)
	}
	assert.Equal(t, int64(3), countTasks(t, s.db, block.ID))

	require.Equal(t, 1, s.llm.calls())
	prompt := s.llm.requests[0].Prompt
	assert.Contains(t, prompt, "Biology")
	assert.Contains(t, prompt, "MON, WED, FRI")
	assert.Equal(t, 4000, s.llm.requests[0].MaxTokens)
}

func TestGeneratePlanAcceptsFencedText(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "ada@example.com")
	block := testutil.CreateStudyBlock(t, s.db, user, "Biology", s.today(), s.today().AddDate(0, 0, 10))

	raw, err := json.Marshal(planItems(s, "learn", "review"))
	require.NoError(t, err)
	s.llm.reply(&llm.Response{Text: "Here is the plan:\n```json\n" + string(raw) + "\n```", StopReason: "end_turn"}, nil)

	rec := s.do("POST", "/api/study-blocks/"+block.ID+"/generate-plan", nil, &user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(2), countTasks(t, s.db, block.ID))
}

func TestGeneratePlanNotOwnedSkipsModel(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "ada@example.com")
	other := testutil.CreateUser(t, s.db, "eve@example.com")
	block := testutil.CreateStudyBlock(t, s.db, other, "Secret", s.today(), s.today().AddDate(0, 0, 10))
	s.llm.reply(toolReply(t, planItems(s, "learn")), nil)

	rec := s.do("POST", "/api/study-blocks/"+block.ID+"/generate-plan", nil, &user)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do("POST", "/api/study-blocks/missing/generate-plan", nil, &user)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Zero(t, s.llm.calls())
	assert.Zero(t, countTasks(t, s.db, block.ID))
}

func TestGeneratePlanIsAllOrNothing(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "ada@example.com")
	block := testutil.CreateStudyBlock(t, s.db, user, "Biology", s.today(), s.today().AddDate(0, 0, 10))

	bad := planItems(s, "learn", "learn", "learn")
	bad[2]["taskType"] = "cram"

	replies := map[string]func(){
		"invalid item": func() { s.llm.reply(toolReply(t, bad), nil) },
		"empty list":   func() { s.llm.reply(toolReply(t, nil), nil) },
		"malformed":    func() { s.llm.reply(&llm.Response{Text: `[{"title": "Cells", "taskType"`}, nil) },
		"truncated":    func() { s.llm.reply(&llm.Response{Text: `[{"title":`, StopReason: "max_tokens"}, llm.ErrTruncated) },
		"upstream":     func() { s.llm.reply(nil, &llm.APIError{Status: 529, Message: "overloaded"}) },
	}
	for name, setup := range replies {
		setup()
		rec := s.do("POST", "/api/study-blocks/"+block.ID+"/generate-plan", nil, &user)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, name)
		msg := errorBody(t, rec)["error"]
		assert.Equal(t, "Error generating study plan", msg, name)
		assert.False(t, strings.Contains(rec.Body.String(), "overloaded"), name)
		assert.Zero(t, countTasks(t, s.db, block.ID), name)
	}
}

func TestGeneratePlanClampsDueDates(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "ada@example.com")
	end := s.today().AddDate(0, 0, 5)
	block := testutil.CreateStudyBlock(t, s.db, user, "Biology", s.today(), end)
	// every day is a study day so only clamping moves the dates
	require.NoError(t, s.db.Model(&block).Update("days_of_week", datatypes.JSONSlice[string](models.Weekdays)).Error)

	items := planItems(s, "learn", "review")
	items[0]["dueDate"] = s.today().AddDate(0, 0, -7).Format(utils.DateLayout)
	items[1]["dueDate"] = s.today().AddDate(0, 1, 0).Format(utils.DateLayout)
	s.llm.reply(toolReply(t, items), nil)

	rec := s.do("POST", "/api/study-blocks/"+block.ID+"/generate-plan", nil, &user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp planResponse
	decode(t, rec, &resp)
	require.Len(t, resp.Tasks, 2)
	assert.True(t, resp.Tasks[0].DueDate.Equal(s.today()))
	assert.True(t, resp.Tasks[1].DueDate.Equal(end))
}

func TestGeneratePlanIdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "ada@example.com")
	block := testutil.CreateStudyBlock(t, s.db, user, "Biology", s.today(), s.today().AddDate(0, 0, 10))
	s.llm.reply(toolReply(t, planItems(s, "learn", "practice")), nil)

	path := "/api/study-blocks/" + block.ID + "/generate-plan"
	first := s.do("POST", path, nil, &user, "Idempotency-Key", "click-1")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := s.do("POST", path, nil, &user, "Idempotency-Key", "click-1")
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())

	var a, b planResponse
	decode(t, first, &a)
	decode(t, second, &b)
	require.Len(t, b.Tasks, 2)
	assert.Equal(t, a.Tasks[0].ID, b.Tasks[0].ID)
	assert.Equal(t, a.Tasks[1].ID, b.Tasks[1].ID)
	assert.Equal(t, 1, s.llm.calls())
	assert.Equal(t, int64(2), countTasks(t, s.db, block.ID))

	// a different key is a new generation
	third := s.do("POST", path, nil, &user, "Idempotency-Key", "click-2")
	require.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, 2, s.llm.calls())
	assert.Equal(t, int64(4), countTasks(t, s.db, block.ID))

	long := s.do("POST", path, nil, &user, "Idempotency-Key", strings.Repeat("k", 101))
	assert.Equal(t, http.StatusBadRequest, long.Code)
}

func previewBody(s *testServer) map[string]interface{} {
	return map[string]interface{}{
		"title":        "Biology",
		"content":      "Cells and genetics.",
		"hoursPerDay":  2,
		"selectedDays": models.Weekdays,
		"testDate":     s.today().AddDate(0, 0, 10).Format(utils.DateLayout),
	}
}

func TestPreviewPlanDoesNotPersist(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "ada@example.com")

	items := []map[string]interface{}{
		{"title": "Cells", "description": "Read chapter 1", "taskType": "learn", "dueDate": s.today().Format(utils.DateLayout), "estimatedMinutes": 45},
		{"title": "Quiz", "description": "Flashcards", "taskType": "review", "dueDate": s.today().AddDate(0, 0, 2).Format(utils.DateLayout), "estimatedMinutes": "30"},
	}
	raw, err := json.Marshal(map[string]interface{}{"tasks": items})
	require.NoError(t, err)
	s.llm.reply(&llm.Response{ToolInput: raw, StopReason: "tool_use"}, nil)

	rec := s.do("POST", "/api/generate-tasks", previewBody(s), &user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Tasks []struct {
			Title            string    `json:"title"`
			TaskType         string    `json:"taskType"`
			DueDate          time.Time `json:"dueDate"`
			EstimatedMinutes int       `json:"estimatedMinutes"`
		} `json:"tasks"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Tasks, 2)
	assert.Equal(t, "Cells", resp.Tasks[0].Title)
	assert.Equal(t, 45, resp.Tasks[0].EstimatedMinutes)
	assert.Equal(t, 30, resp.Tasks[1].EstimatedMinutes)
	assert.True(t, resp.Tasks[1].DueDate.Equal(s.today().AddDate(0, 0, 2)))

	require.Equal(t, 1, s.llm.calls())
	assert.Contains(t, s.llm.requests[0].Prompt, "Cells and genetics.")

	var blocks, tasks int64
	require.NoError(t, s.db.Model(&models.StudyBlock{}).Count(&blocks).Error)
	require.NoError(t, s.db.Model(&models.Task{}).Count(&tasks).Error)
	assert.Zero(t, blocks)
	assert.Zero(t, tasks)
}

func TestPreviewPlanValidatesBeforeCallingModel(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "ada@example.com")

	body := previewBody(s)
	body["selectedDays"] = []string{}
	body["testDate"] = s.today().AddDate(0, 0, -1).Format(utils.DateLayout)
	rec := s.do("POST", "/api/generate-tasks", body, &user)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, errorBody(t, rec)["fields"], "selectedDays")

	rec = s.do("POST", "/api/generate-tasks", previewBody(s), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, s.llm.calls())
}

func TestPreviewPlanModelFailure(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db, "ada@example.com")
	s.llm.reply(&llm.Response{Text: "I can't help with that."}, nil)

	rec := s.do("POST", "/api/generate-tasks", previewBody(s), &user)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error generating study plan", errorBody(t, rec)["error"])
}
