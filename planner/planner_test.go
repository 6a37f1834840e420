package planner

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaige1/studyplan-api/llm"
	"github.com/andrewpaige1/studyplan-api/models"
)

func testBlock(loc *time.Location) models.StudyBlock {
	return models.StudyBlock{
		ID:         "block1",
		Title:      "Organic Chemistry",
		StartDate:  time.Date(2025, 5, 1, 0, 0, 0, 0, loc),
		EndDate:    time.Date(2025, 5, 20, 0, 0, 0, 0, loc),
		TotalHours: 3,
		DaysOfWeek: []string{"MON", "WED"},
		Content:    "Alkanes, alkenes, alkynes.",
		UserID:     "user1",
	}
}

func TestBuildRequestIncludesBlockFields(t *testing.T) {
	req := BuildRequest(testBlock(time.UTC), time.UTC, 4000)
	for _, want := range []string{"Organic Chemistry", "Alkanes, alkenes, alkynes.", "3 hours per day", "MON, WED", "2025-05-01", "2025-05-20"} {
		assert.Contains(t, req.Prompt, want)
	}
	require.NotNil(t, req.Tool)
	assert.Equal(t, "save_study_plan", req.Tool.Name)
	assert.Equal(t, 4000, req.MaxTokens)
}

func TestParseResponsePrefersToolInput(t *testing.T) {
	tasks, err := ParseResponse(&llm.Response{
		Text:      "ignored",
		ToolInput: []byte(`{"tasks":[{"title":"Alkanes","description":"d","taskType":"learn","dueDate":"2025-05-02"}]}`),
	})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Alkanes", tasks[0].Title)
}

func TestParseTextStripsFencesAndProse(t *testing.T) {
	text := "Here is your plan:\n```json\n[{\"title\":\"A\",\"description\":\"d\",\"taskType\":\"Review\",\"dueDate\":\"2025-05-03\"}]\n```\nGood luck!"
	tasks, err := ParseText(text)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Review", tasks[0].TaskType)

	tasks, err = ParseText(`Sure! [{"title":"B","taskType":"learn","dueDate":"2025-05-04"}] Enjoy.`)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestParseTextRejectsMalformed(t *testing.T) {
	for _, text := range []string{"", "no json here", `[{"title": "cut off"`, `{"title":"object"}`} {
		_, err := ParseText(text)
		assert.Error(t, err, text)
	}
}

func TestBuildTasksNormalisesAndClamps(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	block := testBlock(loc)
	block.DaysOfWeek = models.Weekdays

	tasks, err := BuildTasks([]GeneratedTask{
		{Title: " Alkanes ", Description: "read", TaskType: "LEARN", DueDate: "2025-05-05", EstimatedMinutes: 45},
		{Title: "Early", TaskType: "practice", DueDate: "2025-04-01"},
		{Title: "Late", TaskType: "review", DueDate: "2025-06-30"},
	}, block, loc)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	assert.Equal(t, "Alkanes", tasks[0].Title)
	assert.Equal(t, models.TaskTypeLearn, tasks[0].TaskType)
	assert.Equal(t, 45, tasks[0].EstimatedMinutes)
	assert.True(t, tasks[0].DueDate.Equal(time.Date(2025, 5, 5, 0, 0, 0, 0, loc)))
	assert.Equal(t, "block1", tasks[0].StudyBlockID)
	assert.Equal(t, "user1", tasks[0].UserID)

	assert.True(t, tasks[1].DueDate.Equal(block.StartDate))
	assert.True(t, tasks[2].DueDate.Equal(block.EndDate))
}

func TestBuildTasksMovesDueDatesOntoStudyDays(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	// Thursday 2025-05-01 to Tuesday 2025-05-20, studying Mondays and Wednesdays
	block := testBlock(loc)

	tasks, err := BuildTasks([]GeneratedTask{
		{Title: "on a Monday", TaskType: "learn", DueDate: "2025-05-05"},
		{Title: "on a Saturday", TaskType: "learn", DueDate: "2025-05-10"},
		{Title: "before the first study day", TaskType: "learn", DueDate: "2025-05-02"},
		{Title: "after the test", TaskType: "review", DueDate: "2025-06-30"},
	}, block, loc)
	require.NoError(t, err)

	day := func(d int) time.Time { return time.Date(2025, 5, d, 0, 0, 0, 0, loc) }
	assert.True(t, tasks[0].DueDate.Equal(day(5)), tasks[0].DueDate)
	assert.True(t, tasks[1].DueDate.Equal(day(7)), tasks[1].DueDate)
	assert.True(t, tasks[2].DueDate.Equal(day(5)), tasks[2].DueDate)
	assert.True(t, tasks[3].DueDate.Equal(day(19)), tasks[3].DueDate)

	// no study day in range leaves the date alone
	short := testBlock(loc)
	short.EndDate = short.StartDate
	tasks, err = BuildTasks([]GeneratedTask{{Title: "x", TaskType: "learn", DueDate: "2025-05-01"}}, short, loc)
	require.NoError(t, err)
	assert.True(t, tasks[0].DueDate.Equal(day(1)))
}

func TestParseResponseReadsEstimatedMinutes(t *testing.T) {
	tasks, err := ParseText(`[
		{"title":"a","taskType":"learn","dueDate":"2025-05-05","estimatedMinutes":30},
		{"title":"b","taskType":"learn","dueDate":"2025-05-05","estimatedMinutes":"90"},
		{"title":"c","taskType":"learn","dueDate":"2025-05-05","estimatedMinutes":22.6},
		{"title":"d","taskType":"learn","dueDate":"2025-05-05"}
	]`)
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	assert.Equal(t, Minutes(30), tasks[0].EstimatedMinutes)
	assert.Equal(t, Minutes(90), tasks[1].EstimatedMinutes)
	assert.Equal(t, Minutes(23), tasks[2].EstimatedMinutes)
	assert.Equal(t, Minutes(0), tasks[3].EstimatedMinutes)

	_, err = ParseText(`[{"title":"a","taskType":"learn","dueDate":"2025-05-05","estimatedMinutes":"soon"}]`)
	assert.Error(t, err)
}

func TestBuildTasksRejectsWholePlanOnBadItem(t *testing.T) {
	block := testBlock(time.UTC)
	good := GeneratedTask{Title: "ok", TaskType: "learn", DueDate: "2025-05-02"}

	cases := map[string]GeneratedTask{
		"missing title": {TaskType: "learn", DueDate: "2025-05-02"},
		"bad type":      {Title: "x", TaskType: "cram", DueDate: "2025-05-02"},
		"bad date":      {Title: "x", TaskType: "learn", DueDate: "next tuesday"},
		"blank title":   {Title: "   ", TaskType: "learn", DueDate: "2025-05-02"},
		"bad minutes":   {Title: "x", TaskType: "learn", DueDate: "2025-05-02", EstimatedMinutes: -5},
	}
	for name, bad := range cases {
		tasks, err := BuildTasks([]GeneratedTask{good, bad}, block, time.UTC)
		assert.Nil(t, tasks, name)
		var itemErr *ItemError
		require.True(t, errors.As(err, &itemErr), name)
		assert.Equal(t, 1, itemErr.Index, name)
	}

	_, err := BuildTasks(nil, block, time.UTC)
	assert.ErrorIs(t, err, ErrNoTasks)
}
