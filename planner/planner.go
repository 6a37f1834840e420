// Package planner builds the plan-generation prompt and turns the model's
// reply into validated tasks.
package planner

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/andrewpaige1/studyplan-api/llm"
	"github.com/andrewpaige1/studyplan-api/models"
	"github.com/andrewpaige1/studyplan-api/utils"
	"github.com/andrewpaige1/studyplan-api/validation"
)

// MaxTasks bounds how many tasks one generation may create.
const MaxTasks = 500

const systemPrompt = "You are a study plan creation assistant. Always return study tasks as valid JSON."

const promptTemplate = `Generate a detailed study plan for this exam or course:
Title: %s
Content to study: %s
Available study time: %d hours per day
Available days: %s
Start date: %s
Test date: %s

Create a structured study plan that:
1. Breaks the content into logical learning units
2. Orders topics in the most effective learning sequence
3. Includes practice exercises and review sessions
4. Uses spaced repetition
5. Fits the available study hours per day
6. Covers every major topic before the test date

Each task has:
{
  "title": "Clear, specific task title",
  "description": "Detailed description of what to study or practice",
  "taskType": "learn" | "practice" | "review",
  "dueDate": "YYYY-MM-DD",
  "estimatedMinutes": number
}

Make sure:
- Tasks fit within the daily time limit
- Regular review sessions are included
- Learning, practice and review are balanced
- Tasks are spread evenly across the available days
- Due dates are between the start date and the test date and fall on the available days
- Descriptions are specific and actionable

If you cannot use the save_study_plan tool, return only the JSON array of tasks, no additional text.`

var planSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "tasks": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string"},
          "description": {"type": "string"},
          "taskType": {"type": "string", "enum": ["learn", "practice", "review"]},
          "dueDate": {"type": "string", "description": "YYYY-MM-DD"},
          "estimatedMinutes": {"type": "integer", "minimum": 0, "maximum": 1440}
        },
        "required": ["title", "description", "taskType", "dueDate", "estimatedMinutes"],
        "additionalProperties": false
      }
    }
  },
  "required": ["tasks"],
  "additionalProperties": false
}`)

// GeneratedTask is one task as the model returns it.
type GeneratedTask struct {
	Title            string  `json:"title" validate:"notblank,max=300"`
	Description      string  `json:"description"`
	TaskType         string  `json:"taskType" validate:"tasktype"`
	DueDate          string  `json:"dueDate" validate:"date"`
	EstimatedMinutes Minutes `json:"estimatedMinutes" validate:"min=0,max=1440"`
}

// Minutes accepts a JSON number or a numeric string, rounded to whole minutes.
type Minutes int

func (m *Minutes) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*m = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return errors.Errorf("planner: invalid estimatedMinutes %s", data)
	}
	*m = Minutes(math.Round(f))
	return nil
}

// ItemError rejects the whole plan because of one task.
type ItemError struct {
	Index  int
	Reason string
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("planner: task %d: %s", e.Index, e.Reason)
}

var ErrNoTasks = errors.New("planner: model returned no tasks")

func BuildRequest(block models.StudyBlock, loc *time.Location, maxTokens int) llm.Request {
	prompt := fmt.Sprintf(promptTemplate,
		block.Title,
		block.Content,
		block.TotalHours,
		strings.Join(block.DaysOfWeek, ", "),
		block.StartDate.In(loc).Format(utils.DateLayout),
		block.EndDate.In(loc).Format(utils.DateLayout),
	)
	return llm.Request{
		System:    systemPrompt,
		Prompt:    prompt,
		MaxTokens: maxTokens,
		Tool: &llm.Tool{
			Name:        "save_study_plan",
			Description: "Save the generated study plan tasks.",
			InputSchema: planSchema,
		},
	}
}

// ParseResponse reads tasks from the tool input when present, otherwise from
// a JSON array in the reply text.
func ParseResponse(resp *llm.Response) ([]GeneratedTask, error) {
	if resp == nil {
		return nil, llm.ErrEmptyResponse
	}
	if len(resp.ToolInput) > 0 {
		var wrapped struct {
			Tasks []GeneratedTask `json:"tasks"`
		}
		if err := json.Unmarshal(resp.ToolInput, &wrapped); err != nil {
			return nil, errors.Wrap(err, "planner: decode tool input")
		}
		return wrapped.Tasks, nil
	}
	return ParseText(resp.Text)
}

// ParseText decodes a JSON array of tasks, ignoring Markdown code fences and
// any prose around the array.
func ParseText(text string) ([]GeneratedTask, error) {
	body := stripFences(text)
	start := strings.Index(body, "[")
	end := strings.LastIndex(body, "]")
	if start < 0 || end < start {
		return nil, errors.New("planner: no JSON array in response")
	}
	var tasks []GeneratedTask
	if err := json.Unmarshal([]byte(body[start:end+1]), &tasks); err != nil {
		return nil, errors.Wrap(err, "planner: decode task array")
	}
	return tasks, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	open := strings.Index(text, "```")
	if open < 0 {
		return text
	}
	rest := text[open+3:]
	// drop the info string, e.g. "json"
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// BuildTasks validates every generated task and maps it onto the block. Due
// dates are read in loc, clamped into [block.StartDate, block.EndDate] and
// moved onto one of the block's study days. One invalid item fails the
// whole plan.
func BuildTasks(items []GeneratedTask, block models.StudyBlock, loc *time.Location) ([]models.Task, error) {
	if len(items) == 0 {
		return nil, ErrNoTasks
	}
	if len(items) > MaxTasks {
		return nil, errors.Errorf("planner: %d tasks exceeds the limit of %d", len(items), MaxTasks)
	}

	tasks := make([]models.Task, 0, len(items))
	for i, item := range items {
		item.Title = strings.TrimSpace(item.Title)
		item.Description = strings.TrimSpace(item.Description)
		item.TaskType = strings.ToLower(strings.TrimSpace(item.TaskType))
		item.DueDate = strings.TrimSpace(item.DueDate)
		if err := validation.Struct(item); err != nil {
			return nil, &ItemError{Index: i, Reason: err.Error()}
		}
		due, err := utils.ParseDate(item.DueDate, loc)
		if err != nil {
			return nil, &ItemError{Index: i, Reason: err.Error()}
		}
		due = onStudyDay(utils.ClampDate(due, block.StartDate, block.EndDate), block, loc)

		tasks = append(tasks, models.Task{
			Title:            item.Title,
			Description:      item.Description,
			DueDate:          due,
			TaskType:         item.TaskType,
			EstimatedMinutes: int(item.EstimatedMinutes),
			StudyBlockID:     block.ID,
			UserID:           block.UserID,
		})
	}
	return tasks, nil
}

// onStudyDay moves due back to the nearest study day on or after the block
// start, or forward to the next one before the block end. A block with no
// study day in reach keeps due.
func onStudyDay(due time.Time, block models.StudyBlock, loc *time.Location) time.Time {
	if len(block.DaysOfWeek) == 0 {
		return due
	}
	local := due.In(loc)
	for i := 0; i < 7; i++ {
		d := local.AddDate(0, 0, -i)
		if d.Before(block.StartDate) {
			break
		}
		if block.StudiesOn(d.Weekday()) {
			return d
		}
	}
	for i := 1; i < 7; i++ {
		d := local.AddDate(0, 0, i)
		if d.After(block.EndDate) {
			break
		}
		if block.StudiesOn(d.Weekday()) {
			return d
		}
	}
	return due
}
