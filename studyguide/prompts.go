package studyguide

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/andrewpaige1/studyplan-api/llm"
	"github.com/andrewpaige1/studyplan-api/models"
)

const systemPrompt = "You are a specialized study material creator. Adapt the material to whether the task " +
	"is for learning, practicing or reviewing. Keep it clear, accurate and memorable."

const learnTemplate = `Create a comprehensive learning summary for: %s
Task: %s

Source content:
%s

Cover:
1. A clear explanation of the main concepts
2. Key definitions and terminology
3. Examples and illustrations
4. How the concepts relate to each other
5. Common misconceptions and their clarifications

Put the explanation in "overview" (Markdown allowed) and list each key concept as one entry in "keyPoints".
If you answer in plain Markdown instead, use headers and write every key concept as a line starting with "- ".`

const practiceTemplate = `Create a practice session for: %s
Task: %s

Source content:
%s

Write 5 to 7 practice problems of varying difficulty, using realistic scenarios where possible.
Give every problem a detailed step-by-step solution.

Return each problem as an entry in "problems" with "question" and "solution".
If you answer in plain Markdown instead, use exactly this layout for every problem:

Problem 1:
[problem description]

Solution:
[step-by-step solution]`

const reviewTemplate = `Create a review summary for: %s
Task: %s

Source content:
%s

Provide two parts:
1. A quick review summary: key points, important formulas or rules, and critical concepts to remember.
2. At least 10 flashcards covering the main concepts, with specific questions and concise answers.

Return the summary bullets in "quickReference" and the cards in "flashcards".
If you answer in plain Markdown instead, start every summary line with "• " and write each card as:
Q: [question]
A: [answer]`

var (
	stringArray = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}

	materialsSchemas = map[string]map[string]any{
		models.TaskTypeLearn: objectSchema(map[string]any{
			"overview":  map[string]any{"type": "string"},
			"keyPoints": stringArray,
		}, "overview", "keyPoints"),
		models.TaskTypePractice: objectSchema(map[string]any{
			"problems": map[string]any{
				"type":  "array",
				"items": objectSchema(map[string]any{"question": map[string]any{"type": "string"}, "solution": map[string]any{"type": "string"}}, "question", "solution"),
			},
		}, "problems"),
		models.TaskTypeReview: objectSchema(map[string]any{
			"quickReference": stringArray,
			"flashcards": map[string]any{
				"type":  "array",
				"items": objectSchema(map[string]any{"question": map[string]any{"type": "string"}, "answer": map[string]any{"type": "string"}}, "question", "answer"),
			},
		}, "quickReference", "flashcards"),
	}
)

func objectSchema(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// MaterialsTool is the structured-output tool for a task type.
func MaterialsTool(taskType string) *llm.Tool {
	schema, ok := materialsSchemas[taskType]
	if !ok {
		schema = materialsSchemas[models.TaskTypeLearn]
	}
	raw, _ := json.Marshal(schema)
	return &llm.Tool{
		Name:        "save_study_materials",
		Description: fmt.Sprintf("Save the %s materials for this study task.", taskType),
		InputSchema: raw,
	}
}

// BuildRequest picks the prompt template for the task's type.
func BuildRequest(task models.Task, block models.StudyBlock, maxTokens int) llm.Request {
	tmpl := learnTemplate
	switch task.TaskType {
	case models.TaskTypePractice:
		tmpl = practiceTemplate
	case models.TaskTypeReview:
		tmpl = reviewTemplate
	}
	return llm.Request{
		System:    systemPrompt,
		Prompt:    fmt.Sprintf(tmpl, task.Title, task.Description, block.Content),
		MaxTokens: maxTokens,
		Tool:      MaterialsTool(task.TaskType),
	}
}

// FromResponse turns a model reply into a Markdown summary and materials.
// Structured tool input wins; a plain Markdown reply is stored verbatim and
// segmented.
func FromResponse(task models.Task, resp *llm.Response) (string, Materials, error) {
	if resp == nil {
		return "", Materials{}, llm.ErrEmptyResponse
	}
	if len(resp.ToolInput) > 0 {
		m, err := ParseMaterials(task.TaskType, resp.ToolInput)
		if err != nil {
			return "", Materials{}, err
		}
		return RenderMarkdown(task.Title, m), m, nil
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", Materials{}, errors.Wrap(llm.ErrEmptyResponse, "studyguide")
	}
	return text, Segment(task.TaskType, text), nil
}
