package studyguide

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/andrewpaige1/studyplan-api/models"
)

type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Problem struct {
	Question string `json:"question"`
	Solution string `json:"solution"`
}

// Materials is the structured study material of a task. Which fields are
// set depends on the task type.
type Materials struct {
	Overview       string      `json:"overview,omitempty"`
	KeyPoints      []string    `json:"keyPoints,omitempty"`
	Problems       []Problem   `json:"problems,omitempty"`
	QuickReference []string    `json:"quickReference,omitempty"`
	Flashcards     []Flashcard `json:"flashcards,omitempty"`
}

func (m Materials) IsEmpty() bool {
	return m.Overview == "" && len(m.KeyPoints) == 0 && len(m.Problems) == 0 &&
		len(m.QuickReference) == 0 && len(m.Flashcards) == 0
}

// Segment derives materials from free Markdown using the layout the prompts
// ask for. Unknown task types get every kind of material that can be found.
func Segment(taskType, text string) Materials {
	switch taskType {
	case models.TaskTypeLearn:
		return Materials{KeyPoints: KeyPoints(text)}
	case models.TaskTypePractice:
		return Materials{Problems: Problems(text)}
	case models.TaskTypeReview:
		return Materials{QuickReference: QuickReference(text), Flashcards: Flashcards(text)}
	default:
		return Materials{
			KeyPoints:      KeyPoints(text),
			Problems:       Problems(text),
			QuickReference: QuickReference(text),
			Flashcards:     Flashcards(text),
		}
	}
}

// ParseMaterials decodes structured materials returned by the model and
// checks that the fields required for taskType are present and non-empty.
func ParseMaterials(taskType string, raw []byte) (Materials, error) {
	var m Materials
	if err := json.Unmarshal(raw, &m); err != nil {
		return Materials{}, errors.Wrap(err, "studyguide: decode materials")
	}
	m = m.trimmed()

	switch taskType {
	case models.TaskTypeLearn:
		if m.Overview == "" || len(m.KeyPoints) == 0 {
			return Materials{}, errors.New("studyguide: learn materials need an overview and key points")
		}
	case models.TaskTypePractice:
		if len(m.Problems) == 0 {
			return Materials{}, errors.New("studyguide: practice materials need problems")
		}
	case models.TaskTypeReview:
		if len(m.Flashcards) == 0 {
			return Materials{}, errors.New("studyguide: review materials need flashcards")
		}
	}
	return m, nil
}

// trimmed drops blank entries and incomplete problems and cards.
func (m Materials) trimmed() Materials {
	out := Materials{Overview: strings.TrimSpace(m.Overview)}
	out.KeyPoints = nonBlank(m.KeyPoints)
	out.QuickReference = nonBlank(m.QuickReference)
	for _, p := range m.Problems {
		p.Question, p.Solution = strings.TrimSpace(p.Question), strings.TrimSpace(p.Solution)
		if p.Question != "" && p.Solution != "" {
			out.Problems = append(out.Problems, p)
		}
	}
	for _, c := range m.Flashcards {
		c.Question, c.Answer = strings.TrimSpace(c.Question), strings.TrimSpace(c.Answer)
		if c.Question != "" && c.Answer != "" {
			out.Flashcards = append(out.Flashcards, c)
		}
	}
	return out
}

func nonBlank(items []string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// RenderMarkdown writes materials in the same layout Segment reads, so a
// rendered summary segments back into the same lists.
func RenderMarkdown(title string, m Materials) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	if m.Overview != "" {
		b.WriteString(m.Overview)
		b.WriteString("\n\n")
	}
	if len(m.KeyPoints) > 0 {
		b.WriteString("## Key Points\n\n")
		for _, kp := range m.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", oneLine(kp))
		}
		b.WriteString("\n")
	}
	for i, p := range m.Problems {
		fmt.Fprintf(&b, "### Problem %d\n\n%s\n\nSolution:\n%s\n\n", i+1, p.Question, p.Solution)
	}
	if len(m.QuickReference) > 0 {
		b.WriteString("## Quick Review Summary\n\n")
		for _, item := range m.QuickReference {
			fmt.Fprintf(&b, "• %s\n", oneLine(item))
		}
		b.WriteString("\n")
	}
	if len(m.Flashcards) > 0 {
		b.WriteString("## Flashcards\n\n")
		for _, c := range m.Flashcards {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", oneLine(c.Question), oneLine(c.Answer))
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
