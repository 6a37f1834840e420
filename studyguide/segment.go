// Package studyguide turns generated study text into structured materials
// and back.
package studyguide

import (
	"regexp"
	"strings"
)

// KeyPoints returns the bullet lines ("- " or "* ") of text in source order.
func KeyPoints(text string) []string {
	return bulletLines(text, "- ", "* ")
}

// QuickReference returns the "• " and "- " bullet lines of text, skipping
// flashcard lines.
func QuickReference(text string) []string {
	var out []string
	for _, item := range bulletLines(text, "• ", "- ") {
		if _, ok := cardMarker(item); ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

func bulletLines(text string, markers ...string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, m := range markers {
			if strings.HasPrefix(line, m) {
				if item := strings.TrimSpace(strings.TrimPrefix(line, m)); item != "" {
					out = append(out, item)
				}
				break
			}
		}
	}
	return out
}

// Flashcards reads Q:/A: pairs. A question runs until its A: line, blank
// lines included; an answer runs until a blank line or the next Q:. Text
// without a complete pair yields no cards.
func Flashcards(text string) []Flashcard {
	const (
		idle = iota
		inQuestion
		inAnswer
	)
	var (
		cards []Flashcard
		q, a  []string
		state = idle
	)
	flush := func() {
		card := Flashcard{Question: strings.Join(q, " "), Answer: strings.Join(a, " ")}
		if card.Question != "" && card.Answer != "" {
			cards = append(cards, card)
		}
		q, a = nil, nil
		state = idle
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if kind, ok := cardMarker(line); ok {
			rest := cardText(line)
			switch kind {
			case 'Q':
				flush()
				q = appendNonEmpty(nil, rest)
				state = inQuestion
			case 'A':
				if state != inQuestion {
					continue
				}
				a = appendNonEmpty(nil, rest)
				state = inAnswer
			}
			continue
		}
		switch {
		case line == "":
			if state == inAnswer {
				flush()
			}
		case state == inQuestion:
			q = append(q, line)
		case state == inAnswer:
			a = append(a, line)
		}
	}
	flush()
	return cards
}

// cardMarker reports whether line opens a question ('Q') or an answer ('A'),
// tolerating list markers and bold markup around the label.
func cardMarker(line string) (byte, bool) {
	s := strings.ToUpper(stripDecoration(line))
	switch {
	case strings.HasPrefix(s, "Q:"), strings.HasPrefix(s, "QUESTION:"):
		return 'Q', true
	case strings.HasPrefix(s, "A:"), strings.HasPrefix(s, "ANSWER:"):
		return 'A', true
	}
	return 0, false
}

func cardText(line string) string {
	s := stripDecoration(line)
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimLeft(s, "* "))
}

// stripDecoration removes leading Markdown list, heading and emphasis markers
// and a leading "1." or "1)" enumerator.
func stripDecoration(line string) string {
	s := strings.TrimLeft(strings.TrimSpace(line), "#-*•> ")
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		s = strings.TrimLeft(s[i+1:], "* ")
	}
	return s
}

func appendNonEmpty(dst []string, s string) []string {
	if s == "" {
		return dst
	}
	return append(dst, s)
}

const solutionMarker = "solution:"

var (
	// problemLabel finds "Problem 2:", "Exercise B)", "Practice Problem 1." and
	// a bare "Problem" ending the line.
	problemLabel = regexp.MustCompile(`(?i)\b(problem|exercise)\b\s*(#?\d+|[a-z]\b)?\s*([:.)]|$)`)
	problemWord  = regexp.MustCompile(`(?i)\b(problems?|exercises?)\b`)
)

// Problems splits text into sections headed by a Problem or Exercise label and
// cuts each section at its first "Solution:". Any other Markdown heading ends
// a section. Sections without both a question and a solution are dropped;
// the rest keep source order.
func Problems(text string) []Problem {
	var (
		problems []Problem
		section  []string
		open     bool
		top      = true
	)
	closeSection := func() {
		if open {
			if p, ok := splitProblem(section); ok {
				problems = append(problems, p)
			}
		}
		section = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if heading, ok := problemHeading(trimmed, top || !open); ok {
			closeSection()
			open = true
			section = appendNonEmpty(section, heading)
			top = false
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			closeSection()
			open = false
			top = true
			continue
		}
		if open {
			section = append(section, line)
		}
		top = trimmed == ""
	}
	closeSection()
	return problems
}

// problemHeading reports whether line heads a problem section and returns
// any text that follows the label, e.g. "Problem 2: Find x" gives "Find x".
// A Markdown heading counts when it mentions problems or exercises. Other
// lines need a label near their start; mid-paragraph only a numbered label
// at the very start counts, so "see Problem 2." inside a solution does not.
func problemHeading(line string, paragraphTop bool) (string, bool) {
	s := strings.TrimRight(stripDecoration(line), "* ")
	if strings.HasPrefix(strings.ToLower(s), solutionMarker) {
		return "", false
	}
	if strings.HasPrefix(line, "#") {
		if !problemWord.MatchString(s) {
			return "", false
		}
		if i := strings.Index(s, ":"); i >= 0 {
			return strings.TrimSpace(strings.Trim(s[i+1:], "* ")), true
		}
		return "", true
	}

	m := problemLabel.FindStringSubmatchIndex(s)
	if m == nil {
		return "", false
	}
	prefix := s[:m[0]]
	if strings.Contains(prefix, ":") || len(strings.Fields(prefix)) > 3 {
		return "", false
	}
	numbered := m[4] >= 0
	delim := ""
	if m[6] < m[7] {
		delim = s[m[6]:m[7]]
	}
	switch {
	case numbered && prefix == "":
	case paragraphTop && (numbered || delim == ":" || delim == ""):
	default:
		return "", false
	}
	return strings.TrimSpace(strings.Trim(s[m[1]:], "* ")), true
}

func splitProblem(lines []string) (Problem, bool) {
	body := strings.Join(lines, "\n")
	idx := strings.Index(strings.ToLower(body), solutionMarker)
	if idx < 0 {
		return Problem{}, false
	}
	p := Problem{
		Question: cleanBlock(body[:idx]),
		Solution: cleanBlock(body[idx+len(solutionMarker):]),
	}
	return p, p.Question != "" && p.Solution != ""
}

func cleanBlock(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*"))
}
