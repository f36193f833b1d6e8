package bank

import (
	"strings"

	"golang.org/x/text/width"
)

type QuestionType string

const (
	QuestionTypeBasic      QuestionType = "basic"      // 4-1 common subjects, year-independent
	QuestionTypeSpecialist QuestionType = "specialist" // 4-2 department subjects, year-scoped
)

// Question is a single normalized exam item. Instances are created at bank
// load time and never mutated afterwards.
type Question struct {
	ID            int          `json:"id"`
	Category      string       `json:"category"`
	Type          QuestionType `json:"question_type"`
	Year          int          `json:"year,omitempty"` // 0 for basic/common questions
	Prompt        string       `json:"question"`
	OptionA       string       `json:"option_a"`
	OptionB       string       `json:"option_b"`
	OptionC       string       `json:"option_c"`
	OptionD       string       `json:"option_d"`
	CorrectAnswer string       `json:"correct_answer"` // always one of A, B, C, D
	Explanation   string       `json:"explanation,omitempty"`
}

// Option returns the option text for a normalized answer letter.
func (q Question) Option(letter string) string {
	switch letter {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}

// NormalizeAnswer maps an answer option to its canonical uppercase letter.
// Lowercase and full-width input is accepted; several historical data years
// stored answers as "a" or "Ａ" and rejecting those broke whole exams.
func NormalizeAnswer(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(width.Fold.String(raw)))
	switch s {
	case "A", "B", "C", "D":
		return s, true
	}
	return "", false
}
