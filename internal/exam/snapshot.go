package exam

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rccm-study/examcore/internal/bank"
	"github.com/rccm-study/examcore/internal/logger"
)

// Serialize produces the opaque snapshot the hosting layer persists between
// requests (cookie store, Redis, SQL row). The format is JSON but callers
// must treat it as opaque.
func (s *Session) Serialize() ([]byte, error) {
	return json.Marshal(s)
}

// sessionWire defers current_index decoding so the value can be validated and
// coerced. A serialization bug once stored it as a string, and comparing that
// string against integer bounds crashed every request in the flow; the index
// is therefore never used before it has been forced into an int.
type sessionWire struct {
	ID           string            `json:"id"`
	Department   string            `json:"department"`
	Category     string            `json:"category"`
	Type         bank.QuestionType `json:"question_type"`
	Year         int               `json:"year"`
	QuestionIDs  []int             `json:"question_ids"`
	CurrentIndex json.RawMessage   `json:"current_index"`
	Answers      []Answer          `json:"answers"`
	State        State             `json:"state"`
	StartedAt    int64             `json:"started_at"`
}

// Deserialize validates a persisted snapshot and reattaches it to the bank.
// Every structural invariant is checked here rather than trusted: index
// bounds, state consistency, answer ordering, and that every referenced
// question still exists in the bank under the session's own category.
func Deserialize(data []byte, repo *bank.Repository) (*Session, error) {
	var w sessionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}

	idx, err := coerceIndex(w.CurrentIndex)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:           w.ID,
		Department:   w.Department,
		Category:     w.Category,
		Type:         w.Type,
		Year:         w.Year,
		QuestionIDs:  w.QuestionIDs,
		CurrentIndex: idx,
		Answers:      w.Answers,
		State:        w.State,
		StartedAt:    w.StartedAt,
		repo:         repo,
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// coerceIndex forces current_index into an int. JSON numbers and numeric
// strings are accepted (string form is logged as a data bug); anything else
// fails instead of being compared as-is.
func coerceIndex(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: missing current_index", ErrBadSnapshot)
	}
	// json.Unmarshal leaves the target untouched on literal null, which would
	// read as index 0 here.
	if string(raw) == "null" {
		return 0, fmt.Errorf("%w: current_index is null", ErrBadSnapshot)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f != math.Trunc(f) || f < 0 {
			return 0, fmt.Errorf("%w: current_index %v is not a non-negative integer", ErrBadSnapshot, f)
		}
		return int(f), nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		n, convErr := strconv.Atoi(strings.TrimSpace(str))
		if convErr != nil || n < 0 {
			return 0, fmt.Errorf("%w: current_index %q is not numeric", ErrBadSnapshot, str)
		}
		logger.Warn("session snapshot stored current_index as string %q; coerced to %d", str, n)
		return n, nil
	}
	return 0, fmt.Errorf("%w: current_index has unsupported type", ErrBadSnapshot)
}

func (s *Session) validate() error {
	switch s.State {
	case StateNotStarted, StateInProgress, StateCompleted:
	default:
		return fmt.Errorf("%w: unknown state %q", ErrBadSnapshot, s.State)
	}
	if s.CurrentIndex < 0 || s.CurrentIndex > len(s.QuestionIDs) {
		return fmt.Errorf("%w: current_index %d out of range 0..%d", ErrBadSnapshot, s.CurrentIndex, len(s.QuestionIDs))
	}
	if len(s.Answers) != s.CurrentIndex {
		return fmt.Errorf("%w: %d answers recorded at index %d", ErrBadSnapshot, len(s.Answers), s.CurrentIndex)
	}
	if s.State == StateCompleted && s.CurrentIndex != len(s.QuestionIDs) {
		return fmt.Errorf("%w: completed at index %d of %d", ErrBadSnapshot, s.CurrentIndex, len(s.QuestionIDs))
	}
	if s.State == StateInProgress && s.CurrentIndex >= len(s.QuestionIDs) {
		return fmt.Errorf("%w: in progress past the last question", ErrBadSnapshot)
	}
	for i, a := range s.Answers {
		if i < len(s.QuestionIDs) && a.QuestionID != s.QuestionIDs[i] {
			return fmt.Errorf("%w: answer %d is for question %d, expected %d", ErrBadSnapshot, i, a.QuestionID, s.QuestionIDs[i])
		}
		if _, ok := bank.NormalizeAnswer(a.Chosen); !ok {
			return fmt.Errorf("%w: answer %d has option %q", ErrBadSnapshot, i, a.Chosen)
		}
	}
	if s.repo != nil {
		for _, id := range s.QuestionIDs {
			q, ok := s.repo.Get(id)
			if !ok {
				return fmt.Errorf("%w: question %d no longer in bank", ErrBadSnapshot, id)
			}
			if q.Category != s.Category {
				return fmt.Errorf("%w: question %d category %q does not match session category %q",
					ErrBadSnapshot, id, q.Category, s.Category)
			}
		}
	}
	return nil
}
