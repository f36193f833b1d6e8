package exam

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rccm-study/examcore/internal/bank"
	"github.com/rccm-study/examcore/internal/department"
	"github.com/rccm-study/examcore/internal/logger"
)

type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// Answer is one recorded submission. Answers are append-only: one per
// question, in presentation order.
type Answer struct {
	QuestionID int     `json:"question_id"`
	Chosen     string  `json:"chosen"` // normalized, one of A-D
	Correct    bool    `json:"correct"`
	ElapsedSec float64 `json:"elapsed_sec"`
}

// Session is the per-user walk through a selected question subset. The
// question list and metadata are fixed at Start; only CurrentIndex, Answers
// and State change afterwards, and only through SubmitAnswer.
type Session struct {
	ID           string            `json:"id"`
	Department   string            `json:"department"`
	Category     string            `json:"category"`
	Type         bank.QuestionType `json:"question_type"`
	Year         int               `json:"year"`
	QuestionIDs  []int             `json:"question_ids"`
	CurrentIndex int               `json:"current_index"`
	Answers      []Answer          `json:"answers"`
	State        State             `json:"state"`
	StartedAt    int64             `json:"started_at"` // unix seconds

	repo *bank.Repository
}

// Feedback is what SubmitAnswer hands back for the per-question result page.
type Feedback struct {
	Answer
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
	IsComplete    bool   `json:"is_complete"`
}

// CategoryScore is a per-category slice of the result.
type CategoryScore struct {
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
}

// Result summarizes a session. Complete is false for partial results taken
// mid-exam.
type Result struct {
	Total      int                      `json:"total"`
	Answered   int                      `json:"answered"`
	Correct    int                      `json:"correct"`
	Complete   bool                     `json:"is_complete"`
	ByCategory map[string]CategoryScore `json:"by_category"`
}

// Snapshot is the presentation-layer view of session progress.
type Snapshot struct {
	ID           string  `json:"id"`
	CurrentIndex int     `json:"current_index"`
	Total        int     `json:"total"`
	IsComplete   bool    `json:"is_complete"`
	ScoreSoFar   float64 `json:"score_so_far"` // correct / answered, 0 when unanswered
}

// Engine wires the resolver, selector and bank together and starts sessions.
type Engine struct {
	repo  *bank.Repository
	depts *department.Resolver
	sel   *Selector
}

func NewEngine(repo *bank.Repository, depts *department.Resolver) *Engine {
	return &Engine{repo: repo, depts: depts, sel: NewSelector(repo)}
}

// NewEngineWithSelector injects the selector, for deterministic tests.
func NewEngineWithSelector(repo *bank.Repository, depts *department.Resolver, sel *Selector) *Engine {
	return &Engine{repo: repo, depts: depts, sel: sel}
}

// Departments exposes the resolver table for presentation layers.
func (e *Engine) Departments() []department.Department { return e.depts.All() }

// Start resolves the department, selects the question list and returns a new
// in-progress session. Selection failures propagate unchanged.
//
// qtype "" defers to the department (basic for the common subject, specialist
// otherwise). exclude lists question ids already seen in the user's history.
func (e *Engine) Start(deptInput string, qtype bank.QuestionType, year, count int, exclude map[int]bool) (*Session, error) {
	dept, err := e.depts.Resolve(deptInput)
	if err != nil {
		return nil, err
	}
	if qtype == "" {
		qtype = dept.QuestionType()
	}
	if qtype != bank.QuestionTypeBasic && qtype != bank.QuestionTypeSpecialist {
		return nil, fmt.Errorf("unknown question type %q", qtype)
	}
	if qtype == bank.QuestionTypeBasic {
		// Basic questions are year-independent.
		year = 0
	}

	ids, err := e.sel.Select(dept, qtype, year, count, exclude)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:          uuid.NewString(),
		Department:  dept.ID,
		Category:    dept.Category,
		Type:        qtype,
		Year:        year,
		QuestionIDs: ids,
		Answers:     make([]Answer, 0, count),
		State:       StateInProgress,
		StartedAt:   time.Now().Unix(),
		repo:        e.repo,
	}
	logger.Info("session %s started: %s/%s year=%d count=%d", s.ID, dept.ID, qtype, year, count)
	return s, nil
}

// Resume reattaches a deserialized session to the engine's bank.
func (e *Engine) Resume(s *Session) { s.repo = e.repo }

// Present returns the question at the current index, with the answer key and
// explanation stripped. It never mutates the session: reloading the question
// page any number of times must not advance the exam. Only SubmitAnswer moves
// the index.
func (s *Session) Present() (bank.Question, error) {
	switch s.State {
	case StateInProgress:
	case StateCompleted:
		return bank.Question{}, ErrSessionCompleted
	default:
		return bank.Question{}, ErrSessionNotStarted
	}
	id := s.QuestionIDs[s.CurrentIndex]
	q, ok := s.repo.Get(id)
	if !ok {
		return bank.Question{}, fmt.Errorf("question %d missing from bank", id)
	}
	q.CorrectAnswer = ""
	q.Explanation = ""
	return q, nil
}

// SubmitAnswer records the answer for the current question and advances the
// session. questionID must be the current question (stale form posts are
// rejected as ErrOutOfSequenceAnswer, they must not overwrite history), and
// chosen is accepted case-insensitively.
func (s *Session) SubmitAnswer(questionID int, chosen string, elapsed time.Duration) (Feedback, error) {
	switch s.State {
	case StateInProgress:
	case StateCompleted:
		return Feedback{}, ErrSessionCompleted
	default:
		return Feedback{}, ErrSessionNotStarted
	}

	currentID := s.QuestionIDs[s.CurrentIndex]
	if questionID != currentID {
		return Feedback{}, fmt.Errorf("%w: got %d, current is %d", ErrOutOfSequenceAnswer, questionID, currentID)
	}
	option, ok := bank.NormalizeAnswer(chosen)
	if !ok {
		return Feedback{}, fmt.Errorf("%w: %q", ErrInvalidAnswerOption, chosen)
	}
	q, found := s.repo.Get(currentID)
	if !found {
		return Feedback{}, fmt.Errorf("question %d missing from bank", currentID)
	}

	ans := Answer{
		QuestionID: currentID,
		Chosen:     option,
		Correct:    option == q.CorrectAnswer,
		ElapsedSec: elapsed.Seconds(),
	}
	s.Answers = append(s.Answers, ans)
	s.CurrentIndex++
	if s.CurrentIndex == len(s.QuestionIDs) {
		s.State = StateCompleted
		logger.Info("session %s completed: %d/%d correct", s.ID, s.correctCount(), len(s.QuestionIDs))
	}

	return Feedback{
		Answer:        ans,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		IsComplete:    s.State == StateCompleted,
	}, nil
}

// Result computes the score. A session still in progress yields a partial
// result with Complete == false; only an unstarted session is an error.
func (s *Session) Result() (Result, error) {
	if s.State != StateInProgress && s.State != StateCompleted {
		return Result{}, ErrSessionNotStarted
	}
	res := Result{
		Total:      len(s.QuestionIDs),
		Answered:   len(s.Answers),
		Complete:   s.State == StateCompleted,
		ByCategory: map[string]CategoryScore{},
	}
	for _, a := range s.Answers {
		cat := s.Category
		if q, ok := s.repo.Get(a.QuestionID); ok {
			cat = q.Category
		}
		cs := res.ByCategory[cat]
		cs.Answered++
		if a.Correct {
			res.Correct++
			cs.Correct++
		}
		res.ByCategory[cat] = cs
	}
	return res, nil
}

// Snapshot reports progress for the presentation layer.
func (s *Session) Snapshot() Snapshot {
	score := 0.0
	if len(s.Answers) > 0 {
		score = float64(s.correctCount()) / float64(len(s.Answers))
	}
	return Snapshot{
		ID:           s.ID,
		CurrentIndex: s.CurrentIndex,
		Total:        len(s.QuestionIDs),
		IsComplete:   s.State == StateCompleted,
		ScoreSoFar:   score,
	}
}

func (s *Session) correctCount() int {
	n := 0
	for _, a := range s.Answers {
		if a.Correct {
			n++
		}
	}
	return n
}
