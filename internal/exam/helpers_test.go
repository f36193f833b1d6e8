package exam_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/rccm-study/examcore/internal/bank"
	"github.com/rccm-study/examcore/internal/department"
	"github.com/rccm-study/examcore/internal/exam"
)

// newTestRepo builds a small bank: 12 common questions, road specialists in
// 2018/2019, river specialists in 2018, and a lone garden question.
func newTestRepo(t *testing.T) *bank.Repository {
	t.Helper()
	var qs []bank.Question
	add := func(category string, qtype bank.QuestionType, year, n int, answer string) {
		for i := 0; i < n; i++ {
			qs = append(qs, bank.Question{
				Category:      category,
				Type:          qtype,
				Year:          year,
				Prompt:        fmt.Sprintf("%s %d-%d", category, year, i),
				OptionA:       "a", OptionB: "b", OptionC: "c", OptionD: "d",
				CorrectAnswer: answer,
				Explanation:   "explanation",
			})
		}
	}
	add("共通", bank.QuestionTypeBasic, 0, 12, "A")
	add("道路", bank.QuestionTypeSpecialist, 2018, 8, "B")
	add("道路", bank.QuestionTypeSpecialist, 2019, 7, "C")
	add("河川、砂防及び海岸・海洋", bank.QuestionTypeSpecialist, 2018, 10, "D")
	add("造園", bank.QuestionTypeSpecialist, 2019, 1, "A")
	return bank.FromQuestions(qs)
}

func newTestEngine(t *testing.T, repo *bank.Repository) *exam.Engine {
	t.Helper()
	depts, err := department.NewResolver()
	if err != nil {
		t.Fatal(err)
	}
	sel := exam.NewSelectorWithRand(repo, rand.New(rand.NewSource(1)))
	return exam.NewEngineWithSelector(repo, depts, sel)
}

func mustResolve(t *testing.T, id string) department.Department {
	t.Helper()
	depts, err := department.NewResolver()
	if err != nil {
		t.Fatal(err)
	}
	d, err := depts.Resolve(id)
	if err != nil {
		t.Fatal(err)
	}
	return d
}
