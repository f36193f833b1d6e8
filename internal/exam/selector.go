package exam

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rccm-study/examcore/internal/bank"
	"github.com/rccm-study/examcore/internal/department"
)

// QuestionSource is the slice of the repository the selector needs.
type QuestionSource interface {
	Query(bank.Filter) []bank.Question
}

// Selector draws fixed-size, single-category question subsets from the bank.
type Selector struct {
	src QuestionSource

	mu  sync.Mutex // rand.Rand is not goroutine safe
	rng *rand.Rand
}

func NewSelector(src QuestionSource) *Selector {
	return NewSelectorWithRand(src, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSelectorWithRand injects the random source, for deterministic tests.
func NewSelectorWithRand(src QuestionSource, rng *rand.Rand) *Selector {
	return &Selector{src: src, rng: rng}
}

// Select returns exactly count question ids for the department, drawn
// uniformly without replacement, in an order that is fixed for the life of
// the session. year 0 means any year; ids in exclude are never drawn (used to
// avoid repeats across a user's review history).
//
// It fails with ErrInsufficientQuestions rather than returning a short list,
// and with ErrContaminationDetected if the bank ever hands back a question
// from another category. Both are hard failures: padding the pool from
// outside the department is the historical bug this layer exists to prevent.
func (s *Selector) Select(dept department.Department, qtype bank.QuestionType, year, count int, exclude map[int]bool) ([]int, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: requested %d", ErrInsufficientQuestions, count)
	}

	candidates := s.src.Query(bank.Filter{
		Category: dept.Category,
		Type:     qtype,
		Year:     year,
	})

	eligible := make([]int, 0, len(candidates))
	for _, q := range candidates {
		if q.Category != dept.Category {
			return nil, fmt.Errorf("%w: question %d has category %q, want %q",
				ErrContaminationDetected, q.ID, q.Category, dept.Category)
		}
		if exclude[q.ID] {
			continue
		}
		eligible = append(eligible, q.ID)
	}

	if len(eligible) < count {
		return nil, fmt.Errorf("%w: %d eligible for %s/%s year=%d, want %d",
			ErrInsufficientQuestions, len(eligible), dept.ID, qtype, year, count)
	}

	s.mu.Lock()
	perm := s.rng.Perm(len(eligible))
	s.mu.Unlock()

	ids := make([]int, count)
	for i := 0; i < count; i++ {
		ids[i] = eligible[perm[i]]
	}
	return ids, nil
}
