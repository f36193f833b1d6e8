// Package department owns the canonical department table and every known
// historical alias for it. Resolution never guesses: an input that matches
// nothing fails, because a silent fallback department is exactly how foreign
// questions used to leak into exams.
package department

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rccm-study/examcore/internal/bank"
)

var ErrUnknownDepartment = errors.New("unknown department")

//go:embed departments.yaml
var tableYAML []byte

// Department is one selectable subject area.
type Department struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	FullName string   `yaml:"full_name" json:"full_name"`
	Category string   `yaml:"category" json:"category"` // matches Question.Category exactly
	Aliases  []string `yaml:"aliases" json:"-"`
}

// IsBasic reports whether this is the year-independent common subject.
func (d Department) IsBasic() bool { return d.ID == "basic" }

// QuestionType returns the bank question type this department draws from.
func (d Department) QuestionType() bank.QuestionType {
	if d.IsBasic() {
		return bank.QuestionTypeBasic
	}
	return bank.QuestionTypeSpecialist
}

type Resolver struct {
	order   []Department
	byInput map[string]Department // ids, aliases, names, categories
}

// NewResolver parses the embedded department table.
func NewResolver() (*Resolver, error) {
	var table struct {
		Departments []Department `yaml:"departments"`
	}
	if err := yaml.Unmarshal(tableYAML, &table); err != nil {
		return nil, fmt.Errorf("department table: %w", err)
	}
	r := &Resolver{byInput: map[string]Department{}}
	for _, d := range table.Departments {
		if d.ID == "" || d.Category == "" {
			return nil, fmt.Errorf("department table: entry %q missing id or category", d.Name)
		}
		r.order = append(r.order, d)
		r.byInput[d.ID] = d
		r.byInput[d.Name] = d
		r.byInput[d.Category] = d
		for _, a := range d.Aliases {
			r.byInput[a] = d
		}
	}
	return r, nil
}

// Resolve maps a department id, historical alias, or category spelling to its
// department. Matching tries the input verbatim and then its normalized
// category form; anything else is ErrUnknownDepartment.
func (r *Resolver) Resolve(input string) (Department, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Department{}, fmt.Errorf("%w: empty input", ErrUnknownDepartment)
	}
	if d, ok := r.byInput[s]; ok {
		return d, nil
	}
	if d, ok := r.byInput[bank.NormalizeCategory(s)]; ok {
		return d, nil
	}
	return Department{}, fmt.Errorf("%w: %q", ErrUnknownDepartment, input)
}

// All lists the departments in table order.
func (r *Resolver) All() []Department {
	out := make([]Department, len(r.order))
	copy(out, r.order)
	return out
}
