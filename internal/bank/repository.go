package bank

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/rccm-study/examcore/internal/logger"
)

// ErrDataUnavailable means the repository ended up empty after a build
// attempt. It is an operational failure, distinct from a query that merely
// matches zero rows.
var ErrDataUnavailable = errors.New("question bank is empty")

// ID ranges partitioned by question type. The raw files reuse ids freely
// across years and between the basic and specialist banks, so uniqueness has
// to be manufactured at load time.
const (
	basicIDBase      = 1000000
	specialistIDBase = 2000000
	specialistIDEnd  = 3000000
)

const basicFileName = "4-1.csv"

var specialistFilePattern = regexp.MustCompile(`^4-2_(\d{4})\.csv$`)

// Stats exposes data-quality counters gathered during a build.
type Stats struct {
	FilesLoaded  int
	RowsSkipped  int            // malformed rows dropped by the loader
	RowsRejected int            // rows that failed validation (bad id, bad answer, empty option)
	Unmapped     map[string]int // non-canonical categories that passed through, with row counts
}

// Repository is the immutable in-memory question bank. It is built once from
// a data directory and safe for concurrent readers afterwards.
type Repository struct {
	questions []Question
	byID      map[int]*Question
	index     map[indexKey][]int // ids per (category, type)
	years     []int              // specialist years present, ascending
	stats     Stats
}

type indexKey struct {
	category string
	qtype    QuestionType
}

// Filter selects questions from the repository. Zero values mean "any":
// an empty Category or Type matches everything, Year 0 matches every year
// (basic questions carry Year 0 themselves, so a basic query needs no year).
type Filter struct {
	Category string
	Type     QuestionType
	Year     int
}

// Load builds a repository from a data directory holding one 4-1.csv common
// file and any number of 4-2_<year>.csv specialist files. A single unreadable
// file degrades to a warning; an entirely empty result is ErrDataUnavailable.
func Load(dir string) (*Repository, error) {
	b := newBuilder()

	basicPath := filepath.Join(dir, basicFileName)
	if res, err := LoadFile(basicPath); err != nil {
		logger.Warn("basic bank not loaded: %v", err)
	} else {
		b.addFile(res, QuestionTypeBasic, 0)
	}

	for _, sf := range specialistFiles(dir) {
		res, err := LoadFile(sf.path)
		if err != nil {
			logger.Warn("specialist bank %d not loaded: %v", sf.year, err)
			continue
		}
		b.addFile(res, QuestionTypeSpecialist, sf.year)
	}

	repo := b.finish()
	if len(repo.questions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, dir)
	}
	logger.Info("question bank loaded: %d questions from %d files (%d skipped, %d rejected)",
		len(repo.questions), repo.stats.FilesLoaded, repo.stats.RowsSkipped, repo.stats.RowsRejected)
	for cat, n := range repo.stats.Unmapped {
		logger.Warn("unmapped category %q on %d rows; audit the normalization table", cat, n)
	}
	return repo, nil
}

// FromQuestions builds a repository directly from already-normalized
// questions. Intended for tests and embedders that own their own ingestion.
func FromQuestions(qs []Question) *Repository {
	b := newBuilder()
	for _, q := range qs {
		b.add(q)
	}
	return b.finish()
}

type specialistFile struct {
	path string
	year int
}

func specialistFiles(dir string) []specialistFile {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []specialistFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := specialistFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		out = append(out, specialistFile{path: filepath.Join(dir, e.Name()), year: year})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].year < out[j].year })
	return out
}

type builder struct {
	repo             *Repository
	nextBasicID      int
	nextSpecialistID int
}

func newBuilder() *builder {
	return &builder{
		repo: &Repository{
			byID:  map[int]*Question{},
			index: map[indexKey][]int{},
			stats: Stats{Unmapped: map[string]int{}},
		},
		nextBasicID:      basicIDBase,
		nextSpecialistID: specialistIDBase,
	}
}

func (b *builder) addFile(res *FileResult, qtype QuestionType, year int) {
	b.repo.stats.FilesLoaded++
	b.repo.stats.RowsSkipped += res.Skipped
	for _, row := range res.Rows {
		q, err := questionFromRow(row, qtype, year)
		if err != nil {
			b.repo.stats.RowsRejected++
			logger.Debug("%s: rejected row: %v", res.Path, err)
			continue
		}
		b.add(q)
	}
}

func (b *builder) add(q Question) {
	switch q.Type {
	case QuestionTypeBasic:
		if b.nextBasicID >= specialistIDBase {
			logger.Error("basic id range exhausted; dropping question")
			b.repo.stats.RowsRejected++
			return
		}
		q.ID = b.nextBasicID
		b.nextBasicID++
	default:
		if b.nextSpecialistID >= specialistIDEnd {
			logger.Error("specialist id range exhausted; dropping question")
			b.repo.stats.RowsRejected++
			return
		}
		q.ID = b.nextSpecialistID
		b.nextSpecialistID++
	}
	if q.Category != Uncategorized && !IsCanonicalCategory(q.Category) {
		b.repo.stats.Unmapped[q.Category]++
	}
	b.repo.questions = append(b.repo.questions, q)
}

func (b *builder) finish() *Repository {
	r := b.repo
	for i := range r.questions {
		q := &r.questions[i]
		r.byID[q.ID] = q
		k := indexKey{category: q.Category, qtype: q.Type}
		r.index[k] = append(r.index[k], q.ID)
	}
	yearSet := map[int]bool{}
	for _, q := range r.questions {
		if q.Year != 0 {
			yearSet[q.Year] = true
		}
	}
	for y := range yearSet {
		r.years = append(r.years, y)
	}
	sort.Ints(r.years)
	return r
}

// questionFromRow validates and normalizes one raw CSV row. Rows with an
// answer outside A-D are rejected outright; defaulting them to a guess would
// corrupt scoring.
func questionFromRow(row Row, qtype QuestionType, year int) (Question, error) {
	if row["id"] == "" {
		return Question{}, errors.New("empty id")
	}
	if _, err := strconv.ParseFloat(row["id"], 64); err != nil {
		return Question{}, fmt.Errorf("non-numeric id %q", row["id"])
	}
	if row["question"] == "" {
		return Question{}, errors.New("empty question text")
	}
	answer, ok := NormalizeAnswer(row["correct_answer"])
	if !ok {
		return Question{}, fmt.Errorf("invalid correct_answer %q", row["correct_answer"])
	}
	for _, col := range []string{"option_a", "option_b", "option_c", "option_d"} {
		if row[col] == "" {
			return Question{}, fmt.Errorf("empty %s", col)
		}
	}

	category := CategoryCommon
	if qtype == QuestionTypeSpecialist {
		category = NormalizeCategory(row["category"])
	}
	return Question{
		Category:      category,
		Type:          qtype,
		Year:          year,
		Prompt:        row["question"],
		OptionA:       row["option_a"],
		OptionB:       row["option_b"],
		OptionC:       row["option_c"],
		OptionD:       row["option_d"],
		CorrectAnswer: answer,
		Explanation:   row["explanation"],
	}, nil
}

// Get returns the question with the given id.
func (r *Repository) Get(id int) (Question, bool) {
	q, ok := r.byID[id]
	if !ok {
		return Question{}, false
	}
	return *q, true
}

// Query returns every question matching the filter. A zero-match result is a
// plain empty slice, which callers must not confuse with ErrDataUnavailable.
func (r *Repository) Query(f Filter) []Question {
	var out []Question
	collect := func(ids []int) {
		for _, id := range ids {
			q := r.byID[id]
			if f.Year != 0 && q.Year != f.Year {
				continue
			}
			out = append(out, *q)
		}
	}

	if f.Category != "" && f.Type != "" {
		collect(r.index[indexKey{category: f.Category, qtype: f.Type}])
		return out
	}
	for k, ids := range r.index {
		if f.Category != "" && k.category != f.Category {
			continue
		}
		if f.Type != "" && k.qtype != f.Type {
			continue
		}
		collect(ids)
	}
	// Map iteration order is random; keep results stable for callers.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Years lists the specialist exam years present in the bank, ascending.
func (r *Repository) Years() []int {
	out := make([]int, len(r.years))
	copy(out, r.years)
	return out
}

// Categories lists every distinct category present in the bank.
func (r *Repository) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for k := range r.index {
		if !seen[k.category] {
			seen[k.category] = true
			out = append(out, k.category)
		}
	}
	sort.Strings(out)
	return out
}

// Len reports the total number of questions.
func (r *Repository) Len() int { return len(r.questions) }

// Stats returns the data-quality counters from the build.
func (r *Repository) Stats() Stats { return r.stats }

// Cache builds the repository lazily and at most once, so concurrent first
// requests do not race on redundant disk reads. A Reload swaps in a fresh
// build atomically.
type Cache struct {
	dir  string
	mu   sync.Mutex
	repo *Repository // immutable once set; mu guards the pointer swap
}

func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// Repo returns the cached repository, building it on first use.
func (c *Cache) Repo() (*Repository, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.repo != nil {
		return c.repo, nil
	}
	repo, err := Load(c.dir)
	if err != nil {
		return nil, err
	}
	c.repo = repo
	return repo, nil
}

// Reload rebuilds from disk, replacing the cached repository only on success.
func (c *Cache) Reload() (*Repository, error) {
	repo, err := Load(c.dir)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.repo = repo
	c.mu.Unlock()
	return repo, nil
}
