package bank

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// writeBank lays out a data directory the way production does: one 4-1.csv
// common file plus per-year 4-2 files.
func writeBank(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	basic := "id,category,question,option_a,option_b,option_c,option_d,correct_answer,explanation\n"
	for i := 1; i <= 5; i++ {
		basic += fmt.Sprintf("%d,共通,基礎問題%d,a,b,c,d,A,解説%d\n", i, i, i)
	}
	if err := os.WriteFile(filepath.Join(dir, "4-1.csv"), []byte(basic), 0o644); err != nil {
		t.Fatal(err)
	}

	spec2018 := "id,category,question,option_a,option_b,option_c,option_d,correct_answer,explanation\n" +
		"1,道路,道路2018-1,a,b,c,d,B,\n" +
		"2,道路,道路2018-2,a,b,c,d,c,\n" + // lowercase answer: normalized, not rejected
		"3,河川・砂防及び海岸・海洋,河川2018-1,a,b,c,d,A,\n" + // variant spelling
		"4,道路,壊れた問題,a,b,c,d,E,\n" + // bad answer: rejected
		"5,,カテゴリ無し,a,b,c,d,A,\n" // empty category: Uncategorized
	if err := os.WriteFile(filepath.Join(dir, "4-2_2018.csv"), []byte(spec2018), 0o644); err != nil {
		t.Fatal(err)
	}

	spec2019 := "id,category,question,option_a,option_b,option_c,option_d,correct_answer,explanation\n" +
		"1,道路,道路2019-1,a,b,c,d,D,\n" +
		"2,謎の新部門,新種の問題,a,b,c,d,A,\n" // unmapped category: passes through, audited
	if err := os.WriteFile(filepath.Join(dir, "4-2_2019.csv"), []byte(spec2019), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadBuildsPartitionedIDs(t *testing.T) {
	repo, err := Load(writeBank(t))
	if err != nil {
		t.Fatal(err)
	}

	basics := repo.Query(Filter{Type: QuestionTypeBasic})
	if len(basics) != 5 {
		t.Fatalf("basic count = %d, want 5", len(basics))
	}
	for _, q := range basics {
		if q.ID < 1000000 || q.ID >= 2000000 {
			t.Errorf("basic id %d outside partition", q.ID)
		}
		if q.Category != CategoryCommon || q.Year != 0 {
			t.Errorf("basic question %d: category=%q year=%d", q.ID, q.Category, q.Year)
		}
	}

	specs := repo.Query(Filter{Type: QuestionTypeSpecialist})
	for _, q := range specs {
		if q.ID < 2000000 || q.ID >= 3000000 {
			t.Errorf("specialist id %d outside partition", q.ID)
		}
	}

	seen := map[int]bool{}
	for _, q := range append(basics, specs...) {
		if seen[q.ID] {
			t.Errorf("duplicate id %d", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestLoadNormalizesAndRejects(t *testing.T) {
	repo, err := Load(writeBank(t))
	if err != nil {
		t.Fatal(err)
	}

	// The variant spelling must land under the canonical category.
	river := repo.Query(Filter{Category: "河川、砂防及び海岸・海洋", Type: QuestionTypeSpecialist})
	if len(river) != 1 {
		t.Fatalf("river questions = %d, want 1", len(river))
	}

	// Lowercase correct answers are normalized to uppercase.
	road2018 := repo.Query(Filter{Category: "道路", Type: QuestionTypeSpecialist, Year: 2018})
	if len(road2018) != 2 {
		t.Fatalf("road 2018 = %d, want 2 (bad-answer row must be rejected)", len(road2018))
	}
	for _, q := range road2018 {
		if q.CorrectAnswer != "B" && q.CorrectAnswer != "C" {
			t.Errorf("question %d answer %q not normalized", q.ID, q.CorrectAnswer)
		}
	}

	// Empty category maps to the sentinel, never a real department.
	uncat := repo.Query(Filter{Category: Uncategorized})
	if len(uncat) != 1 {
		t.Errorf("uncategorized = %d, want 1", len(uncat))
	}

	stats := repo.Stats()
	if stats.RowsRejected != 1 {
		t.Errorf("rejected = %d, want 1", stats.RowsRejected)
	}
	if stats.Unmapped["謎の新部門"] != 1 {
		t.Errorf("unmapped audit missing: %v", stats.Unmapped)
	}
	if stats.FilesLoaded != 3 {
		t.Errorf("files loaded = %d, want 3", stats.FilesLoaded)
	}
}

func TestQueryFilters(t *testing.T) {
	repo, err := Load(writeBank(t))
	if err != nil {
		t.Fatal(err)
	}

	all := repo.Query(Filter{Category: "道路", Type: QuestionTypeSpecialist})
	if len(all) != 3 {
		t.Fatalf("road all years = %d, want 3", len(all))
	}
	y2019 := repo.Query(Filter{Category: "道路", Type: QuestionTypeSpecialist, Year: 2019})
	if len(y2019) != 1 {
		t.Fatalf("road 2019 = %d, want 1", len(y2019))
	}

	// Zero matches is a legitimate empty result, not an error.
	if got := repo.Query(Filter{Category: "造園"}); len(got) != 0 {
		t.Errorf("empty category query = %d rows", len(got))
	}

	years := repo.Years()
	if len(years) != 2 || years[0] != 2018 || years[1] != 2019 {
		t.Errorf("years = %v", years)
	}
}

func TestLoadEmptyDirIsDataUnavailable(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestCacheBuildsOnce(t *testing.T) {
	cache := NewCache(writeBank(t))

	var wg sync.WaitGroup
	repos := make([]*Repository, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := cache.Repo()
			if err != nil {
				t.Error(err)
				return
			}
			repos[i] = r
		}(i)
	}
	wg.Wait()

	for i := 1; i < 8; i++ {
		if repos[i] != repos[0] {
			t.Fatal("concurrent first requests built different repositories")
		}
	}

	reloaded, err := cache.Reload()
	if err != nil {
		t.Fatal(err)
	}
	if reloaded == repos[0] {
		t.Error("reload should produce a fresh repository")
	}
}
