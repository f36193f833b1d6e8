package bank

import (
	"strings"

	"golang.org/x/text/width"
)

// Uncategorized marks rows whose category column was empty. It is a real
// value on purpose: silently coercing blank categories into a department was
// a recurring source of cross-department contamination in the source data.
const Uncategorized = "未分類"

// CategoryCommon tags every 4-1 basic question regardless of what the file says.
const CategoryCommon = "共通"

// Canonical specialist categories as they appear in the curated data.
var CanonicalCategories = []string{
	"道路",
	"河川、砂防及び海岸・海洋",
	"都市計画及び地方計画",
	"造園",
	"建設環境",
	"鋼構造及びコンクリート",
	"土質及び基礎",
	"施工計画、施工設備及び積算",
	"上水道及び工業用水道",
	"森林土木",
	"農業土木",
	"トンネル",
}

var canonicalSet = func() map[string]bool {
	m := make(map[string]bool, len(CanonicalCategories)+1)
	for _, c := range CanonicalCategories {
		m[c] = true
	}
	m[CategoryCommon] = true
	return m
}()

// punctReplacer unifies the separators that drift across exam years:
// full/half-width commas and the half-width katakana middle dot.
var punctReplacer = strings.NewReplacer(
	",", "、",
	"，", "、",
	"･", "・",
)

// NormalizeCategory maps a raw category string onto its canonical spelling.
// The function is pure and total: unknown non-empty input passes through
// unchanged (so new spellings stay visible), empty input becomes Uncategorized.
//
// The compound categories appear in the historical files with every
// imaginable punctuation (河川・砂防及び海岸・海洋, 河川砂防海岸海洋, ...),
// so matching is by key tokens rather than exact string.
func NormalizeCategory(raw string) string {
	s := strings.TrimSpace(width.Fold.String(raw))
	if s == "" {
		return Uncategorized
	}
	s = punctReplacer.Replace(s)

	switch {
	case strings.Contains(s, "河川") && strings.Contains(s, "砂防"):
		return "河川、砂防及び海岸・海洋"
	case strings.Contains(s, "都市計画") && strings.Contains(s, "地方計画"):
		return "都市計画及び地方計画"
	case strings.Contains(s, "鋼構造") && strings.Contains(s, "コンクリート"):
		return "鋼構造及びコンクリート"
	case strings.Contains(s, "土質") && strings.Contains(s, "基礎"):
		return "土質及び基礎"
	case strings.Contains(s, "施工計画"):
		return "施工計画、施工設備及び積算"
	case strings.Contains(s, "上水道"):
		return "上水道及び工業用水道"
	}
	return s
}

// IsCanonicalCategory reports whether c is one of the curated categories
// (including the common one). Uncategorized is not canonical.
func IsCanonicalCategory(c string) bool {
	return canonicalSet[c]
}
