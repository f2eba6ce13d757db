// ABOUTME: Tests for keyword table loading and matching helpers
// ABOUTME: Covers the embedded defaults, file overrides, and NFC normalization

package keywords

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/harper/emergency-intake/internal/models"
)

func TestDefault_Compiles(t *testing.T) {
	tables, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if len(tables.PhonePatterns) == 0 {
		t.Error("expected phone patterns")
	}
	if tables.PeoplePattern == nil {
		t.Error("expected people pattern")
	}
	for _, c := range models.AllCategories {
		if _, ok := tables.Guidance[c]; !ok {
			t.Errorf("missing guidance table for %s", c)
		}
	}
}

func TestMatchCategories(t *testing.T) {
	tables := MustDefault()

	tests := []struct {
		text string
		want []models.Category
	}{
		{"Có cháy lớn ở chung cư", []models.Category{models.CategoryFireRescue}},
		{"Có người bị tai nạn giao thông", []models.Category{models.CategoryMedical}},
		{"Nhà tôi bị trộm", []models.Category{models.CategorySecurity}},
		{"CHÁY và có người BỊ THƯƠNG", []models.Category{models.CategoryFireRescue, models.CategoryMedical}},
		{"xin chào", nil},
		{"Không có cháy, chỉ có khói từ bếp", []models.Category{models.CategoryFireRescue}},
		{"không cháy", nil},
		{"Chưa có cướp, nhưng có người lạ đột nhập", []models.Category{models.CategorySecurity}},
		{"Không phải cháy, là trộm", []models.Category{models.CategorySecurity}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := tables.MatchCategories(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MatchCategories(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestMatchCategories_DecomposedInput(t *testing.T) {
	tables := MustDefault()
	// "cháy" with a combining acute accent after the "a"
	decomposed := "cha\u0301y"
	got := tables.MatchCategories(decomposed)
	if len(got) != 1 || got[0] != models.CategoryFireRescue {
		t.Errorf("MatchCategories(decomposed) = %v, want [FIRE_RESCUE]", got)
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		text, phrase string
		want         bool
	}{
		{"Đúng", "đúng", true},
		{"đúng rồi!", "đúng rồi", true},
		{"Ok, xác nhận.", "xác nhận", true},
		{"oke", "ok", false},
		{"không đúng", "đúng", true},
		{"chưa", "ok", false},
	}
	for _, tt := range tests {
		if got := ContainsWord(tt.text, tt.phrase); got != tt.want {
			t.Errorf("ContainsWord(%q, %q) = %v, want %v", tt.text, tt.phrase, got, tt.want)
		}
	}
}

func TestIsLookup(t *testing.T) {
	tables := MustDefault()
	yes := []string{
		"Trạng thái phiếu TD-20250101-101010-ABCD thế nào?",
		"cho tôi xem phiếu của tôi",
		"What is my ticket status",
		"TD-20250101-101010-ABCD",
	}
	no := []string{"Có cháy ở nhà tôi", "0912345678"}

	for _, s := range yes {
		if !tables.IsLookup(s) {
			t.Errorf("IsLookup(%q) = false, want true", s)
		}
	}
	for _, s := range no {
		if tables.IsLookup(s) {
			t.Errorf("IsLookup(%q) = true, want false", s)
		}
	}
}

func TestLocationPatterns(t *testing.T) {
	tables := MustDefault()
	text := "Cháy ở 123 Nguyễn Huệ, Phường Bến Nghé, Quận 1, Thành phố Hồ Chí Minh"

	find := func(res []string) string {
		if len(res) < 2 {
			return ""
		}
		return strings.TrimSpace(res[1])
	}

	if got := find(tables.AddressPatterns[0].FindStringSubmatch(text)); got != "123 Nguyễn Huệ" {
		t.Errorf("address = %q", got)
	}
	if got := find(tables.WardPatterns[0].FindStringSubmatch(text)); got != "Phường Bến Nghé" {
		t.Errorf("ward = %q", got)
	}
	if got := find(tables.DistrictPatterns[0].FindStringSubmatch(text)); got != "Quận 1" {
		t.Errorf("district = %q", got)
	}
	if got := find(tables.CityPatterns[0].FindStringSubmatch(text)); got != "Thành phố Hồ Chí Minh" {
		t.Errorf("city = %q", got)
	}
}

func TestLoad_FileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kw.yaml")
	data := `
categories:
  SECURITY: [cướp]
lookup_patterns: ['phiếu']
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tables, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := tables.MatchCategories("bị cháy"); len(got) != 0 {
		t.Errorf("override should drop fire keywords, got %v", got)
	}
	if !tables.IsLookup("PHIẾU") {
		t.Error("lookup patterns should be case-insensitive")
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown category": "categories:\n  FLOOD: [lũ]\n",
		"bad regex":        "phone_patterns: ['(']\n",
		"bad yaml":         "categories: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(data)); err == nil {
				t.Error("Parse() should fail")
			}
		})
	}
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	tables, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(tables.ConfirmKeywords) == 0 {
		t.Error("expected default confirm keywords")
	}
}

func TestDefaultDigest(t *testing.T) {
	d := DefaultDigest()
	if len(d) != 12 || d != DefaultDigest() {
		t.Errorf("DefaultDigest() = %q, want a stable 12-digit digest", d)
	}
}
