// ABOUTME: Tests for guidance query building, synthesis fallbacks, and output filtering
package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/harper/emergency-intake/internal/keywords"
	"github.com/harper/emergency-intake/internal/models"
)

func TestFilterGuidance(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"strips redirect and renumbers",
			"1. Rời khỏi khu vực có khói.\n2. Gọi 114 ngay lập tức.\n3. Dùng khăn ướt che mũi.",
			"1. Rời khỏi khu vực có khói.\n2. Dùng khăn ướt che mũi.",
		},
		{
			"strips citations",
			"1. Ấn chặt vết thương [Nguồn: so-cuu.md].\n2. Nâng cao chi. [Tài liệu 2]\nNguồn: tài liệu 1",
			"1. Ấn chặt vết thương .\n2. Nâng cao chi.",
		},
		{
			"caps steps",
			"1. a\n2. b\n3. c\n4. d\n5. e\n6. f\n7. g",
			"1. a\n2. b\n3. c\n4. d\n5. e",
		},
		{
			"drops facility advice",
			"Hướng dẫn:\n1. Đặt nạn nhân nằm nghiêng.\n2. Đến bệnh viện gần nhất.",
			"Hướng dẫn:\n1. Đặt nạn nhân nằm nghiêng.",
		},
		{
			"keeps decimals",
			"1. Cho uống 1.5 lít nước.",
			"1. Cho uống 1.5 lít nước.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilterGuidance(tt.in); got != tt.want {
				t.Errorf("FilterGuidance() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGuideQuery(t *testing.T) {
	g := NewGuide(nil, nil, keywords.MustDefault())

	withWords := stateWith(func(s *models.ConversationState) {
		s.EmergencyTypes = []models.Category{models.CategoryFireRescue}
		s.Messages = []models.Message{
			{Role: models.RoleReporter, Text: "Có người bị BỎNG nặng"},
			{Role: models.RoleOperator, Text: "Có ai bất tỉnh không?"},
		}
	})
	if got := g.Query(withWords); got != "bỏng" {
		t.Errorf("Query(keywords) = %q, want bỏng", got)
	}

	withDescription := stateWith(func(s *models.ConversationState) {
		s.EmergencyTypes = []models.Category{models.CategoryMedical}
		s.Description = "  Xe máy va chạm  "
	})
	if got := g.Query(withDescription); got != "Xe máy va chạm" {
		t.Errorf("Query(description) = %q", got)
	}

	bare := stateWith(func(s *models.ConversationState) {
		s.EmergencyTypes = []models.Category{models.CategoryFireRescue}
	})
	if got := g.Query(bare); got != "cháy nổ cứu hỏa mắc kẹt" {
		t.Errorf("Query(generic) = %q", got)
	}
}

func TestSynthesize_Fallbacks(t *testing.T) {
	fire := stateWith(func(s *models.ConversationState) {
		s.EmergencyTypes = []models.Category{models.CategoryFireRescue}
	})
	tables := keywords.MustDefault()

	tests := []struct {
		name     string
		guidance string
		searcher *fakeSearcher
	}{
		{"model says none", "NONE", &fakeSearcher{chunks: defaultChunks()}},
		{"only filtered content", "Gọi 114 ngay.", &fakeSearcher{chunks: defaultChunks()}},
		{"no chunks", "1. a", &fakeSearcher{}},
		{"search error", "1. a", &fakeSearcher{err: errors.New("down")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := newFakeModel()
			model.guidance = tt.guidance
			g := NewGuide(model, tt.searcher, tables)
			if got := g.Synthesize(context.Background(), fire); got != GenericGuidance {
				t.Errorf("Synthesize() = %q, want generic", got)
			}
		})
	}
}

func TestSynthesize_NoCategories(t *testing.T) {
	model := newFakeModel()
	g := NewGuide(model, &fakeSearcher{chunks: defaultChunks()}, keywords.MustDefault())
	if got := g.Synthesize(context.Background(), stateWith(func(*models.ConversationState) {})); got != GenericGuidance {
		t.Errorf("Synthesize() = %q", got)
	}
	if model.count("guidance") != 0 {
		t.Error("no model call expected without categories")
	}
}

func TestSearchCategories(t *testing.T) {
	got := searchCategories([]models.Category{models.CategorySecurity, models.CategoryFireRescue})
	want := []models.Category{models.CategoryFireRescue, models.CategoryMedical, models.CategorySecurity}
	if len(got) != len(want) {
		t.Fatalf("searchCategories() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("searchCategories() = %v, want %v", got, want)
		}
	}
}
