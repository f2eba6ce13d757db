// ABOUTME: Tests for the recursive chunker
// ABOUTME: Checks size bounds, overlap, separator preference, and empty input

package retrieval

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewChunker_Validates(t *testing.T) {
	tests := []struct {
		size, overlap int
		wantErr       bool
	}{
		{100, 20, false},
		{0, 0, true},
		{100, 100, true},
		{100, -1, true},
	}
	for _, tt := range tests {
		_, err := NewChunker(tt.size, tt.overlap)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewChunker(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
		}
	}
}

func TestSplit_ShortTextIsOneChunk(t *testing.T) {
	got := DefaultChunker().Split("  Làm mát vết bỏng bằng nước sạch.  ")
	if len(got) != 1 || got[0] != "Làm mát vết bỏng bằng nước sạch." {
		t.Errorf("Split() = %q", got)
	}
}

func TestSplit_Empty(t *testing.T) {
	if got := DefaultChunker().Split(" \n\n "); got != nil {
		t.Errorf("Split() = %q, want nil", got)
	}
}

func TestSplit_RespectsSize(t *testing.T) {
	c, err := NewChunker(50, 10)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	var paras []string
	for i := 0; i < 10; i++ {
		paras = append(paras, "Bước sơ cứu số một cho nạn nhân bị bỏng nặng ở tay.")
	}
	text := strings.Join(paras, "\n\n")

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("Split() returned %d chunks, want several", len(chunks))
	}
	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch); n > 50 {
			t.Errorf("chunk %d has %d runes, limit 50", i, n)
		}
	}
}

func TestSplit_PrefersParagraphs(t *testing.T) {
	c, _ := NewChunker(30, 0)
	text := "Đoạn một ngắn.\n\nĐoạn hai ngắn.\n\nĐoạn ba ngắn."

	chunks := c.Split(text)
	if len(chunks) != 2 {
		t.Fatalf("Split() = %q, want 2 chunks", chunks)
	}
	if !strings.HasPrefix(chunks[0], "Đoạn một") || !strings.HasSuffix(chunks[1], "Đoạn ba ngắn.") {
		t.Errorf("Split() = %q", chunks)
	}
}

func TestSplit_Overlap(t *testing.T) {
	c, _ := NewChunker(20, 8)
	text := "aaaa bbbb cccc dddd eeee ffff gggg"

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("Split() = %q, want several chunks", chunks)
	}
	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1])
		last := prevWords[len(prevWords)-1]
		if !strings.HasPrefix(chunks[i], last) {
			t.Errorf("chunk %d = %q should start with overlap %q", i, chunks[i], last)
		}
	}
}

func TestSplit_HardSplitsLongWords(t *testing.T) {
	c, _ := NewChunker(10, 0)
	chunks := c.Split(strings.Repeat("x", 25))
	if len(chunks) != 3 {
		t.Errorf("Split() = %q, want 3 pieces", chunks)
	}
}
