// ABOUTME: Tests for phone number validation and normalization
// ABOUTME: Covers separators, +84 forms, and prefixes outside the allow-list
package phone

import (
	"strings"
	"testing"
)

func TestValidate_DomesticWithSeparators(t *testing.T) {
	inputs := []string{
		"091 234 5678",
		"0912345678",
		"0912-345-678",
		"(091) 234.5678",
		" 0912 345 678 ",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			res := Validate(in)
			if !res.IsValid {
				t.Fatalf("Validate(%q) invalid: %s", in, res.Error)
			}
			if res.Normalized != "0912345678" {
				t.Errorf("Normalized = %q, want 0912345678", res.Normalized)
			}
			if res.International != "+84912345678" {
				t.Errorf("International = %q, want +84912345678", res.International)
			}
		})
	}
}

func TestValidate_InternationalMatchesDomestic(t *testing.T) {
	for prefix := range ValidPrefixes {
		local := prefix + "1234567"
		intl := "+84 " + prefix[1:] + " 123 4567"

		a := Validate(local)
		b := Validate(intl)
		if !a.IsValid || !b.IsValid {
			t.Fatalf("prefix %s: local valid=%v (%s), intl valid=%v (%s)", prefix, a.IsValid, a.Error, b.IsValid, b.Error)
		}
		if a.Normalized != b.Normalized {
			t.Errorf("prefix %s: normalized %q != %q", prefix, a.Normalized, b.Normalized)
		}
		if a.International != b.International {
			t.Errorf("prefix %s: international %q != %q", prefix, a.International, b.International)
		}
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "   ", "không được để trống"},
		{"unknown prefix", "0112345678", "Đầu số 011"},
		{"unknown prefix with dashes", "011-234-5678", "Đầu số 011"},
		{"too short", "091234567", "đúng 10 chữ số"},
		{"too long", "09123456789", "đúng 10 chữ số"},
		{"bad international length", "+8491234567", "+84 theo sau bởi 9 chữ số"},
		{"bad international prefix", "+84112345678", "Đầu số 011"},
		{"no leading zero", "912345678", "bắt đầu bằng 0"},
		{"letters", "09123abc78", "đúng 10 chữ số"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.input)
			if res.IsValid {
				t.Fatalf("Validate(%q) should be invalid", tt.input)
			}
			if res.Normalized != "" {
				t.Errorf("Normalized = %q, want empty", res.Normalized)
			}
			if !strings.Contains(res.Error, tt.wantErr) {
				t.Errorf("Error = %q, want substring %q", res.Error, tt.wantErr)
			}
		})
	}
}

func TestClean(t *testing.T) {
	if got := Clean("(+84) 91-234.5678"); got != "+84912345678" {
		t.Errorf("Clean() = %q", got)
	}
}
