// ABOUTME: Vietnamese mobile number validation against the numbering-plan allow-list
// ABOUTME: Normalizes domestic (0xx) and international (+84) forms to one canonical value
package phone

import (
	"fmt"
	"regexp"
	"strings"
)

// Result is the outcome of validating a candidate phone string
type Result struct {
	IsValid       bool   `json:"isValid"`
	Normalized    string `json:"normalized,omitempty"`
	International string `json:"internationalForm,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ValidPrefixes is the numbering-plan allow-list of 3-digit mobile prefixes
var ValidPrefixes = map[string]bool{
	// Viettel, MobiFone, Vinaphone 09x
	"090": true, "091": true, "092": true, "093": true, "094": true,
	"096": true, "097": true, "098": true, "099": true,
	// Viettel 03x
	"032": true, "033": true, "034": true, "035": true, "036": true,
	"037": true, "038": true, "039": true,
	// MobiFone 07x
	"070": true, "076": true, "077": true, "078": true, "079": true,
	// Vinaphone 08x
	"081": true, "082": true, "083": true, "084": true, "085": true,
	"086": true, "088": true, "089": true,
	// Vietnamobile, Gmobile 05x
	"052": true, "053": true, "054": true, "055": true, "056": true,
	"058": true, "059": true,
}

var (
	separators    = regexp.MustCompile(`[\s\-.()]`)
	domestic      = regexp.MustCompile(`^0\d{9}$`)
	international = regexp.MustCompile(`^\+84\d{9}$`)
)

// Clean strips whitespace and the punctuation people type between digit groups
func Clean(raw string) string {
	return separators.ReplaceAllString(raw, "")
}

// Validate checks raw against the allow-list and returns both canonical forms.
// It never panics and never returns an error value; failures are described in Result.Error.
func Validate(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{Error: "Số điện thoại không được để trống"}
	}

	cleaned := Clean(raw)

	if strings.HasPrefix(cleaned, "+84") {
		if !international.MatchString(cleaned) {
			return Result{Error: "Số điện thoại quốc tế phải có định dạng +84 theo sau bởi 9 chữ số (ví dụ: +84912345678)"}
		}
		prefix := "0" + cleaned[3:5]
		if !ValidPrefixes[prefix] {
			return Result{Error: fmt.Sprintf("Đầu số %s không hợp lệ tại Việt Nam", prefix)}
		}
		return Result{
			IsValid:       true,
			Normalized:    "0" + cleaned[3:],
			International: cleaned,
		}
	}

	if strings.HasPrefix(cleaned, "0") {
		if !domestic.MatchString(cleaned) {
			return Result{Error: "Số điện thoại phải có đúng 10 chữ số và bắt đầu bằng số 0"}
		}
		prefix := cleaned[:3]
		if !ValidPrefixes[prefix] {
			return Result{Error: fmt.Sprintf("Đầu số %s không hợp lệ tại Việt Nam. Các đầu số hợp lệ: 09x, 03x, 07x, 08x, 05x", prefix)}
		}
		return Result{
			IsValid:       true,
			Normalized:    cleaned,
			International: "+84" + cleaned[1:],
		}
	}

	return Result{Error: "Số điện thoại phải bắt đầu bằng 0 (10 chữ số) hoặc +84 (9 chữ số)"}
}

// IsValid reports whether raw passes Validate
func IsValid(raw string) bool {
	return Validate(raw).IsValid
}
