// ABOUTME: Deterministic extraction used when the model is unavailable or its reply is unusable
// ABOUTME: Phone, category, people, and location patterns come from the keyword tables
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/harper/emergency-intake/internal/keywords"
	"github.com/harper/emergency-intake/internal/models"
)

const maxFallbackDescription = 200

var (
	bareNumber = regexp.MustCompile(`^\s*(\d{1,4})\s*(?:người)?\s*\.?\s*$`)

	// the next location fragment starts at one of these words
	locationMarker = regexp.MustCompile(`(?i)[\s,]+(?:phường|xã|thị trấn|quận|huyện|thành phố|tỉnh|tp\.?)\s`)
)

// Fallback extracts what it can from message with patterns only
func Fallback(message string, state *models.ConversationState, t *keywords.Tables) Fields {
	var f Fields
	text := norm.NFC.String(message)

	for _, re := range t.PhonePatterns {
		if m := re.FindString(text); m != "" {
			f.Phone = strings.TrimSpace(m)
			break
		}
	}

	for _, c := range t.MatchCategories(text) {
		f.EmergencyTypes = append(f.EmergencyTypes, string(c))
	}

	if t.PeoplePattern != nil {
		if m := t.PeoplePattern.FindStringSubmatch(text); len(m) > 1 {
			if n, err := strconv.Atoi(m[1]); err == nil && n <= MaxPeople {
				f.AffectedPeople = &PeopleFields{Total: &n}
			}
		}
	}
	if f.AffectedPeople == nil && state != nil && state.CurrentStep == models.StepAskPeople {
		if m := bareNumber.FindStringSubmatch(text); len(m) > 1 {
			if n, err := strconv.Atoi(m[1]); err == nil {
				f.AffectedPeople = &PeopleFields{Total: &n}
			}
		}
	}

	if loc := fallbackLocation(text, t); loc != nil {
		f.Location = loc
	}

	if len(f.EmergencyTypes) > 0 && (state == nil || state.Description == "") {
		f.Description = truncate(strings.TrimSpace(text), maxFallbackDescription)
	}

	return f
}

func fallbackLocation(text string, t *keywords.Tables) *LocationFields {
	var loc LocationFields
	loc.Address = firstCapture(t.AddressPatterns, text)
	loc.Ward = firstCapture(t.WardPatterns, text)
	loc.District = firstCapture(t.DistrictPatterns, text)
	loc.City = firstCapture(t.CityPatterns, text)

	if loc.City == "" {
		lower := strings.ToLower(text)
		for _, city := range t.KnownCities {
			if strings.Contains(lower, strings.ToLower(norm.NFC.String(city))) {
				loc.City = city
				break
			}
		}
	}

	if loc == (LocationFields{}) {
		return nil
	}
	return &loc
}

// firstCapture returns group 1 of the first matching pattern, cut at the next location marker
func firstCapture(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		v := m[1]
		if idx := locationMarker.FindStringIndex(v); idx != nil {
			v = v[:idx[0]]
		}
		v = strings.TrimRight(strings.TrimSpace(v), ".,;!?")
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
