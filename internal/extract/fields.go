// ABOUTME: Fields is the typed shape of one extraction result, shared by the model and fallback paths
// ABOUTME: Also defines the JSON schema sent to the model and the validation applied to its reply
package extract

import (
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/harper/emergency-intake/internal/models"
)

// MaxPeople bounds any single affected-people count
const MaxPeople = 10000

// LocationFields are address fragments
type LocationFields struct {
	Address  string `json:"address,omitempty"`
	Ward     string `json:"ward,omitempty"`
	District string `json:"district,omitempty"`
	City     string `json:"city,omitempty"`
}

// PeopleFields are affected-people counts; nil means not mentioned
type PeopleFields struct {
	Total    *int `json:"total,omitempty"`
	Injured  *int `json:"injured,omitempty"`
	Critical *int `json:"critical,omitempty"`
}

// SupportFields are explicit requests for or against a force
type SupportFields struct {
	Police         *bool `json:"police,omitempty"`
	Ambulance      *bool `json:"ambulance,omitempty"`
	FireDepartment *bool `json:"fireDepartment,omitempty"`
	Rescue         *bool `json:"rescue,omitempty"`
}

// Fields is everything one message may contribute
type Fields struct {
	Location        *LocationFields `json:"location,omitempty"`
	EmergencyTypes  []string        `json:"emergencyTypes,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	AffectedPeople  *PeopleFields   `json:"affectedPeople,omitempty"`
	SupportRequired *SupportFields  `json:"supportRequired,omitempty"`
	Priority        string          `json:"priority,omitempty"`
	Description     string          `json:"description,omitempty"`
	ReporterName    string          `json:"reporterName,omitempty"`
}

// Validate rejects replies the reducers must never see
func (f Fields) Validate() error {
	for _, c := range f.EmergencyTypes {
		if _, ok := models.ParseCategory(c); !ok {
			return fmt.Errorf("unknown emergency type %q", c)
		}
	}
	if f.Priority != "" && !models.Priority(strings.ToUpper(f.Priority)).Valid() {
		return fmt.Errorf("unknown priority %q", f.Priority)
	}
	if p := f.AffectedPeople; p != nil {
		for name, v := range map[string]*int{"total": p.Total, "injured": p.Injured, "critical": p.Critical} {
			if v != nil && (*v < 0 || *v > MaxPeople) {
				return fmt.Errorf("%s count %d out of range", name, *v)
			}
		}
	}
	return nil
}

func categoryNames() []string {
	out := make([]string, len(models.AllCategories))
	for i, c := range models.AllCategories {
		out[i] = string(c)
	}
	return out
}

// Schema is the JSON schema requested from the model
func Schema() *jsonschema.Definition {
	str := func(desc string) jsonschema.Definition {
		return jsonschema.Definition{Type: jsonschema.String, Description: desc}
	}
	count := func(desc string) jsonschema.Definition {
		return jsonschema.Definition{Type: jsonschema.Integer, Description: desc}
	}
	flag := func(desc string) jsonschema.Definition {
		return jsonschema.Definition{Type: jsonschema.Boolean, Description: desc}
	}

	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"location": {
				Type:        jsonschema.Object,
				Description: "Địa chỉ của tình huống khẩn cấp",
				Properties: map[string]jsonschema.Definition{
					"address":  str("Số nhà và tên đường, ví dụ \"123 Nguyễn Huệ\""),
					"ward":     str("Phường/Xã"),
					"district": str("Quận/Huyện"),
					"city":     str("Tỉnh/Thành phố"),
				},
			},
			"emergencyTypes": {
				Type:        jsonschema.Array,
				Description: "Loại tình huống, có thể nhiều loại",
				Items:       &jsonschema.Definition{Type: jsonschema.String, Enum: categoryNames()},
			},
			"phone": str("Số điện thoại Việt Nam đúng như người dùng viết"),
			"affectedPeople": {
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"total":    count("Tổng số người bị ảnh hưởng"),
					"injured":  count("Số người bị thương"),
					"critical": count("Số người nguy kịch"),
				},
			},
			"supportRequired": {
				Type:        jsonschema.Object,
				Description: "Chỉ điền khi người dùng yêu cầu rõ ràng có hoặc không cần một lực lượng",
				Properties: map[string]jsonschema.Definition{
					"police":         flag("Cần công an"),
					"ambulance":      flag("Cần xe cấp cứu"),
					"fireDepartment": flag("Cần xe cứu hỏa"),
					"rescue":         flag("Cần đội cứu hộ"),
				},
			},
			"priority": {
				Type:        jsonschema.String,
				Description: "CRITICAL nếu có người chết, nguy kịch hoặc cháy lớn",
				Enum:        []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"},
			},
			"description":  str("Mô tả ngắn tình huống"),
			"reporterName": str("Tên người báo tin"),
		},
	}
}
