// ABOUTME: Scripted intake conversations for the scenario benchmark
// ABOUTME: Each scenario lists reporter turns and the slots and replies it should produce

package scenarios

import "github.com/harper/emergency-intake/internal/models"

// Scenario is one scripted intake conversation
type Scenario struct {
	ID          string
	Name        string
	Description string
	UserID      string
	Turns       []string
	Expect      Expectation
}

// Expectation is the ground truth a finished scenario is scored against.
// Zero values are not checked.
type Expectation struct {
	Categories       []models.Category
	Phone            string
	LocationContains []string
	Injured          int
	Priority         models.Priority
	Ticket           bool

	// checked against the last operator reply plus any filed guidance
	ExpectedInResponse  []string
	ForbiddenInResponse []string
}

// All returns the built-in scenarios
func All() []Scenario {
	return []Scenario{
		apartmentFire(),
		stepByStepMedical(),
		phoneCorrection(),
		negatedFire(),
		robbery(),
	}
}

// ByID returns the built-in scenario with the given id
func ByID(id string) (Scenario, bool) {
	for _, s := range All() {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}

func apartmentFire() Scenario {
	return Scenario{
		ID:          "fire",
		Name:        "Apartment fire in one message",
		Description: "Every slot arrives in the first message; the reporter confirms and a ticket is filed",
		Turns: []string{
			"Có cháy ở 123 Nguyễn Huệ, Phường Bến Nghé, Quận 1, Thành phố Hồ Chí Minh. SĐT 0912345678, 3 người bị thương",
			"đúng",
		},
		Expect: Expectation{
			Categories:          []models.Category{models.CategoryFireRescue},
			Phone:               "0912345678",
			LocationContains:    []string{"Nguyễn Huệ", "Quận 1"},
			Injured:             3,
			Ticket:              true,
			ExpectedInResponse:  []string{"✅"},
			ForbiddenInResponse: []string{"thang máy để thoát"},
		},
	}
}

func stepByStepMedical() Scenario {
	return Scenario{
		ID:          "medical",
		Name:        "Medical emergency collected turn by turn",
		Description: "The reporter answers one question at a time",
		Turns: []string{
			"Có người bị ngất, không thở được",
			"45 Lê Lợi, Phường Bến Thành, Quận 1, TP.HCM",
			"0987654321",
			"1 người",
			"đúng rồi",
		},
		Expect: Expectation{
			Categories:         []models.Category{models.CategoryMedical},
			Phone:              "0987654321",
			LocationContains:   []string{"Lê Lợi"},
			Ticket:             true,
			ExpectedInResponse: []string{"✅"},
		},
	}
}

func phoneCorrection() Scenario {
	return Scenario{
		ID:          "phone",
		Name:        "Invalid phone number corrected",
		Description: "A short number is rejected and the corrected one kept",
		Turns: []string{
			"Tai nạn giao thông ở 10 Hai Bà Trưng, Quận 3, TP.HCM, 2 người bị thương",
			"số tôi là 09123",
			"0909123456",
		},
		Expect: Expectation{
			Categories:       []models.Category{models.CategoryMedical},
			Phone:            "0909123456",
			LocationContains: []string{"Hai Bà Trưng"},
			Injured:          2,
		},
	}
}

func negatedFire() Scenario {
	return Scenario{
		ID:          "negation",
		Name:        "Negated fire keyword",
		Description: "\"không có cháy\" must not classify the report as a fire",
		Turns: []string{
			"Không có cháy, nhưng có người bị thương chảy máu nhiều ở 7 Pasteur, Quận 1, TP.HCM",
		},
		Expect: Expectation{
			Categories:       []models.Category{models.CategoryMedical},
			LocationContains: []string{"Pasteur"},
		},
	}
}

func robbery() Scenario {
	return Scenario{
		ID:          "robbery",
		Name:        "Robbery with an armed suspect",
		Description: "Security report that should be filed with police support",
		Turns: []string{
			"Có cướp có dao ở 200 Điện Biên Phủ, Quận Bình Thạnh, TP.HCM, số tôi 0938111222",
			"không ai bị thương",
			"xác nhận",
		},
		Expect: Expectation{
			Categories:         []models.Category{models.CategorySecurity},
			Phone:              "0938111222",
			LocationContains:   []string{"Điện Biên Phủ"},
			Ticket:             true,
			ExpectedInResponse: []string{"✅"},
		},
	}
}
