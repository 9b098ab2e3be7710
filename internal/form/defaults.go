package form

import "time"

// Defaults is the immutable starting shape of a form. It is built once;
// State hands out copies so rows are never shared between forms.
type Defaults struct {
	state FormState
}

var defaultInventory = []string{
	"Ліжко", "Матрац", "Подушка", "Ковдра", "Шафа", "Стіл", "Стілець", "Полиця",
}

var defaultPremises = [FixedPremises]string{"Стіни", "Підлога", "Вікна", "Двері"}

// NewDefaults builds the default form: pre-named inventory rows with a
// quantity of one and the four fixed premises-condition rows.
func NewDefaults() Defaults {
	var s FormState
	for i, name := range defaultInventory {
		s.Inventory[i] = InventoryRow{Name: name, Quantity: "1"}
	}
	for i, name := range defaultPremises {
		s.PremisesConditions[i] = PremisesRow{Name: name}
	}
	return Defaults{state: s}
}

// State returns an independent copy of the default form.
func (d Defaults) State() FormState {
	return d.state
}

// Decoder fills a state from a persisted draft. Keys absent from the draft
// keep the value already in the state.
type Decoder func(into *FormState) error

// InitialState merges the defaults, a persisted draft and the user profile,
// in that order of precedence. A draft that fails to decode is reported
// but does not prevent the form from opening.
func InitialState(d Defaults, v Variant, profile Profile, draft Decoder, now time.Time) (FormState, error) {
	s := d.State()
	var decodeErr error
	if draft != nil {
		candidate := d.State()
		if err := draft(&candidate); err != nil {
			decodeErr = err
		} else {
			s = candidate
		}
	}
	applyProfile(&s, profile)
	if s.AcademicYear == "" {
		s.AcademicYear = AcademicYearAt(now)
	}
	if s.ContractYear == "" && s.ContractMonth == "" && s.ContractDay == "" {
		SetDate(&s, DateTriplets[0], now)
		if v.MirrorAppendixDates {
			mirrorContractDate(&s)
		}
	}
	// Keep the room copies and the source tag consistent with whatever the draft held.
	s.SetRoom(s.RoomNumber)
	if s.RoomNumber == "" {
		s.RoomSource = SourceUnset
	}
	return s, decodeErr
}

func applyProfile(s *FormState, p Profile) {
	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	overlay(&s.Surname, p.Surname)
	overlay(&s.Name, p.Name)
	overlay(&s.Patronymic, p.Patronymic)
	overlay(&s.Phone, p.Phone)
	overlay(&s.Course, p.Course)
	overlay(&s.Faculty, p.Faculty)
	overlay(&s.Group, p.Group)
	overlay(&s.Gender, p.Gender)
	if p.Dormitory != "" && p.Dormitory != s.Dormitory {
		s.Dormitory = p.Dormitory
		clearDormitoryDependents(s)
	}
}
