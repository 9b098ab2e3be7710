package validate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"settlement-form-backend/internal/form"
)

// subject is what a requirement predicate is evaluated against.
type subject struct {
	state   *form.FormState
	variant form.Variant
	index   int
}

func (s subject) get(p form.Path) string {
	v, _ := form.Get(s.state, p)
	return v
}

func (s subject) row(field, sub string) string {
	return strings.TrimSpace(s.get(form.RowPath(field, s.index, sub)))
}

// requirement decides whether a field must be filled in.
type requirement func(subject) bool

func always(subject) bool   { return true }
func optional(subject) bool { return false }

// rowNamed requires a row sub-field once the row has a name.
func rowNamed(field string) requirement {
	return func(s subject) bool {
		return s.row(field, "name") != ""
	}
}

// fixedOrDescribed requires the condition of the fixed premises rows and of
// any extra row with a description.
func fixedOrDescribed(s subject) bool {
	return s.index < form.FixedPremises || s.row("premisesConditions", "description") != ""
}

// phoneComplete requires a parent's name once their phone is complete.
func phoneComplete(phoneField string) requirement {
	return func(s subject) bool {
		return len(s.get(form.FieldPath(phoneField))) == s.variant.PhoneDigits
	}
}

// rule validates one scalar field, one slot of a digit list, or one
// sub-field of every row of a record list.
type rule struct {
	field    string
	sub      string
	required requirement
	tag      string
	phone    bool
}

func (r rule) tagFor(v form.Variant) string {
	if r.phone {
		return fmt.Sprintf("phone%d", v.PhoneDigits)
	}
	return r.tag
}

// check is a cross-field rule. It is listed under the field whose page
// shows its error.
type check struct {
	field string
	run   func(s *form.FormState, v form.Variant, now time.Time, t *ErrorTree)
}

// entry is one step of the schema: either a rule or a check.
type entry struct {
	rule  *rule
	check *check
}

func scalar(field string, required requirement, tag string) entry {
	return entry{rule: &rule{field: field, required: required, tag: tag}}
}

func rowRule(field, sub string, required requirement, tag string) entry {
	return entry{rule: &rule{field: field, sub: sub, required: required, tag: tag}}
}

func phone(field string, required requirement) entry {
	return entry{rule: &rule{field: field, required: required, phone: true}}
}

func date(name string, required requirement) []entry {
	d, ok := form.Triplet(name)
	if !ok {
		panic("validate: unknown date " + name)
	}
	return []entry{
		scalar(d.Day, required, "day"),
		scalar(d.Month, required, "month"),
		scalar(d.Year, required, "year4"),
		{check: &check{field: d.Day, run: calendarCheck(d)}},
	}
}

func join(groups ...[]entry) []entry {
	var out []entry
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// schema lists every rule in page order. Errors are reported in this order.
var schema = join(
	// agreement
	[]entry{scalar("contractNumber", always, "numeric,max=8")},
	date("contract", always),
	[]entry{
		scalar("academicYear", always, "len=9"),
		scalar("dormitory", always, "max=64"),
		scalar("roomNumber", always, "roomno"),
	},
	// student
	[]entry{
		scalar("surname", always, "alphaname,max=50"),
		scalar("name", always, "alphaname,max=50"),
		scalar("patronymic", optional, "alphaname,max=50"),
		scalar("faculty", always, "max=64"),
		scalar("group", always, "max=64"),
		scalar("course", always, "course"),
		scalar("gender", always, "oneof=male female"),
		phone("phone", always),
		scalar("email", optional, "email,max=254"),
	},
	// term
	date("start", always),
	date("end", always),
	[]entry{
		{check: &check{field: form.SyntheticDates, run: termOrderCheck}},
		scalar("dormStreet", always, "max=100"),
		scalar("dormBuilding", always, "max=10"),
	},
	// passport
	[]entry{
		scalar("passportSeries", optional, "passportseries"),
		scalar("passportNumber", always, "passportnumber"),
		scalar("passportIssuedBy", always, "max=200"),
	},
	date("passport", always),
	// tax id
	[]entry{scalar("taxId", always, "digit")},
	// residence
	[]entry{
		scalar("region", always, "max=100"),
		scalar("city", always, "max=100"),
		scalar("street", always, "max=100"),
		scalar("house", always, "max=10"),
		scalar("apartment", optional, "numeric,max=5"),
		scalar("postalCode", always, "postalcode"),
	},
	// parents
	[]entry{
		scalar("motherFullName", phoneComplete("motherPhone"), "alphaname,max=100"),
		phone("motherPhone", optional),
		scalar("fatherFullName", phoneComplete("fatherPhone"), "alphaname,max=100"),
		phone("fatherPhone", optional),
		{check: &check{field: form.SyntheticParentPhones, run: parentPhonesCheck}},
	},
	// signatures
	[]entry{
		scalar("managerName", always, "max=100"),
		scalar("agreeTerms", always, ""),
	},
	// appendix 1
	date("appendix1", always),
	[]entry{
		scalar("appendix1ManagerName", always, "max=100"),
		scalar("appendix1RoomNumber", always, "roomno"),
	},
	// inventory
	[]entry{
		rowRule("inventory", "name", optional, "max=60"),
		rowRule("inventory", "quantity", rowNamed("inventory"), "numeric,max=3"),
		rowRule("inventory", "note", optional, "max=120"),
	},
	// appliances
	[]entry{
		rowRule("electricalAppliances", "name", optional, "max=60"),
		rowRule("electricalAppliances", "power", rowNamed("electricalAppliances"), "numeric,max=5"),
		rowRule("electricalAppliances", "quantity", rowNamed("electricalAppliances"), "numeric,max=2"),
	},
	// appendix 2
	date("appendix2", always),
	[]entry{
		scalar("appendix2ManagerName", always, "max=100"),
		scalar("appendix2RoomNumber", always, "roomno"),
		scalar("premisesNumber", always, "roomno"),
	},
	// premises
	[]entry{
		rowRule("premisesConditions", "name", optional, "max=60"),
		rowRule("premisesConditions", "description", optional, "max=200"),
		rowRule("premisesConditions", "condition", fixedOrDescribed, "oneof=good satisfactory unsatisfactory"),
	},
	// appendix 3
	date("appendix3", always),
	[]entry{
		scalar("appendix3ManagerName", always, "max=100"),
		scalar("agreeRules", always, ""),
		scalar("agreePersonalData", always, ""),
	},
)

func dateOf(s *form.FormState, d form.DateTriplet) (time.Time, bool) {
	day, _ := form.Get(s, form.FieldPath(d.Day))
	month, _ := form.Get(s, form.FieldPath(d.Month))
	year, _ := form.Get(s, form.FieldPath(d.Year))
	if day == "" || month == "" || year == "" {
		return time.Time{}, false
	}
	dd, errDay := strconv.Atoi(day)
	mm, errMonth := strconv.Atoi(month)
	yyyy, errYear := strconv.Atoi(year)
	if errDay != nil || errMonth != nil || errYear != nil {
		return time.Time{}, false
	}
	t := time.Date(yyyy, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	if t.Day() != dd || int(t.Month()) != mm || t.Year() != yyyy {
		return time.Time{}, false
	}
	return t, true
}

// calendarCheck flags day/month/year triplets that pass their format rules
// but name a date that does not exist, such as 31.02.
func calendarCheck(d form.DateTriplet) func(*form.FormState, form.Variant, time.Time, *ErrorTree) {
	return func(s *form.FormState, _ form.Variant, _ time.Time, t *ErrorTree) {
		for _, f := range []string{d.Day, d.Month, d.Year} {
			if t.Has(form.FieldPath(f)) {
				return
			}
			if v, _ := form.Get(s, form.FieldPath(f)); v == "" {
				return
			}
		}
		if _, ok := dateOf(s, d); !ok {
			t.add(form.FieldPath(d.Day), msgBadDate)
		}
	}
}

func termOrderCheck(s *form.FormState, _ form.Variant, _ time.Time, t *ErrorTree) {
	startT, _ := form.Triplet("start")
	endT, _ := form.Triplet("end")
	start, okStart := dateOf(s, startT)
	end, okEnd := dateOf(s, endT)
	if okStart && okEnd && !end.After(start) {
		t.add(form.FieldPath(form.SyntheticDates), msgEndBefore)
	}
}

func parentPhonesCheck(s *form.FormState, _ form.Variant, _ time.Time, t *ErrorTree) {
	mother := strings.TrimSpace(s.MotherPhone)
	father := strings.TrimSpace(s.FatherPhone)
	switch {
	case mother == "" && father == "":
		t.add(form.FieldPath(form.SyntheticParentPhones), msgNoParentPhone)
	case mother == father:
		t.add(form.FieldPath(form.SyntheticParentPhones), msgSamePhones)
	}
}
