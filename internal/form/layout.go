package form

// Synthetic error paths for cross-field rules. They do not address a
// FormState field.
const (
	SyntheticParentPhones = "parentPhones"
	SyntheticDates        = "dates"
)

// Page is one logical page of the wizard.
type Page struct {
	Index  int
	Name   string
	Fields []string
}

// Layout is the static page structure shared by both variants.
type Layout struct {
	pages     []Page
	byField   map[string][]int
	synthetic map[string]int
}

// PageCount is the number of logical pages of the wizard.
const PageCount = 14

// NewLayout builds the page table. List fields expand to every slot.
func NewLayout() *Layout {
	pages := []Page{
		{Name: "agreement", Fields: []string{"contractNumber", "contractDay", "contractMonth", "contractYear", "academicYear", "dormitory", "roomNumber"}},
		{Name: "student", Fields: []string{"surname", "name", "patronymic", "faculty", "group", "course", "gender", "phone", "email"}},
		{Name: "term", Fields: []string{"startDay", "startMonth", "startYear", "endDay", "endMonth", "endYear", "dormStreet", "dormBuilding"}},
		{Name: "passport", Fields: []string{"passportSeries", "passportNumber", "passportIssuedBy", "passportDay", "passportMonth", "passportYear"}},
		{Name: "tax-id", Fields: []string{"taxId"}},
		{Name: "residence", Fields: []string{"region", "city", "street", "house", "apartment", "postalCode"}},
		{Name: "parents", Fields: []string{"motherFullName", "motherPhone", "fatherFullName", "fatherPhone"}},
		{Name: "signatures", Fields: []string{"managerName", "agreeTerms"}},
		{Name: "appendix1", Fields: []string{"appendix1Day", "appendix1Month", "appendix1Year", "appendix1ManagerName", "appendix1RoomNumber", "endDay", "endMonth", "endYear"}},
		{Name: "inventory", Fields: []string{"inventory"}},
		{Name: "appliances", Fields: []string{"electricalAppliances"}},
		{Name: "appendix2", Fields: []string{"appendix2Day", "appendix2Month", "appendix2Year", "appendix2ManagerName", "appendix2RoomNumber", "premisesNumber"}},
		{Name: "premises", Fields: []string{"premisesConditions"}},
		{Name: "appendix3", Fields: []string{"appendix3Day", "appendix3Month", "appendix3Year", "appendix3ManagerName", "agreeRules", "agreePersonalData"}},
	}
	l := &Layout{
		pages:   pages,
		byField: make(map[string][]int),
		synthetic: map[string]int{
			SyntheticParentPhones: 6,
			SyntheticDates:        2,
		},
	}
	for i := range l.pages {
		l.pages[i].Index = i
		for _, f := range l.pages[i].Fields {
			l.byField[f] = append(l.byField[f], i)
		}
	}
	return l
}

// Pages returns the page table.
func (l *Layout) Pages() []Page {
	return l.pages
}

// Page returns the page at index i.
func (l *Layout) Page(i int) (Page, bool) {
	if i < 0 || i >= len(l.pages) {
		return Page{}, false
	}
	return l.pages[i], true
}

// PagesOf lists every page that renders field, in page order. Synthetic
// paths map to their declared page.
func (l *Layout) PagesOf(field string) []int {
	if p, ok := l.synthetic[field]; ok {
		return []int{p}
	}
	return l.byField[field]
}

// Spread returns the two pages shown together with page i.
func (l *Layout) Spread(i int) (left, right int) {
	left = i - i%2
	return left, left + 1
}

// Paths expands the fields of page i into addressable paths.
func (l *Layout) Paths(i int) []Path {
	page, ok := l.Page(i)
	if !ok {
		return nil
	}
	var out []Path
	for _, f := range page.Fields {
		out = append(out, Expand(f)...)
	}
	return out
}

// Order returns every addressable path in page order. A field shown on
// several pages appears once, at its first page.
func (l *Layout) Order() []Path {
	seen := make(map[string]bool)
	var out []Path
	for i := range l.pages {
		for _, f := range l.pages[i].Fields {
			if seen[f] {
				continue
			}
			seen[f] = true
			out = append(out, Expand(f)...)
		}
	}
	return out
}
