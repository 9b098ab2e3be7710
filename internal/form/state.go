package form

// Fixed list lengths. They are part of the printed agreement and never change.
const (
	TaxIDLength   = 10
	InventoryRows = 16
	ApplianceRows = 7
	PremisesRows  = 6
	FixedPremises = 4
)

// InventoryRow is one line of the appendix 1 furniture inventory.
type InventoryRow struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Note     string `json:"note"`
}

// ApplianceRow is one electrical appliance the student brings in.
type ApplianceRow struct {
	Name     string `json:"name"`
	Power    string `json:"power"`
	Quantity string `json:"quantity"`
}

// PremisesRow describes the condition of one element of the room.
type PremisesRow struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Condition   string `json:"condition"`
}

// FormState holds every value of the settlement agreement wizard.
// It contains only strings, booleans and arrays, so assigning a FormState
// produces an independent deep copy.
type FormState struct {
	ContractNumber string `json:"contractNumber"`
	ContractDay    string `json:"contractDay"`
	ContractMonth  string `json:"contractMonth"`
	ContractYear   string `json:"contractYear"`
	AcademicYear   string `json:"academicYear"`

	Surname    string `json:"surname"`
	Name       string `json:"name"`
	Patronymic string `json:"patronymic"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Gender     string `json:"gender"`
	Course     string `json:"course"`
	Faculty    string `json:"faculty"`
	Group      string `json:"group"`

	Dormitory    string `json:"dormitory"`
	DormStreet   string `json:"dormStreet"`
	DormBuilding string `json:"dormBuilding"`
	RoomNumber   string `json:"roomNumber"`
	RoomSource   string `json:"roomSource"`
	ManagerName  string `json:"managerName"`

	StartDay   string `json:"startDay"`
	StartMonth string `json:"startMonth"`
	StartYear  string `json:"startYear"`
	EndDay     string `json:"endDay"`
	EndMonth   string `json:"endMonth"`
	EndYear    string `json:"endYear"`

	PassportSeries   string `json:"passportSeries"`
	PassportNumber   string `json:"passportNumber"`
	PassportIssuedBy string `json:"passportIssuedBy"`
	PassportDay      string `json:"passportDay"`
	PassportMonth    string `json:"passportMonth"`
	PassportYear     string `json:"passportYear"`

	TaxID [TaxIDLength]string `json:"taxId"`

	Region     string `json:"region"`
	City       string `json:"city"`
	Street     string `json:"street"`
	House      string `json:"house"`
	Apartment  string `json:"apartment"`
	PostalCode string `json:"postalCode"`

	MotherFullName string `json:"motherFullName"`
	MotherPhone    string `json:"motherPhone"`
	FatherFullName string `json:"fatherFullName"`
	FatherPhone    string `json:"fatherPhone"`

	Appendix1ManagerName string `json:"appendix1ManagerName"`
	Appendix2ManagerName string `json:"appendix2ManagerName"`
	Appendix3ManagerName string `json:"appendix3ManagerName"`
	Appendix1RoomNumber  string `json:"appendix1RoomNumber"`
	Appendix2RoomNumber  string `json:"appendix2RoomNumber"`
	PremisesNumber       string `json:"premisesNumber"`

	Appendix1Day   string `json:"appendix1Day"`
	Appendix1Month string `json:"appendix1Month"`
	Appendix1Year  string `json:"appendix1Year"`
	Appendix2Day   string `json:"appendix2Day"`
	Appendix2Month string `json:"appendix2Month"`
	Appendix2Year  string `json:"appendix2Year"`
	Appendix3Day   string `json:"appendix3Day"`
	Appendix3Month string `json:"appendix3Month"`
	Appendix3Year  string `json:"appendix3Year"`

	Inventory            [InventoryRows]InventoryRow `json:"inventory"`
	ElectricalAppliances [ApplianceRows]ApplianceRow `json:"electricalAppliances"`
	PremisesConditions   [PremisesRows]PremisesRow   `json:"premisesConditions"`

	AgreeTerms        bool `json:"agreeTerms"`
	AgreeRules        bool `json:"agreeRules"`
	AgreePersonalData bool `json:"agreePersonalData"`
}

// Profile carries the identity fields of the signed-in student. Non-empty
// profile values always win over a persisted draft.
type Profile struct {
	ID         string `json:"id"`
	Surname    string `json:"surname"`
	Name       string `json:"name"`
	Patronymic string `json:"patronymic"`
	Phone      string `json:"phone"`
	Course     string `json:"course"`
	Faculty    string `json:"faculty"`
	Group      string `json:"group"`
	Dormitory  string `json:"dormitory"`
	Gender     string `json:"gender"`
}

// ManagerNames returns pointers to every copy of the dormitory manager name.
func (s *FormState) ManagerNames() []*string {
	return []*string{&s.ManagerName, &s.Appendix1ManagerName, &s.Appendix2ManagerName, &s.Appendix3ManagerName}
}

// SetRoom writes the room number into the agreement and every appendix copy.
func (s *FormState) SetRoom(room string) {
	s.RoomNumber = room
	s.Appendix1RoomNumber = room
	s.Appendix2RoomNumber = room
	s.PremisesNumber = room
}

// ClearTerm empties the occupancy start and end dates.
func (s *FormState) ClearTerm() {
	s.StartDay, s.StartMonth, s.StartYear = "", "", ""
	s.EndDay, s.EndMonth, s.EndYear = "", "", ""
}

// SetManager writes the manager name into all four copies.
func (s *FormState) SetManager(name string) {
	for _, p := range s.ManagerNames() {
		*p = name
	}
}
