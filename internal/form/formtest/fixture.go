// Package formtest provides form fixtures for tests.
package formtest

import "settlement-form-backend/internal/form"

// Complete returns an agreement form that passes validation when checked
// during the 2025-2026 academic year.
func Complete() form.FormState {
	s := form.NewDefaults().State()

	s.ContractNumber = "1024"
	s.ContractDay, s.ContractMonth, s.ContractYear = "01", "09", "25"
	s.AcademicYear = "2025-2026"
	s.Dormitory = "d1"
	s.SetRoom("305")
	s.RoomSource = form.SourceAutoSelect

	s.Surname = "Шевченко"
	s.Name = "Тарас"
	s.Patronymic = "Григорович"
	s.Faculty = "f1"
	s.Group = "g1"
	s.Course = "2"
	s.Gender = "male"
	s.Phone = "671234567"
	s.Email = "taras@example.com"

	s.StartDay, s.StartMonth, s.StartYear = "01", "09", "25"
	s.EndDay, s.EndMonth, s.EndYear = "30", "06", "26"
	s.DormStreet = "вул. Тестова"
	s.DormBuilding = "5"

	s.PassportNumber = "123456789"
	s.PassportIssuedBy = "1234"
	s.PassportDay, s.PassportMonth, s.PassportYear = "15", "03", "20"

	for i := range s.TaxID {
		s.TaxID[i] = string(rune('0' + (i+1)%10))
	}

	s.Region = "Київська"
	s.City = "Київ"
	s.Street = "Хрещатик"
	s.House = "1"
	s.PostalCode = "01001"

	s.MotherFullName = "Шевченко Катерина"
	s.MotherPhone = "671112233"

	s.SetManager("Коваль Олена Петрівна")
	s.AgreeTerms = true

	s.Appendix1Day, s.Appendix1Month, s.Appendix1Year = "01", "09", "25"
	s.Appendix2Day, s.Appendix2Month, s.Appendix2Year = "01", "09", "25"
	s.Appendix3Day, s.Appendix3Month, s.Appendix3Year = "01", "09", "25"

	for i := 0; i < form.FixedPremises; i++ {
		s.PremisesConditions[i].Condition = "good"
	}
	s.AgreeRules = true
	s.AgreePersonalData = true
	return s
}
