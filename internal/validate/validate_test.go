package validate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlement-form-backend/internal/form"
	"settlement-form-backend/internal/form/formtest"
)

var now = time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC)

func TestValidate_CompleteFormIsValid(t *testing.T) {
	s := formtest.Complete()
	tree := Validate(&s, form.Agreement, now)
	assert.True(t, tree.Empty(), "unexpected errors: %v", tree.Strings())
	assert.Equal(t, "25", s.ContractYear, "validation must not modify the form")
}

func TestValidate_InventoryQuantityRequiredIffNamed(t *testing.T) {
	for i := 0; i < form.InventoryRows; i++ {
		s := formtest.Complete()
		s.Inventory[i] = form.InventoryRow{Name: "Тумба"}
		tree := Validate(&s, form.Agreement, now)
		assert.True(t, tree.Has(form.RowPath("inventory", i, "quantity")), "row %d with a name", i)

		s.Inventory[i] = form.InventoryRow{}
		tree = Validate(&s, form.Agreement, now)
		assert.False(t, tree.Has(form.RowPath("inventory", i, "quantity")), "row %d without a name", i)
	}
}

func TestValidate_PremisesCondition(t *testing.T) {
	for i := 0; i < form.PremisesRows; i++ {
		s := formtest.Complete()
		s.PremisesConditions[i].Condition = ""
		s.PremisesConditions[i].Description = ""
		tree := Validate(&s, form.Agreement, now)
		assert.Equal(t, i < form.FixedPremises, tree.Has(form.RowPath("premisesConditions", i, "condition")), "row %d without description", i)

		s.PremisesConditions[i].Description = "Подряпини"
		tree = Validate(&s, form.Agreement, now)
		assert.True(t, tree.Has(form.RowPath("premisesConditions", i, "condition")), "row %d with description", i)
	}
}

func TestValidate_ParentPhones(t *testing.T) {
	testCases := []struct {
		name     string
		variant  form.Variant
		mother   string
		father   string
		expected string
	}{
		{name: "Both empty", variant: form.Agreement, expected: msgNoParentPhone},
		{name: "Mother only", variant: form.Agreement, mother: "671112233"},
		{name: "Father only", variant: form.Agreement, father: "671112233"},
		{name: "Same numbers", variant: form.Agreement, mother: "671112233", father: "671112233", expected: msgSamePhones},
		{name: "Application ten digits", variant: form.Application, mother: "0671112233"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := formtest.Complete()
			s.MotherPhone, s.FatherPhone = tc.mother, tc.father
			s.MotherFullName, s.FatherFullName = "Шевченко Катерина", "Шевченко Григорій"
			tree := Validate(&s, tc.variant, now)

			count := 0
			for _, p := range tree.Paths() {
				if p.Field == form.SyntheticParentPhones {
					count++
				}
			}
			msg, ok := tree.Message(form.FieldPath(form.SyntheticParentPhones))
			if tc.expected == "" {
				assert.False(t, ok)
				assert.Zero(t, count)
			} else {
				assert.Equal(t, tc.expected, msg)
				assert.Equal(t, 1, count)
			}
		})
	}
}

func TestValidate_ParentNameRequiredOnceThePhoneIsComplete(t *testing.T) {
	s := formtest.Complete()
	s.FatherPhone = "67111"
	s.FatherFullName = ""
	tree := Validate(&s, form.Agreement, now)
	assert.False(t, tree.Has(form.FieldPath("fatherFullName")))
	assert.True(t, tree.Has(form.FieldPath("fatherPhone")))

	s.FatherPhone = "671119999"
	tree = Validate(&s, form.Agreement, now)
	msg, ok := tree.Message(form.FieldPath("fatherFullName"))
	require.True(t, ok)
	assert.Equal(t, msgRequired, msg)
	assert.False(t, tree.Has(form.FieldPath("fatherPhone")))
}

func TestValidate_Dates(t *testing.T) {
	s := formtest.Complete()
	s.PassportDay, s.PassportMonth = "31", "02"
	s.EndDay, s.EndMonth, s.EndYear = "01", "08", "25"
	s.ContractYear = "2"
	tree := Validate(&s, form.Agreement, now)

	msg, _ := tree.Message(form.FieldPath("passportDay"))
	assert.Equal(t, msgBadDate, msg)
	msg, _ = tree.Message(form.FieldPath(form.SyntheticDates))
	assert.Equal(t, msgEndBefore, msg)
	assert.True(t, tree.Has(form.FieldPath("contractYear")))
}

func TestValidate_TaxIDDigitsAllRequired(t *testing.T) {
	s := formtest.Complete()
	s.TaxID[3] = ""
	s.TaxID[7] = "x"
	tree := Validate(&s, form.Agreement, now)
	assert.Equal(t, []string{"taxId[3]", "taxId[7]"}, filter(tree.Strings(), "taxId"))
}

func TestValidate_PathsAreInPageOrder(t *testing.T) {
	s := form.NewDefaults().State()
	tree := Validate(&s, form.Agreement, now)
	paths := tree.Strings()

	require.NotEmpty(t, paths)
	assert.Equal(t, "contractNumber", paths[0])
	assert.Less(t, indexOf(paths, "surname"), indexOf(paths, "parentPhones"))
	assert.Less(t, indexOf(paths, "parentPhones"), indexOf(paths, "agreeTerms"))
	assert.Less(t, indexOf(paths, "premisesConditions[0].condition"), indexOf(paths, "premisesConditions[1].condition"))
	assert.Less(t, indexOf(paths, "taxId[0]"), indexOf(paths, "taxId[9]"))
}

func TestValidatePage(t *testing.T) {
	s := form.NewDefaults().State()
	tree := ValidatePage(&s, form.Agreement, 6, now)
	assert.Equal(t, []string{"parentPhones"}, tree.Strings())

	tree = ValidatePage(&s, form.Agreement, 8, now)
	assert.Contains(t, tree.Strings(), "endDay")
	assert.Contains(t, tree.Strings(), "appendix1ManagerName")
	assert.NotContains(t, tree.Strings(), "startDay")
}

func TestErrorTreeJSON(t *testing.T) {
	s := formtest.Complete()
	s.Surname = ""
	s.TaxID[1] = ""
	s.Inventory[2].Quantity = ""
	s.MotherPhone = ""
	tree := Validate(&s, form.Agreement, now)

	raw, err := json.Marshal(tree)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, msgRequired, decoded["surname"])
	assert.Equal(t, msgNoParentPhone, decoded["parentPhones"])

	taxID := decoded["taxId"].([]any)
	require.Len(t, taxID, form.TaxIDLength)
	assert.Nil(t, taxID[0])
	assert.Equal(t, msgRequired, taxID[1])

	inventory := decoded["inventory"].([]any)
	require.Len(t, inventory, form.InventoryRows)
	assert.Nil(t, inventory[0])
	assert.Equal(t, map[string]any{"quantity": msgRequired}, inventory[2])
}

func TestProgress(t *testing.T) {
	s := formtest.Complete()
	p := ProgressOf(&s, form.Agreement)
	assert.Equal(t, p.Required, p.Filled)
	assert.Equal(t, 100, p.Percent)

	s.AgreeTerms = false
	s.Surname = ""
	p = ProgressOf(&s, form.Agreement)
	assert.Equal(t, p.Required-2, p.Filled)
	assert.Less(t, p.Percent, 100)
}

func filter(paths []string, field string) []string {
	var out []string
	for _, p := range paths {
		if pp, err := form.ParsePath(p); err == nil && pp.Field == field {
			out = append(out, p)
		}
	}
	return out
}

func indexOf(paths []string, p string) int {
	for i, v := range paths {
		if v == p {
			return i
		}
	}
	return -1
}
