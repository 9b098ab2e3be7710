package form

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// Trigger is a bit set of derivations a change requires.
type Trigger uint8

const (
	// TriggerDormitory refreshes manager name and base address.
	TriggerDormitory Trigger = 1 << iota
	// TriggerPreset refreshes occupancy dates and address override.
	TriggerPreset
	// TriggerRoom re-runs reservation lookup and room auto-selection.
	TriggerRoom
	// TriggerGroups tells the client to reload the group list.
	TriggerGroups
)

// Has reports whether t contains every bit of other.
func (t Trigger) Has(other Trigger) bool {
	return t&other == other
}

// Change describes the outcome of one field edit.
type Change struct {
	Path     Path
	Value    string
	Triggers Trigger
}

type fieldClass int

const (
	classText fieldClass = iota
	className
	classDigits
	classYear
	classPhone
	classPassportSeries
	classFreeText
	classEmail
	classChoice
)

type fieldRule struct {
	class  fieldClass
	maxLen int
}

// fieldRules maps a path key to its normalization. Keys not listed are
// plain text capped at 255 runes.
var fieldRules = map[string]fieldRule{
	"surname":              {class: className, maxLen: 50},
	"name":                 {class: className, maxLen: 50},
	"patronymic":           {class: className, maxLen: 50},
	"motherFullName":       {class: className, maxLen: 100},
	"fatherFullName":       {class: className, maxLen: 100},
	"managerName":          {class: className, maxLen: 100},
	"appendix1ManagerName": {class: className, maxLen: 100},
	"appendix2ManagerName": {class: className, maxLen: 100},
	"appendix3ManagerName": {class: className, maxLen: 100},

	"phone":       {class: classPhone},
	"motherPhone": {class: classPhone},
	"fatherPhone": {class: classPhone},
	"email":       {class: classEmail, maxLen: 254},

	"contractNumber":   {class: classDigits, maxLen: 8},
	"course":           {class: classDigits, maxLen: 1},
	"apartment":        {class: classDigits, maxLen: 5},
	"postalCode":       {class: classDigits, maxLen: 5},
	"passportNumber":   {class: classDigits, maxLen: 9},
	"passportSeries":   {class: classPassportSeries, maxLen: 2},
	"passportIssuedBy": {class: classFreeText, maxLen: 200},
	"taxId":            {class: classDigits, maxLen: 1},

	"inventory.name":                 {class: classFreeText, maxLen: 60},
	"inventory.quantity":             {class: classDigits, maxLen: 3},
	"inventory.note":                 {class: classFreeText, maxLen: 120},
	"electricalAppliances.name":      {class: classFreeText, maxLen: 60},
	"electricalAppliances.power":     {class: classDigits, maxLen: 5},
	"electricalAppliances.quantity":  {class: classDigits, maxLen: 2},
	"premisesConditions.name":        {class: classFreeText, maxLen: 60},
	"premisesConditions.description": {class: classFreeText, maxLen: 200},
	"premisesConditions.condition":   {class: classChoice},

	"gender":       {class: classChoice},
	"faculty":      {class: classChoice},
	"group":        {class: classChoice},
	"dormitory":    {class: classChoice},
	"academicYear": {class: classChoice},
	"roomNumber":   {class: classText, maxLen: 10},
	"region":       {class: classFreeText, maxLen: 100},
	"city":         {class: classFreeText, maxLen: 100},
	"street":       {class: classFreeText, maxLen: 100},
	"house":        {class: classText, maxLen: 10},
}

func init() {
	for _, d := range DateTriplets {
		fieldRules[d.Day] = fieldRule{class: classDigits, maxLen: 2}
		fieldRules[d.Month] = fieldRule{class: classDigits, maxLen: 2}
		fieldRules[d.Year] = fieldRule{class: classYear, maxLen: 2}
	}
}

var textPolicy = bluemonday.StrictPolicy()

// Normalize applies the field-class rule of p to raw.
func Normalize(v Variant, p Path, raw string) string {
	rule, ok := fieldRules[p.Key()]
	if !ok {
		rule = fieldRule{class: classText, maxLen: 255}
	}
	switch rule.class {
	case className:
		return clamp(titleCase(keepNameRunes(raw)), rule.maxLen)
	case classDigits, classYear:
		return clamp(digitsOnly(raw), rule.maxLen)
	case classPhone:
		return clamp(digitsOnly(raw), v.PhoneDigits)
	case classPassportSeries:
		return clamp(strings.ToUpper(lettersOnly(raw)), rule.maxLen)
	case classFreeText:
		return clamp(stripMarkup(raw), rule.maxLen)
	case classEmail:
		return clamp(strings.ToLower(strings.TrimSpace(raw)), rule.maxLen)
	case classChoice:
		return strings.TrimSpace(raw)
	}
	return clamp(raw, rule.maxLen)
}

// ApplyChange normalizes raw, writes it at p and performs the synchronous
// side effects of the edit. The returned state is a modified copy.
func ApplyChange(s FormState, v Variant, p Path, raw string) (FormState, Change, error) {
	if err := Resolve(p); err != nil {
		return s, Change{}, err
	}
	value := raw
	if !IsBool(p.Field) {
		value = Normalize(v, p, raw)
	}
	previous, _ := Get(&s, p)
	if err := Set(&s, p, value); err != nil {
		return s, Change{}, err
	}
	change := Change{Path: p, Value: value}
	if previous == value {
		return s, change, nil
	}

	switch p.Field {
	case "faculty":
		s.Group = ""
		s.Course = ""
		change.Triggers |= TriggerGroups
	case "dormitory":
		clearDormitoryDependents(&s)
		change.Triggers |= TriggerDormitory | TriggerPreset | TriggerRoom
	case "academicYear":
		s.ClearTerm()
		clearRoom(&s)
		change.Triggers |= TriggerPreset | TriggerRoom
	case "gender":
		if CanAutoFillRoom(s.RoomSource) {
			clearRoom(&s)
			change.Triggers |= TriggerRoom
		}
	case "roomNumber":
		s.SetRoom(value)
		event := EventEdit
		if value == "" {
			event = EventReset
			change.Triggers |= TriggerRoom
		}
		s.RoomSource, _ = TransitionRoomSource(s.RoomSource, event)
	case "contractDay", "contractMonth", "contractYear":
		if v.MirrorAppendixDates {
			mirrorContractDate(&s)
		}
	}
	return s, change, nil
}

func clearRoom(s *FormState) {
	s.SetRoom("")
	s.RoomSource, _ = TransitionRoomSource(s.RoomSource, EventReset)
}

func clearDormitoryDependents(s *FormState) {
	clearRoom(s)
	s.ClearTerm()
	s.DormStreet = ""
	s.DormBuilding = ""
	s.SetManager("")
}

func mirrorContractDate(s *FormState) {
	s.Appendix1Day, s.Appendix2Day, s.Appendix3Day = s.ContractDay, s.ContractDay, s.ContractDay
	s.Appendix1Month, s.Appendix2Month, s.Appendix3Month = s.ContractMonth, s.ContractMonth, s.ContractMonth
	s.Appendix1Year, s.Appendix2Year, s.Appendix3Year = s.ContractYear, s.ContractYear, s.ContractYear
}

func isNameRune(r rune) bool {
	switch r {
	case ' ', '-', '\'', '’', 'ʼ':
		return true
	}
	return unicode.In(r, unicode.Cyrillic, unicode.Latin) && unicode.IsLetter(r)
}

func keepNameRunes(raw string) string {
	var b strings.Builder
	prevSpace := true
	for _, r := range raw {
		if !isNameRune(r) {
			continue
		}
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// titleCase upper-cases the first letter of every word, words being
// separated by spaces or hyphens, and lower-cases the rest. Trailing
// separators are kept so the user can continue typing.
func titleCase(s string) string {
	var b strings.Builder
	start := true
	for _, r := range s {
		switch {
		case r == ' ' || r == '-':
			start = true
		case start:
			r = unicode.ToUpper(r)
			start = false
		default:
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func digitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func lettersOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripMarkup(raw string) string {
	return html.UnescapeString(textPolicy.Sanitize(raw))
}

func clamp(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// ValueString converts a decoded JSON change value to the string form
// accepted by ApplyChange.
func ValueString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("unsupported value type %T", raw)
}
