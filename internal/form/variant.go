package form

import (
	"errors"
	"fmt"
)

// ErrUnknownVariant is returned when a variant name is not registered.
var ErrUnknownVariant = errors.New("unknown form variant")

// Variant parameterizes the shared engine for one of the two legal forms.
type Variant struct {
	Name string
	// StorageKey names the persisted draft.
	StorageKey string
	// PhoneDigits is the length of every phone field.
	PhoneDigits int
	// MirrorAppendixDates copies the contract date into the appendix
	// date duplicates as the user types.
	MirrorAppendixDates bool
	// LiveValidation re-validates the form after every change.
	LiveValidation bool
}

var (
	// Agreement is the settlement agreement signed with the dormitory.
	Agreement = Variant{
		Name:                "agreement",
		StorageKey:          "settlement-agreement-form",
		PhoneDigits:         9,
		MirrorAppendixDates: true,
	}
	// Application is the settlement application filed before the agreement.
	Application = Variant{
		Name:           "application",
		StorageKey:     "settlement-application-form",
		PhoneDigits:    10,
		LiveValidation: true,
	}
)

var variants = map[string]Variant{
	Agreement.Name:   Agreement,
	Application.Name: Application,
}

// LookupVariant finds a variant by name.
func LookupVariant(name string) (Variant, error) {
	v, ok := variants[name]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}

// Variants lists the registered variants.
func Variants() []Variant {
	return []Variant{Agreement, Application}
}
