package submit

import (
	"encoding/json"
	"fmt"
	"time"

	"settlement-form-backend/internal/form"
)

// Encrypter seals one field value.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// SensitiveFields are sent encrypted. List fields are encrypted per slot.
var SensitiveFields = []string{
	"surname",
	"name",
	"patronymic",
	"motherFullName",
	"motherPhone",
	"fatherFullName",
	"fatherPhone",
	"passportSeries",
	"passportNumber",
	"passportIssuedBy",
	"passportDay",
	"passportMonth",
	"passportYear",
	"taxId",
}

// displayOnly fields exist only to render the appendix pages.
var displayOnly = []string{
	"roomSource",
	"appendix1Day", "appendix1Month", "appendix1Year",
	"appendix2Day", "appendix2Month", "appendix2Year",
	"appendix3Day", "appendix3Month", "appendix3Year",
}

// FieldError reports a field that could not be encrypted. The field is
// sent empty.
type FieldError struct {
	Path form.Path
	Err  error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("encrypting %s: %v", e.Path, e.Err)
}

func (e FieldError) Unwrap() error {
	return e.Err
}

// BuildPayload turns a form into the submission payload: years expanded to
// four digits, display-only fields dropped and sensitive fields encrypted.
// A field that fails to encrypt is sent as "" and reported.
func BuildPayload(s form.FormState, now time.Time, enc Encrypter) (map[string]any, []FieldError, error) {
	form.ExpandYears(&s, now)

	raw, err := json.Marshal(&s)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal form: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal form: %w", err)
	}
	for _, field := range displayOnly {
		delete(payload, field)
	}

	var failures []FieldError
	seal := func(p form.Path, value any) any {
		plaintext, _ := value.(string)
		ciphertext, err := enc.Encrypt(plaintext)
		if err != nil {
			failures = append(failures, FieldError{Path: p, Err: err})
			return ""
		}
		return ciphertext
	}
	for _, field := range SensitiveFields {
		switch v := payload[field].(type) {
		case []any:
			for i := range v {
				v[i] = seal(form.ItemPath(field, i), v[i])
			}
		case string:
			payload[field] = seal(form.FieldPath(field), v)
		}
	}
	return payload, failures, nil
}
