package validate

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var formatPatterns = map[string]*regexp.Regexp{
	"day":            regexp.MustCompile(`^(0?[1-9]|[12]\d|3[01])$`),
	"month":          regexp.MustCompile(`^(0?[1-9]|1[0-2])$`),
	"year4":          regexp.MustCompile(`^(19|20)\d{2}$`),
	"digit":          regexp.MustCompile(`^\d$`),
	"course":         regexp.MustCompile(`^[1-6]$`),
	"passportseries": regexp.MustCompile(`^[A-ZА-ЯІЇЄҐ]{2}$`),
	"passportnumber": regexp.MustCompile(`^(\d{6}|\d{9})$`),
	"postalcode":     regexp.MustCompile(`^\d{5}$`),
	"roomno":         regexp.MustCompile(`^\d{1,4}(-\d{1,3})?\p{L}?$`),
	"phone9":         regexp.MustCompile(`^\d{9}$`),
	"phone10":        regexp.MustCompile(`^\d{10}$`),
	"alphaname":      regexp.MustCompile(`^[A-Za-zА-ЩЬЮЯҐЄІЇа-щьюяґєії'’ʼ -]+$`),
}

// newFormatValidator returns a validator with the form's custom tags.
func newFormatValidator() *validator.Validate {
	v := validator.New()
	for tag, re := range formatPatterns {
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		}); err != nil {
			panic(err)
		}
	}
	return v
}

// Messages shown to the user.
const (
	msgRequired      = "Обов'язкове поле"
	msgFormat        = "Невірний формат"
	msgTooLong       = "Занадто довге значення"
	msgConsent       = "Потрібна ваша згода"
	msgBadDate       = "Такої дати не існує"
	msgEndBefore     = "Дата закінчення має бути пізніше дати початку"
	msgNoParentPhone = "Вкажіть телефон хоча б одного з батьків"
	msgSamePhones    = "Телефони батьків не можуть збігатися"
)

// formatMessage turns a validator failure into a user-facing message.
func formatMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Tag() {
		case "max":
			return msgTooLong
		case "required":
			return msgRequired
		}
	}
	return msgFormat
}
