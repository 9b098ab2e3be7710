package form

import (
	"strconv"
	"time"
)

// DateTriplet names the day, month and year fields of one on-screen date.
type DateTriplet struct {
	Name  string
	Day   string
	Month string
	Year  string
}

// DateTriplets lists every date of the form. Years are typed as two digits.
var DateTriplets = []DateTriplet{
	{Name: "contract", Day: "contractDay", Month: "contractMonth", Year: "contractYear"},
	{Name: "start", Day: "startDay", Month: "startMonth", Year: "startYear"},
	{Name: "end", Day: "endDay", Month: "endMonth", Year: "endYear"},
	{Name: "passport", Day: "passportDay", Month: "passportMonth", Year: "passportYear"},
	{Name: "appendix1", Day: "appendix1Day", Month: "appendix1Month", Year: "appendix1Year"},
	{Name: "appendix2", Day: "appendix2Day", Month: "appendix2Month", Year: "appendix2Year"},
	{Name: "appendix3", Day: "appendix3Day", Month: "appendix3Month", Year: "appendix3Year"},
}

// ExpandYear turns a two-digit year into a four-digit one in the century
// of now. Anything that is not exactly two digits is returned unchanged,
// which makes the expansion idempotent.
func ExpandYear(yy string, now time.Time) string {
	if len(yy) != 2 {
		return yy
	}
	n, err := strconv.Atoi(yy)
	if err != nil {
		return yy
	}
	return strconv.Itoa(now.Year()/100*100 + n)
}

// ExpandYears rewrites every year field of s to four digits.
func ExpandYears(s *FormState, now time.Time) {
	for _, d := range DateTriplets {
		p := FieldPath(d.Year)
		v, _ := Get(s, p)
		_ = Set(s, p, ExpandYear(v, now))
	}
}

// AcademicYearAt returns the academic year running at t, e.g. "2025-2026".
// A new academic year starts in July.
func AcademicYearAt(t time.Time) string {
	start := t.Year()
	if t.Month() < time.July {
		start--
	}
	return strconv.Itoa(start) + "-" + strconv.Itoa(start+1)
}

// TwoDigitYear renders the last two digits of a year.
func TwoDigitYear(year int) string {
	s := strconv.Itoa(year % 100)
	if len(s) == 1 {
		s = "0" + s
	}
	return s
}

// SetDate fills a date triplet from t, with a two-digit year.
func SetDate(s *FormState, d DateTriplet, t time.Time) {
	_ = Set(s, FieldPath(d.Day), pad2(t.Day()))
	_ = Set(s, FieldPath(d.Month), pad2(int(t.Month())))
	_ = Set(s, FieldPath(d.Year), TwoDigitYear(t.Year()))
}

// Triplet finds a date triplet by name.
func Triplet(name string) (DateTriplet, bool) {
	for _, d := range DateTriplets {
		if d.Name == name {
			return d, true
		}
	}
	return DateTriplet{}, false
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
