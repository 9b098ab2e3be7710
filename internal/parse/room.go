package parse

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// "3-05", "3 - 5б": floor, room on the floor, optional letter
	blockRe = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)\s*(\p{L}?)$`)
	// "305", "1105а": floor is the number divided by 100
	plainRe = regexp.MustCompile(`^(\d+)\s*(\p{L}?)$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// ParsedRoom holds the structured parts of a room label.
type ParsedRoom struct {
	Floor  int
	Number int
	Suffix string
}

// ParseRoom extracts floor, number and letter suffix from a room label.
// floorHint is used when the label does not encode a floor.
func ParseRoom(raw string, floorHint int) (ParsedRoom, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "№", "")
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))

	if m := blockRe.FindStringSubmatch(s); m != nil {
		floor, errFloor := strconv.Atoi(m[1])
		number, errNumber := strconv.Atoi(m[2])
		if errFloor == nil && errNumber == nil {
			return ParsedRoom{Floor: floor, Number: floor*100 + number, Suffix: strings.ToLower(m[3])}, nil
		}
	}

	m := plainRe.FindStringSubmatch(s)
	if m == nil {
		return ParsedRoom{}, fmt.Errorf("unable to parse room label: %q", raw)
	}
	number, err := strconv.Atoi(m[1])
	if err != nil {
		return ParsedRoom{}, fmt.Errorf("unable to parse room number from %q: %w", raw, err)
	}
	floor := number / 100
	if floor == 0 {
		floor = floorHint
	}
	if floor == 0 {
		return ParsedRoom{}, fmt.Errorf("unable to parse floor from room label: %q", raw)
	}
	return ParsedRoom{Floor: floor, Number: number, Suffix: strings.ToLower(m[2])}, nil
}

// Compare orders rooms by floor, then numerically by number, then by suffix.
func Compare(a, b ParsedRoom) int {
	if c := cmp.Compare(a.Floor, b.Floor); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Number, b.Number); c != 0 {
		return c
	}
	return strings.Compare(a.Suffix, b.Suffix)
}

// CompareLabels orders two raw labels numerically where possible. Labels
// that cannot be parsed sort after parsable ones, lexically.
func CompareLabels(a string, aFloor int, b string, bFloor int) int {
	pa, errA := ParseRoom(a, aFloor)
	pb, errB := ParseRoom(b, bFloor)
	switch {
	case errA == nil && errB == nil:
		if aFloor > 0 && bFloor > 0 {
			pa.Floor, pb.Floor = aFloor, bFloor
		}
		return Compare(pa, pb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}
