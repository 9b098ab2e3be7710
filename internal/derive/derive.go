// Package derive computes the values the form fills in on its own: manager
// names, dormitory address, occupancy term and room number.
package derive

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"settlement-form-backend/internal/backend"
	"settlement-form-backend/internal/form"
	"settlement-form-backend/internal/parse"
)

// Source is the reference data the engine reads.
type Source interface {
	Dormitory(ctx context.Context, id string) (backend.Dormitory, error)
	Preset(ctx context.Context, dormitoryID, academicYear string) (backend.Preset, error)
	Reservations(ctx context.Context, userID string) ([]backend.Reservation, error)
	SearchRooms(ctx context.Context, q backend.RoomQuery) ([]backend.Room, error)
}

// Notice levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notice is a transient message for the user.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Key identifies the selection a lookup was made for. A result is only
// applied while the form still shows the same selection.
type Key struct {
	UserID       string
	Dormitory    string
	AcademicYear string
}

// KeyOf returns the selection key of s for a user.
func KeyOf(userID string, s *form.FormState) Key {
	return Key{UserID: userID, Dormitory: s.Dormitory, AcademicYear: s.AcademicYear}
}

type roomOutcome int

const (
	roomUntouched roomOutcome = iota
	roomReserved
	roomAutoSelected
	roomCleared
)

// Result holds the outcome of the lookups for one change.
type Result struct {
	Key     Key
	Notices []Notice

	dormitorySet bool
	manager      string
	street       string
	building     string

	termSet bool
	start   time.Time
	end     time.Time

	room       roomOutcome
	roomNumber string
	gender     string
}

// Room returns the room number the result assigns, if any.
func (r Result) Room() (string, bool) {
	switch r.room {
	case roomReserved, roomAutoSelected:
		return r.roomNumber, true
	}
	return "", false
}

// Apply writes the result into s if the selection key still matches. It
// reports whether the result was applied.
func (r Result) Apply(userID string, s *form.FormState) bool {
	return r.ApplyGroups(userID, s, form.TriggerDormitory|form.TriggerPreset|form.TriggerRoom)
}

// ApplyGroups is Apply restricted to the derivations in groups: the
// dormitory group covers manager and address, the preset group the term
// and the room group the room number. A room found by a search is only
// applied while the form shows the gender it was searched for.
func (r Result) ApplyGroups(userID string, s *form.FormState, groups form.Trigger) bool {
	if KeyOf(userID, s) != r.Key {
		return false
	}
	if groups&(form.TriggerDormitory|form.TriggerPreset) == 0 {
		r.dormitorySet = false
	}
	if !groups.Has(form.TriggerPreset) {
		r.termSet = false
	}
	if !groups.Has(form.TriggerRoom) || (r.room != roomReserved && r.gender != s.Gender) {
		r.room = roomUntouched
	}
	if r.dormitorySet {
		s.SetManager(r.manager)
		s.DormStreet = r.street
		s.DormBuilding = r.building
	}
	if r.termSet {
		if r.start.IsZero() {
			s.ClearTerm()
		} else {
			setDate(s, "start", r.start)
			setDate(s, "end", r.end)
		}
	}
	switch r.room {
	case roomReserved:
		applyRoom(s, form.EventReserve, r.roomNumber)
	case roomAutoSelected:
		applyRoom(s, form.EventAutoSelect, r.roomNumber)
	case roomCleared:
		if form.CanAutoFillRoom(s.RoomSource) {
			s.SetRoom("")
			s.RoomSource, _ = form.TransitionRoomSource(s.RoomSource, form.EventReset)
		}
	}
	return true
}

func applyRoom(s *form.FormState, event, room string) {
	next, ok := form.TransitionRoomSource(s.RoomSource, event)
	if !ok {
		return
	}
	s.RoomSource = next
	s.SetRoom(room)
}

func setDate(s *form.FormState, name string, t time.Time) {
	d, _ := form.Triplet(name)
	form.SetDate(s, d, t)
}

// Engine runs the derivation rules against a Source.
type Engine struct {
	src    Source
	logger *zap.Logger
}

// NewEngine creates a derivation engine.
func NewEngine(src Source, logger *zap.Logger) *Engine {
	return &Engine{src: src, logger: logger}
}

// Derive performs the lookups the triggers ask for against a snapshot of
// the form. Lookup failures become notices and clear the dependent
// fields; the returned error is only set when ctx is done.
func (e *Engine) Derive(ctx context.Context, userID string, s form.FormState, triggers form.Trigger) (Result, error) {
	r := Result{Key: KeyOf(userID, &s), gender: s.Gender}
	if s.Dormitory == "" {
		return r, nil
	}

	if triggers.Has(form.TriggerDormitory) || triggers.Has(form.TriggerPreset) {
		e.deriveDormitory(ctx, &r, s, triggers)
	}
	if triggers.Has(form.TriggerRoom) && form.CanAutoFillRoom(s.RoomSource) {
		e.deriveRoom(ctx, &r, userID, s)
	}
	return r, ctx.Err()
}

func (e *Engine) deriveDormitory(ctx context.Context, r *Result, s form.FormState, triggers form.Trigger) {
	dorm, err := e.src.Dormitory(ctx, s.Dormitory)
	if err != nil {
		e.logger.Warn("dormitory lookup failed", zap.String("dormitory", s.Dormitory), zap.Error(err))
		r.dormitorySet = true
		r.termSet = true
		r.notify(LevelError, "Не вдалося завантажити дані гуртожитку")
		return
	}
	r.dormitorySet = true
	r.manager = dorm.ManagerName
	r.street = dorm.Street
	r.building = dorm.Building

	if s.AcademicYear == "" {
		return
	}
	preset, err := e.src.Preset(ctx, s.Dormitory, s.AcademicYear)
	switch {
	case errors.Is(err, backend.ErrNotFound):
		if triggers.Has(form.TriggerPreset) {
			r.termSet = true
			r.notify(LevelWarning, fmt.Sprintf("Для гуртожитку %s немає даних на %s навчальний рік", dorm.Name, s.AcademicYear))
		}
		return
	case err != nil:
		e.logger.Warn("preset lookup failed", zap.String("dormitory", s.Dormitory), zap.String("academic_year", s.AcademicYear), zap.Error(err))
		r.termSet = true
		r.notify(LevelError, "Не вдалося завантажити терміни проживання")
		return
	}

	if preset.Street != "" {
		r.street = preset.Street
		r.building = preset.Building
	}
	if !triggers.Has(form.TriggerPreset) {
		return
	}
	start, startErr := time.Parse(time.DateOnly, preset.StartDate)
	end, endErr := time.Parse(time.DateOnly, preset.EndDate)
	r.termSet = true
	if err := errors.Join(startErr, endErr); err != nil {
		e.logger.Warn("preset has malformed dates", zap.String("dormitory", s.Dormitory), zap.Error(err))
		r.notify(LevelError, "Не вдалося завантажити терміни проживання")
		return
	}
	r.start, r.end = start, end
}

func (e *Engine) deriveRoom(ctx context.Context, r *Result, userID string, s form.FormState) {
	if s.AcademicYear == "" {
		return
	}
	reservations, err := e.src.Reservations(ctx, userID)
	if err != nil {
		e.logger.Warn("reservation lookup failed", zap.String("user_id", userID), zap.Error(err))
		r.room = roomCleared
		r.notify(LevelError, "Не вдалося перевірити бронювання кімнати")
		return
	}
	for _, res := range reservations {
		if res.Status == backend.ReservationConfirmed && res.DormitoryID == s.Dormitory && res.AcademicYear == s.AcademicYear && res.RoomNumber != "" {
			r.room = roomReserved
			r.roomNumber = res.RoomNumber
			return
		}
	}

	if s.Gender == "" {
		return
	}
	rooms, err := e.src.SearchRooms(ctx, backend.RoomQuery{
		DormitoryID:  s.Dormitory,
		Gender:       s.Gender,
		AcademicYear: s.AcademicYear,
	})
	if err != nil {
		e.logger.Warn("room search failed", zap.String("dormitory", s.Dormitory), zap.Error(err))
		r.room = roomCleared
		r.notify(LevelError, "Не вдалося підібрати кімнату")
		return
	}
	room, ok := PickRoom(rooms, s.Gender)
	if !ok {
		r.room = roomCleared
		r.notify(LevelWarning, "Вільних кімнат у гуртожитку немає")
		return
	}
	r.room = roomAutoSelected
	r.roomNumber = room.Label
}

// PickRoom returns the first room with free places that fits gender,
// ordered by floor and then by room label.
func PickRoom(rooms []backend.Room, gender string) (backend.Room, bool) {
	candidates := make([]backend.Room, 0, len(rooms))
	for _, room := range rooms {
		if room.FreePlaces <= 0 {
			continue
		}
		if room.Gender != "" && gender != "" && room.Gender != gender {
			continue
		}
		candidates = append(candidates, room)
	}
	if len(candidates) == 0 {
		return backend.Room{}, false
	}
	slices.SortStableFunc(candidates, func(a, b backend.Room) int {
		return cmp.Or(
			cmp.Compare(a.Floor, b.Floor),
			parse.CompareLabels(a.Label, a.Floor, b.Label, b.Floor),
		)
	})
	return candidates[0], true
}

func (r *Result) notify(level, message string) {
	r.Notices = append(r.Notices, Notice{Level: level, Message: message})
}
