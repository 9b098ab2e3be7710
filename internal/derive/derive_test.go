package derive

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"settlement-form-backend/internal/backend"
	"settlement-form-backend/internal/form"
)

// fakeSource is an in-memory Source.
type fakeSource struct {
	dormitories  map[string]backend.Dormitory
	presets      map[string]backend.Preset
	reservations []backend.Reservation
	rooms        []backend.Room
	failRooms    bool
	searched     int
}

func (f *fakeSource) Dormitory(_ context.Context, id string) (backend.Dormitory, error) {
	d, ok := f.dormitories[id]
	if !ok {
		return backend.Dormitory{}, fmt.Errorf("dormitory %s: %w", id, backend.ErrNotFound)
	}
	return d, nil
}

func (f *fakeSource) Preset(_ context.Context, dormitoryID, academicYear string) (backend.Preset, error) {
	p, ok := f.presets[dormitoryID+"/"+academicYear]
	if !ok {
		return backend.Preset{}, backend.ErrNotFound
	}
	return p, nil
}

func (f *fakeSource) Reservations(_ context.Context, _ string) ([]backend.Reservation, error) {
	return f.reservations, nil
}

func (f *fakeSource) SearchRooms(_ context.Context, q backend.RoomQuery) ([]backend.Room, error) {
	f.searched++
	if f.failRooms {
		return nil, errors.New("upstream unavailable")
	}
	var out []backend.Room
	for _, r := range f.rooms {
		if r.DormitoryID == q.DormitoryID {
			out = append(out, r)
		}
	}
	return out, nil
}

func newSource() *fakeSource {
	return &fakeSource{
		dormitories: map[string]backend.Dormitory{
			"d1": {ID: "d1", Name: "№1", Street: "вул. Базова", Building: "1", ManagerName: "Коваль Олена Петрівна"},
			"d2": {ID: "d2", Name: "№2", Street: "вул. Друга", Building: "2", ManagerName: "Бондар Іван"},
		},
		presets: map[string]backend.Preset{
			"d1/2025-2026": {
				DormitoryID: "d1", AcademicYear: "2025-2026",
				StartDate: "2025-09-01", EndDate: "2026-06-30",
				Street: "вул. Пресетна", Building: "7",
			},
		},
		rooms: []backend.Room{
			{ID: "a", DormitoryID: "d1", Label: "410", Floor: 4, Gender: "female", FreePlaces: 1},
			{ID: "b", DormitoryID: "d1", Label: "305", Floor: 3, Gender: "female", FreePlaces: 2},
			{ID: "c", DormitoryID: "d1", Label: "210", Floor: 2, Gender: "male", FreePlaces: 3},
			{ID: "d", DormitoryID: "d1", Label: "302", Floor: 3, Gender: "female", FreePlaces: 0},
			{ID: "e", DormitoryID: "d1", Label: "305а", Floor: 3, Gender: "female", FreePlaces: 1},
		},
	}
}

func pickDormitory(t *testing.T, s form.FormState, dorm string) (form.FormState, form.Change) {
	t.Helper()
	next, change, err := form.ApplyChange(s, form.Agreement, form.FieldPath("dormitory"), dorm)
	require.NoError(t, err)
	return next, change
}

func baseState() form.FormState {
	s := form.NewDefaults().State()
	s.AcademicYear = "2025-2026"
	s.Gender = "female"
	return s
}

func TestDerive_PresetAndAutoSelectedRoom(t *testing.T) {
	engine := NewEngine(newSource(), zap.NewNop())
	s, change := pickDormitory(t, baseState(), "d1")

	result, err := engine.Derive(context.Background(), "u1", s, change.Triggers)
	require.NoError(t, err)
	require.True(t, result.Apply("u1", &s))

	assert.Equal(t, "вул. Пресетна", s.DormStreet)
	assert.Equal(t, "7", s.DormBuilding)
	assert.Equal(t, []string{"01", "09", "25"}, []string{s.StartDay, s.StartMonth, s.StartYear})
	assert.Equal(t, []string{"30", "06", "26"}, []string{s.EndDay, s.EndMonth, s.EndYear})
	for _, name := range s.ManagerNames() {
		assert.Equal(t, "Коваль Олена Петрівна", *name)
	}

	assert.Equal(t, "305", s.RoomNumber)
	assert.Equal(t, "305", s.Appendix1RoomNumber)
	assert.Equal(t, "305", s.Appendix2RoomNumber)
	assert.Equal(t, "305", s.PremisesNumber)
	assert.Equal(t, form.SourceAutoSelect, s.RoomSource)
	assert.Empty(t, result.Notices)
}

func TestDerive_ConfirmedReservationWins(t *testing.T) {
	src := newSource()
	src.reservations = []backend.Reservation{
		{DormitoryID: "d1", AcademicYear: "2025-2026", RoomNumber: "512", Status: backend.ReservationPending},
		{DormitoryID: "d1", AcademicYear: "2025-2026", RoomNumber: "410", Status: backend.ReservationConfirmed},
	}
	engine := NewEngine(src, zap.NewNop())
	s, change := pickDormitory(t, baseState(), "d1")

	result, err := engine.Derive(context.Background(), "u1", s, change.Triggers)
	require.NoError(t, err)
	require.True(t, result.Apply("u1", &s))

	assert.Equal(t, "410", s.RoomNumber)
	assert.Equal(t, "410", s.PremisesNumber)
	assert.Equal(t, form.SourceReservation, s.RoomSource)
	assert.Zero(t, src.searched)
}

func TestDerive_ManualRoomBlocksAutoFill(t *testing.T) {
	engine := NewEngine(newSource(), zap.NewNop())
	s, _ := pickDormitory(t, baseState(), "d1")
	s, _, err := form.ApplyChange(s, form.Agreement, form.FieldPath("roomNumber"), "777")
	require.NoError(t, err)
	require.Equal(t, form.SourceManual, s.RoomSource)

	s, change, err := form.ApplyChange(s, form.Agreement, form.FieldPath("gender"), "male")
	require.NoError(t, err)
	assert.False(t, change.Triggers.Has(form.TriggerRoom))

	result, err := engine.Derive(context.Background(), "u1", s, form.TriggerRoom)
	require.NoError(t, err)
	require.True(t, result.Apply("u1", &s))
	assert.Equal(t, "777", s.RoomNumber)
	assert.Equal(t, form.SourceManual, s.RoomSource)
}

func TestDerive_ManualEditDuringLookupWins(t *testing.T) {
	engine := NewEngine(newSource(), zap.NewNop())
	s, change := pickDormitory(t, baseState(), "d1")

	result, err := engine.Derive(context.Background(), "u1", s, change.Triggers)
	require.NoError(t, err)

	s, _, err = form.ApplyChange(s, form.Agreement, form.FieldPath("roomNumber"), "101")
	require.NoError(t, err)
	require.True(t, result.Apply("u1", &s))
	assert.Equal(t, "101", s.RoomNumber)
	assert.Equal(t, form.SourceManual, s.RoomSource)
}

func TestDerive_StaleResultIsDropped(t *testing.T) {
	engine := NewEngine(newSource(), zap.NewNop())
	s, change := pickDormitory(t, baseState(), "d1")

	stale, err := engine.Derive(context.Background(), "u1", s, change.Triggers)
	require.NoError(t, err)

	s, change = pickDormitory(t, s, "d2")
	fresh, err := engine.Derive(context.Background(), "u1", s, change.Triggers)
	require.NoError(t, err)

	assert.False(t, stale.Apply("u1", &s))
	assert.Empty(t, s.ManagerName)
	require.True(t, fresh.Apply("u1", &s))
	assert.Equal(t, "Бондар Іван", s.ManagerName)
	assert.Equal(t, "вул. Друга", s.DormStreet)
}

func TestDerive_RoomForPreviousGenderIsDropped(t *testing.T) {
	engine := NewEngine(newSource(), zap.NewNop())
	s, change := pickDormitory(t, baseState(), "d1")

	stale, err := engine.Derive(context.Background(), "u1", s, change.Triggers)
	require.NoError(t, err)

	s, change, err = form.ApplyChange(s, form.Agreement, form.FieldPath("gender"), "male")
	require.NoError(t, err)
	require.True(t, change.Triggers.Has(form.TriggerRoom))
	fresh, err := engine.Derive(context.Background(), "u1", s, change.Triggers)
	require.NoError(t, err)
	require.True(t, fresh.Apply("u1", &s))
	require.Equal(t, "210", s.RoomNumber)

	require.True(t, stale.Apply("u1", &s))
	assert.Equal(t, "210", s.RoomNumber)
	assert.Equal(t, form.SourceAutoSelect, s.RoomSource)
	assert.Equal(t, "Коваль Олена Петрівна", s.ManagerName)
	assert.Equal(t, "30", s.EndDay)
}

func TestDerive_ApplyGroups(t *testing.T) {
	engine := NewEngine(newSource(), zap.NewNop())
	s, change := pickDormitory(t, baseState(), "d1")

	result, err := engine.Derive(context.Background(), "u1", s, change.Triggers)
	require.NoError(t, err)

	onlyRoom := s
	require.True(t, result.ApplyGroups("u1", &onlyRoom, form.TriggerRoom))
	assert.Equal(t, "305", onlyRoom.RoomNumber)
	assert.Empty(t, onlyRoom.ManagerName)
	assert.Empty(t, onlyRoom.StartDay)

	withoutRoom := s
	require.True(t, result.ApplyGroups("u1", &withoutRoom, form.TriggerDormitory|form.TriggerPreset))
	assert.Empty(t, withoutRoom.RoomNumber)
	assert.Equal(t, "вул. Пресетна", withoutRoom.DormStreet)
	assert.Equal(t, "01", withoutRoom.StartDay)
}

func TestDerive_MissingPresetClearsTerm(t *testing.T) {
	engine := NewEngine(newSource(), zap.NewNop())
	s := baseState()
	s.StartDay, s.StartMonth, s.StartYear = "01", "09", "25"
	s, change := pickDormitory(t, s, "d2")

	result, err := engine.Derive(context.Background(), "u1", s, change.Triggers)
	require.NoError(t, err)
	require.True(t, result.Apply("u1", &s))

	assert.Empty(t, s.StartDay)
	assert.Equal(t, "вул. Друга", s.DormStreet)
	require.NotEmpty(t, result.Notices)
	assert.Equal(t, LevelWarning, result.Notices[0].Level)
}

func TestDerive_RoomSearchFailureClearsRoom(t *testing.T) {
	src := newSource()
	src.failRooms = true
	engine := NewEngine(src, zap.NewNop())
	s, change := pickDormitory(t, baseState(), "d1")

	result, err := engine.Derive(context.Background(), "u1", s, change.Triggers)
	require.NoError(t, err)
	require.True(t, result.Apply("u1", &s))

	assert.Empty(t, s.RoomNumber)
	assert.Equal(t, form.SourceUnset, s.RoomSource)
	assert.Equal(t, "вул. Пресетна", s.DormStreet)
	require.Len(t, result.Notices, 1)
	assert.Equal(t, LevelError, result.Notices[0].Level)
}

func TestDerive_UnknownDormitory(t *testing.T) {
	engine := NewEngine(newSource(), zap.NewNop())
	s, change := pickDormitory(t, baseState(), "missing")

	result, err := engine.Derive(context.Background(), "u1", s, change.Triggers)
	require.NoError(t, err)
	require.True(t, result.Apply("u1", &s))
	assert.Empty(t, s.ManagerName)
	assert.NotEmpty(t, result.Notices)
}

func TestPickRoom(t *testing.T) {
	rooms := []backend.Room{
		{Label: "1010", Floor: 10, FreePlaces: 1},
		{Label: "205б", Floor: 2, FreePlaces: 1},
		{Label: "205а", Floor: 2, FreePlaces: 1},
		{Label: "110", Floor: 1, FreePlaces: 0},
		{Label: "120", Floor: 1, Gender: "male", FreePlaces: 1},
	}

	room, ok := PickRoom(rooms, "female")
	require.True(t, ok)
	assert.Equal(t, "205а", room.Label)

	room, ok = PickRoom(rooms, "male")
	require.True(t, ok)
	assert.Equal(t, "120", room.Label)

	_, ok = PickRoom(rooms[3:4], "female")
	assert.False(t, ok)
}
