package form

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// Room number source tags.
const (
	SourceUnset       = ""
	SourceManual      = "manual"
	SourceReservation = "reservation"
	SourceAutoSelect  = "auto-select"
)

// Room source events.
const (
	EventEdit       = "edit"
	EventReserve    = "reserve"
	EventAutoSelect = "autoselect"
	EventReset      = "reset"
)

const stateUnset = "unset"

var allSources = []string{stateUnset, SourceManual, SourceReservation, SourceAutoSelect}

func newRoomSourceMachine(tag string) *fsm.FSM {
	initial := tag
	if initial == SourceUnset {
		initial = stateUnset
	}
	return fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: EventEdit, Src: allSources, Dst: SourceManual},
			// A manual value blocks both automatic sources.
			{Name: EventReserve, Src: []string{stateUnset, SourceReservation, SourceAutoSelect}, Dst: SourceReservation},
			{Name: EventAutoSelect, Src: []string{stateUnset, SourceAutoSelect}, Dst: SourceAutoSelect},
			{Name: EventReset, Src: allSources, Dst: stateUnset},
		},
		fsm.Callbacks{},
	)
}

// TransitionRoomSource applies event to the current tag. ok is false when
// the tag does not accept the event, in which case tag is returned as is.
func TransitionRoomSource(tag, event string) (string, bool) {
	machine := newRoomSourceMachine(tag)
	if err := machine.Event(context.Background(), event); err != nil {
		var same fsm.NoTransitionError
		if !errors.As(err, &same) {
			return tag, false
		}
	}
	next := machine.Current()
	if next == stateUnset {
		next = SourceUnset
	}
	return next, true
}

// CanAutoFillRoom reports whether automatic derivation may still set the room.
func CanAutoFillRoom(tag string) bool {
	return tag != SourceManual
}
