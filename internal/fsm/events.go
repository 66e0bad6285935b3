package fsm

import "strconv"

// Event is a button press or the absence of one. Values double as the
// column index of a Table.
type Event uint8

const (
	EvPress1 Event = iota
	EvPress2
	EvPress3
	EvNone

	// NumEvents is the width of every Table row.
	NumEvents = int(EvNone) + 1
	// NumInputs is the number of physical inputs that can produce events.
	NumInputs = int(EvNone)
)

// PressEvent maps an input index (0-based) to its press event. Indices out
// of range map to EvNone.
func PressEvent(input int) Event {
	if input < 0 || input >= NumInputs {
		return EvNone
	}
	return Event(input)
}

func (e Event) String() string {
	switch e {
	case EvPress1:
		return "press-1"
	case EvPress2:
		return "press-2"
	case EvPress3:
		return "press-3"
	case EvNone:
		return "none"
	default:
		return "event(" + strconv.Itoa(int(e)) + ")"
	}
}
