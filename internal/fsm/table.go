package fsm

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

var (
	ErrTableNotTotal   = errors.New("transition table is not total")
	ErrNoneNotIdentity = errors.New("no-event column must map every state to itself")
)

// Table maps (state, event) to the next state. Row i belongs to StateID(i);
// the EvNone column holds identity entries so a lookup is defined for every
// pair, including "nothing happened".
type Table [][NumEvents]StateID

// Next returns the target for (from, ev). Callers must have validated the
// table against the state count.
func (t Table) Next(from StateID, ev Event) StateID {
	return t[from][ev]
}

// Validate checks the table covers exactly numStates rows, every entry
// names an existing state, and the EvNone column is the identity.
func (t Table) Validate(numStates int) error {
	if len(t) != numStates {
		return fmt.Errorf("%w: %d rows for %d states", ErrTableNotTotal, len(t), numStates)
	}
	for from, row := range t {
		for ev, to := range row {
			if to < 0 || int(to) >= numStates {
				return fmt.Errorf("%w: [%d][%s] -> %d out of range", ErrTableNotTotal, from, Event(ev), to)
			}
		}
		if row[EvNone] != StateID(from) {
			return fmt.Errorf("%w: state %d maps to %d", ErrNoneNotIdentity, from, row[EvNone])
		}
	}
	return nil
}

// Write renders the table as aligned text, one row per state.
func (t Table) Write(w io.Writer, states []State) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := []string{"state", "interval"}
	for ev := 0; ev < NumEvents; ev++ {
		header = append(header, Event(ev).String())
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i, row := range t {
		cols := []string{states[i].Name, states[i].Interval.String()}
		for _, to := range row {
			cols = append(cols, states[to].Name)
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	return tw.Flush()
}
