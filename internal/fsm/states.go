package fsm

import (
	"time"

	"github.com/librescoot/librefsm"
)

// StateID indexes the rows of a Table.
type StateID int

// Hooks are the three per-state actions. Do runs once per tick and must
// return promptly; Enter and Exit run only on a real state change.
type Hooks interface {
	Enter() error
	Do() error
	Exit() error
}

// HookFuncs adapts optional functions to Hooks. Nil fields are no-ops.
type HookFuncs struct {
	EnterFn func() error
	DoFn    func() error
	ExitFn  func() error
}

func (h HookFuncs) Enter() error {
	if h.EnterFn == nil {
		return nil
	}
	return h.EnterFn()
}

func (h HookFuncs) Do() error {
	if h.DoFn == nil {
		return nil
	}
	return h.DoFn()
}

func (h HookFuncs) Exit() error {
	if h.ExitFn == nil {
		return nil
	}
	return h.ExitFn()
}

// State is a read-only descriptor. ID must equal the descriptor's index in
// the slice handed to New.
type State struct {
	ID       StateID
	Name     string
	Hooks    Hooks
	Interval time.Duration
}

func (s State) librefsmID() librefsm.StateID {
	return librefsm.StateID(s.Name)
}
