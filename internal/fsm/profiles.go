package fsm

import (
	"fmt"
	"sort"
	"time"
)

// Behavior names what a state does to the outputs while active.
type Behavior int

const (
	BehaviorForward Behavior = iota
	BehaviorToggle
	BehaviorBackward
	BehaviorBreathe
)

func (b Behavior) String() string {
	switch b {
	case BehaviorForward:
		return "forward"
	case BehaviorToggle:
		return "toggle"
	case BehaviorBackward:
		return "backward"
	case BehaviorBreathe:
		return "breathe"
	default:
		return fmt.Sprintf("behavior(%d)", int(b))
	}
}

// StateSpec is the hook-less part of a state descriptor.
type StateSpec struct {
	Name     string
	Behavior Behavior
	Interval time.Duration
}

// Profile is one configuration of the engine: states, table, initial state.
type Profile struct {
	Name    string
	States  []StateSpec
	Table   Table
	Initial StateID
}

const (
	S0 StateID = iota
	S1
	S2
	S3
)

var profiles = map[string]Profile{
	"four-state": {
		Name: "four-state",
		States: []StateSpec{
			{Name: "S0", Behavior: BehaviorForward, Interval: 500 * time.Millisecond},
			{Name: "S1", Behavior: BehaviorToggle, Interval: 300 * time.Millisecond},
			{Name: "S2", Behavior: BehaviorBackward, Interval: 100 * time.Millisecond},
			{Name: "S3", Behavior: BehaviorBreathe, Interval: 10 * time.Millisecond},
		},
		Table: Table{
			S0: {S2, S1, S3, S0},
			S1: {S0, S2, S3, S1},
			S2: {S1, S0, S3, S2},
			S3: {S0, S0, S0, S3},
		},
		Initial: S0,
	},
	"three-state": {
		Name: "three-state",
		States: []StateSpec{
			{Name: "S0", Behavior: BehaviorForward, Interval: 200 * time.Millisecond},
			{Name: "S1", Behavior: BehaviorToggle, Interval: 300 * time.Millisecond},
			{Name: "S2", Behavior: BehaviorBackward, Interval: 100 * time.Millisecond},
		},
		Table: Table{
			S0: {S1, S2, S0, S0},
			S1: {S2, S0, S1, S1},
			S2: {S0, S1, S2, S2},
		},
		Initial: S0,
	},
}

// DefaultProfile is used when no profile is configured.
const DefaultProfile = "four-state"

// LookupProfile returns a copy of the named profile, safe to modify.
func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (have %v)", name, ProfileNames())
	}
	out := Profile{Name: p.Name, Initial: p.Initial}
	out.States = append([]StateSpec(nil), p.States...)
	out.Table = append(Table(nil), p.Table...)
	return out, nil
}

func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithIntervals returns a copy with the named states' intervals replaced.
// Unknown names are an error.
func (p Profile) WithIntervals(overrides map[string]time.Duration) (Profile, error) {
	out := p
	out.States = append([]StateSpec(nil), p.States...)
	for name, d := range overrides {
		found := false
		for i := range out.States {
			if out.States[i].Name == name {
				out.States[i].Interval = d
				found = true
			}
		}
		if !found {
			return Profile{}, fmt.Errorf("profile %s has no state %q", p.Name, name)
		}
	}
	return out, nil
}

// Bind attaches hooks to each state spec, producing descriptors for New.
// A nil result from hooks leaves the state without actions.
func (p Profile) Bind(hooks func(StateSpec) Hooks) []State {
	states := make([]State, len(p.States))
	for i, spec := range p.States {
		var h Hooks
		if hooks != nil {
			h = hooks(spec)
		}
		states[i] = State{
			ID:       StateID(i),
			Name:     spec.Name,
			Hooks:    h,
			Interval: spec.Interval,
		}
	}
	return states
}
