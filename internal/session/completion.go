package session

import "alcyxob/fitness-tracker/internal/domain"

// Completion is the aggregate completion state of one exercise.
type Completion int

const (
	Incomplete Completion = iota
	PartiallyComplete
	Complete
)

func (c Completion) String() string {
	switch c {
	case PartiallyComplete:
		return "partially_complete"
	case Complete:
		return "complete"
	default:
		return "incomplete"
	}
}

// event drives the completion state machine.
type event int

const (
	// setToggled covers any change to the set list or to one set's flag.
	setToggled event = iota
	// exerciseToggled is the user marking the whole exercise done or not done.
	exerciseToggled
)

// transition returns the next state and, for exerciseToggled, rewrites every set's flag.
// An exercise without sets is always Incomplete.
func transition(current Completion, ev event, sets []domain.Set) Completion {
	switch ev {
	case exerciseToggled:
		done := current != Complete
		for i := range sets {
			sets[i].Completed = done
		}
		return derive(sets)
	default:
		return derive(sets)
	}
}

func derive(sets []domain.Set) Completion {
	if len(sets) == 0 {
		return Incomplete
	}
	done := 0
	for _, s := range sets {
		if s.Completed {
			done++
		}
	}
	switch done {
	case 0:
		return Incomplete
	case len(sets):
		return Complete
	default:
		return PartiallyComplete
	}
}
