package session

import "alcyxob/fitness-tracker/internal/domain"

// Exercise is one exercise of the session together with its ordered sets.
type Exercise struct {
	ExerciseID   string
	Name         string
	MuscleGroup  string
	SubMuscle    string
	Equipment    string
	VideoURL     string
	ImageURLs    []string
	TrackingType domain.TrackingType
	Sets         []domain.Set

	state Completion
}

// State returns the aggregate completion state.
func (e *Exercise) State() Completion {
	return e.state
}

// Completed reports whether every set is done.
func (e *Exercise) Completed() bool {
	return e.state == Complete
}

func (e *Exercise) fire(ev event) {
	e.state = transition(e.state, ev, e.Sets)
}

func (e *Exercise) validIndex(i int) bool {
	return i >= 0 && i < len(e.Sets)
}

func (e *Exercise) clone() *Exercise {
	c := *e
	c.ImageURLs = append([]string(nil), e.ImageURLs...)
	c.Sets = append([]domain.Set(nil), e.Sets...)
	return &c
}

// record serializes the exercise for storage. Only string media references are kept.
func (e *Exercise) record() domain.ExerciseRecord {
	images := make([]string, 0, len(e.ImageURLs))
	for _, img := range e.ImageURLs {
		if img != "" {
			images = append(images, img)
		}
	}
	sets := make([]domain.Set, len(e.Sets))
	copy(sets, e.Sets)
	return domain.ExerciseRecord{
		ExerciseID:   e.ExerciseID,
		Name:         e.Name,
		MuscleGroup:  e.MuscleGroup,
		SubMuscle:    e.SubMuscle,
		Equipment:    e.Equipment,
		VideoURL:     e.VideoURL,
		ImageURLs:    images,
		TrackingType: e.TrackingType,
		Sets:         sets,
		Completed:    e.Completed(),
	}
}
