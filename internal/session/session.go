package session

import (
	"alcyxob/fitness-tracker/internal/domain"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SetField names the editable text fields of a set.
type SetField string

const (
	FieldWeight SetField = "weight"
	FieldReps   SetField = "reps"
)

// Options describe where a session comes from.
type Options struct {
	OwnerID      primitive.ObjectID
	Name         string
	LogID        primitive.ObjectID  // draft being resumed, NilObjectID for a new workout
	AssignmentID *primitive.ObjectID // assignment the workout was started from
	TemplateID   *primitive.ObjectID
	Elapsed      time.Duration // time already spent in a resumed draft
	Now          time.Time
}

// Session is a workout in progress. It is not safe for concurrent use; see Loop.
type Session struct {
	ID             string
	OwnerID        primitive.ObjectID
	Name           string
	LogID          primitive.ObjectID // persisted draft id, NilObjectID until the first save
	AssignmentID   *primitive.ObjectID
	TemplateID     *primitive.ObjectID
	Status         domain.WorkoutStatus
	StartedAt      time.Time
	ElapsedSeconds int
	Exercises      []*Exercise

	// Benchmarks holds the best previous set per exercise id. Display only.
	Benchmarks map[string]domain.Set
}

// New normalizes the records into a fresh in-progress session.
// It returns ErrNoExercises when no usable exercise remains.
func New(opts Options, records []domain.ExerciseRecord, prior map[string][]domain.Set) (*Session, error) {
	exercises := Normalize(records, prior)
	if len(exercises) == 0 {
		return nil, ErrNoExercises
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = "Workout " + now.Format("2006-01-02")
	}
	return &Session{
		ID:             uuid.NewString(),
		OwnerID:        opts.OwnerID,
		Name:           name,
		LogID:          opts.LogID,
		AssignmentID:   opts.AssignmentID,
		TemplateID:     opts.TemplateID,
		Status:         domain.WorkoutInProgress,
		StartedAt:      now.Add(-opts.Elapsed),
		ElapsedSeconds: int(opts.Elapsed / time.Second),
		Exercises:      exercises,
		Benchmarks:     map[string]domain.Set{},
	}, nil
}

// Exercise returns the exercise with the given catalog id, or nil.
func (s *Session) Exercise(exerciseID string) *Exercise {
	for _, ex := range s.Exercises {
		if ex.ExerciseID == exerciseID {
			return ex
		}
	}
	return nil
}

// UpdateSet replaces one text field of a set. Unknown exercises, indexes or fields are ignored.
func (s *Session) UpdateSet(exerciseID string, index int, field SetField, value string) bool {
	ex := s.Exercise(exerciseID)
	if ex == nil || !ex.validIndex(index) {
		return false
	}
	value = strings.TrimSpace(value)
	switch field {
	case FieldWeight:
		ex.Sets[index].Weight = value
	case FieldReps:
		ex.Sets[index].Reps = value
	default:
		return false
	}
	return true
}

// AddSet appends an incomplete set seeded with the previous set's weight and reps.
func (s *Session) AddSet(exerciseID string) bool {
	ex := s.Exercise(exerciseID)
	if ex == nil {
		return false
	}
	next := domain.Set{}
	if n := len(ex.Sets); n > 0 {
		next.Weight = ex.Sets[n-1].Weight
		next.Reps = ex.Sets[n-1].Reps
	}
	ex.Sets = append(ex.Sets, next)
	ex.fire(setToggled)
	return true
}

// RemoveSet deletes the set at index. Sibling exercises are untouched.
func (s *Session) RemoveSet(exerciseID string, index int) bool {
	ex := s.Exercise(exerciseID)
	if ex == nil || !ex.validIndex(index) {
		return false
	}
	ex.Sets = append(ex.Sets[:index:index], ex.Sets[index+1:]...)
	ex.fire(setToggled)
	return true
}

// ToggleSetComplete flips one set and recomputes the exercise state from its sets.
func (s *Session) ToggleSetComplete(exerciseID string, index int) bool {
	ex := s.Exercise(exerciseID)
	if ex == nil || !ex.validIndex(index) {
		return false
	}
	ex.Sets[index].Completed = !ex.Sets[index].Completed
	ex.fire(setToggled)
	return true
}

// ToggleExerciseComplete flips the whole exercise and forces every set to the new value.
func (s *Session) ToggleExerciseComplete(exerciseID string) bool {
	ex := s.Exercise(exerciseID)
	if ex == nil {
		return false
	}
	ex.fire(exerciseToggled)
	return true
}

// RemoveExercise drops the exercise and its sets. Confirmation is the caller's job.
func (s *Session) RemoveExercise(exerciseID string) bool {
	for i, ex := range s.Exercises {
		if ex.ExerciseID == exerciseID {
			s.Exercises = append(s.Exercises[:i:i], s.Exercises[i+1:]...)
			delete(s.Benchmarks, exerciseID)
			return true
		}
	}
	return false
}

// AddExercises appends catalog exercises that are not in the session yet and returns
// the ids that were added.
func (s *Session) AddExercises(records []domain.ExerciseRecord) []string {
	fresh := make([]domain.ExerciseRecord, 0, len(records))
	for _, rec := range records {
		if s.Exercise(rec.Ref()) == nil {
			fresh = append(fresh, rec)
		}
	}
	added := Normalize(fresh, nil)
	ids := make([]string, 0, len(added))
	for _, ex := range added {
		s.Exercises = append(s.Exercises, ex)
		ids = append(ids, ex.ExerciseID)
	}
	return ids
}

// Tick advances the elapsed counter by one second while the workout is in progress.
func (s *Session) Tick() {
	if s.Status == domain.WorkoutInProgress {
		s.ElapsedSeconds++
	}
}

// ApplyBenchmarks merges looked-up best sets. Entries for exercises no longer in the session are dropped.
func (s *Session) ApplyBenchmarks(best map[string]domain.Set) {
	if s.Benchmarks == nil {
		s.Benchmarks = make(map[string]domain.Set, len(best))
	}
	for id, set := range best {
		if s.Exercise(id) != nil {
			s.Benchmarks[id] = set
		}
	}
}

// Media is resolved media for one exercise.
type Media struct {
	VideoURL  string
	ImageURLs []string
}

// ApplyMedia fills in resolved media. Empty values never overwrite what the exercise has.
func (s *Session) ApplyMedia(media map[string]Media) {
	for id, m := range media {
		ex := s.Exercise(id)
		if ex == nil {
			continue
		}
		if m.VideoURL != "" {
			ex.VideoURL = m.VideoURL
		}
		if len(m.ImageURLs) > 0 {
			ex.ImageURLs = append([]string(nil), m.ImageURLs...)
		}
	}
}

// AllCompleted reports whether every exercise is complete.
func (s *Session) AllCompleted() bool {
	if len(s.Exercises) == 0 {
		return false
	}
	for _, ex := range s.Exercises {
		if !ex.Completed() {
			return false
		}
	}
	return true
}

// Incomplete returns the names of the exercises that are not complete, in session order.
func (s *Session) Incomplete() []string {
	var names []string
	for _, ex := range s.Exercises {
		if !ex.Completed() {
			names = append(names, ex.Name)
		}
	}
	return names
}

// ExerciseIDs returns the catalog ids in session order.
func (s *Session) ExerciseIDs() []string {
	ids := make([]string, len(s.Exercises))
	for i, ex := range s.Exercises {
		ids[i] = ex.ExerciseID
	}
	return ids
}

// Clone returns a deep copy that can leave the loop goroutine.
func (s *Session) Clone() *Session {
	c := *s
	c.Exercises = make([]*Exercise, len(s.Exercises))
	for i, ex := range s.Exercises {
		c.Exercises[i] = ex.clone()
	}
	c.Benchmarks = make(map[string]domain.Set, len(s.Benchmarks))
	for k, v := range s.Benchmarks {
		c.Benchmarks[k] = v
	}
	if s.AssignmentID != nil {
		id := *s.AssignmentID
		c.AssignmentID = &id
	}
	if s.TemplateID != nil {
		id := *s.TemplateID
		c.TemplateID = &id
	}
	return &c
}
