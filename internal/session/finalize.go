package session

import (
	"alcyxob/fitness-tracker/internal/domain"
	"math"
	"time"
)

// DefaultCaloriesPerMinute is used when the caller does not configure an estimate.
const DefaultCaloriesPerMinute = 6.0

// FinishOptions control how a session is turned into a finished log.
type FinishOptions struct {
	// DurationMinutes overrides the measured duration when set.
	DurationMinutes *int
	// ConfirmPartial must be true to finish while some exercises are incomplete.
	ConfirmPartial    bool
	CaloriesPerMinute float64
	Now               time.Time
}

// FinalStatus is completed when every exercise is complete, partial otherwise.
func FinalStatus(s *Session) domain.WorkoutStatus {
	if s.AllCompleted() {
		return domain.WorkoutCompleted
	}
	return domain.WorkoutPartial
}

// Prepare builds the finished log for s. A partial workout needs opts.ConfirmPartial,
// otherwise an *IncompleteError is returned and nothing changes.
// A session whose exercises were all removed cannot be finished.
func Prepare(s *Session, opts FinishOptions) (*domain.WorkoutLog, error) {
	if len(s.Exercises) == 0 {
		return nil, ErrNoExercises
	}
	status := FinalStatus(s)
	if status == domain.WorkoutPartial && !opts.ConfirmPartial {
		return nil, &IncompleteError{Exercises: s.Incomplete()}
	}
	return BuildLog(s, status, opts), nil
}

// Draft builds the in-progress snapshot used for autosave.
func Draft(s *Session, now time.Time) *domain.WorkoutLog {
	return BuildLog(s, domain.WorkoutInProgress, FinishOptions{Now: now})
}

// BuildLog snapshots the session into its persisted form with the given status.
// The log keeps the session's LogID so saving it replaces the earlier draft.
func BuildLog(s *Session, status domain.WorkoutStatus, opts FinishOptions) *domain.WorkoutLog {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	minutes := durationMinutes(s, opts.DurationMinutes, now)
	perMinute := opts.CaloriesPerMinute
	if perMinute <= 0 {
		perMinute = DefaultCaloriesPerMinute
	}

	exercises := make([]domain.ExerciseRecord, len(s.Exercises))
	for i, ex := range s.Exercises {
		exercises[i] = ex.record()
	}

	log := &domain.WorkoutLog{
		ID:              s.LogID,
		UserID:          s.OwnerID,
		Name:            s.Name,
		Exercises:       exercises,
		Status:          status,
		DurationMinutes: minutes,
		ElapsedSeconds:  s.ElapsedSeconds,
		Calories:        int(math.Round(float64(minutes) * perMinute)),
		PerformedAt:     s.StartedAt,
		UpdatedAt:       now,
	}
	if s.AssignmentID != nil {
		id := *s.AssignmentID
		log.AssignmentID = &id
	}
	if s.TemplateID != nil {
		id := *s.TemplateID
		log.TemplateID = &id
	}
	return log
}

func durationMinutes(s *Session, explicit *int, now time.Time) int {
	if explicit != nil && *explicit >= 0 {
		return *explicit
	}
	elapsed := now.Sub(s.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return int(elapsed.Round(time.Minute) / time.Minute)
}
