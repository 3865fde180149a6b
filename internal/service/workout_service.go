package service

import (
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/events"
	"alcyxob/fitness-tracker/internal/metrics"
	"alcyxob/fitness-tracker/internal/repository"
	"alcyxob/fitness-tracker/internal/session"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrNoActiveSession = errors.New("no active workout session")
	ErrNotADraft       = errors.New("workout log is not an unfinished workout")
	ErrSaveFailed      = errors.New("failed to save workout")
	ErrAmbiguousStart  = errors.New("start a workout from exercises, a template, a past workout or an assignment, not several")
)

// StartRequest describes where a new workout comes from. Exactly one source is used.
type StartRequest struct {
	Name         string
	ExerciseIDs  []string
	TemplateID   *primitive.ObjectID
	RepeatLogID  *primitive.ObjectID
	AssignmentID *primitive.ObjectID
	// Prior holds sets already entered per exercise id, used for exercises that bring none.
	Prior map[string][]domain.Set
}

// FinishRequest carries the user's choices when finishing.
type FinishRequest struct {
	ConfirmPartial  bool
	DurationMinutes *int
}

// WorkoutConfig tunes the workout service.
type WorkoutConfig struct {
	CaloriesPerMinute float64
	LookupTimeout     time.Duration // bound for background benchmark and media lookups
	Clock             func() time.Time
}

// WorkoutDeps are the collaborators of the workout service.
type WorkoutDeps struct {
	Logs        repository.WorkoutLogRepository
	Templates   repository.WorkoutTemplateRepository
	Assignments repository.AssignmentRepository
	Catalog     ExerciseService
	Benchmarks  BenchmarkService
	Media       MediaService
	Completion  AssignmentService
	Publisher   events.Publisher
	Registry    *session.Registry
}

// --- Service Interface ---

// WorkoutService runs the active workout of each user.
type WorkoutService interface {
	Start(ctx context.Context, userID primitive.ObjectID, req StartRequest) (*session.Session, error)
	Resume(ctx context.Context, userID, logID primitive.ObjectID) (*session.Session, error)
	Current(ctx context.Context, userID primitive.ObjectID) (*session.Session, error)
	// Mutate applies fn to the active session and returns the result.
	// Edits that name a missing exercise or set leave the session unchanged.
	Mutate(ctx context.Context, userID primitive.ObjectID, fn func(*session.Session)) (*session.Session, error)
	AddExercises(ctx context.Context, userID primitive.ObjectID, exerciseIDs []string) (*session.Session, error)
	// Save autosaves the active session as a draft.
	Save(ctx context.Context, userID primitive.ObjectID) (*domain.WorkoutLog, error)
	Finish(ctx context.Context, userID primitive.ObjectID, req FinishRequest) (*domain.WorkoutLog, error)
	// Cancel drops the active session and its draft, if any.
	Cancel(ctx context.Context, userID primitive.ObjectID) error
	// Close stops background work and every active session.
	Close()
}

// --- Service Implementation ---

type workoutService struct {
	deps WorkoutDeps
	cfg  WorkoutConfig

	// base is cancelled by Close and bounds every background lookup.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkoutService creates a new instance of workoutService.
func NewWorkoutService(deps WorkoutDeps, cfg WorkoutConfig) WorkoutService {
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	if deps.Registry == nil {
		deps.Registry = session.NewRegistry()
	}
	if cfg.CaloriesPerMinute <= 0 {
		cfg.CaloriesPerMinute = session.DefaultCaloriesPerMinute
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 10 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	base, cancel := context.WithCancel(context.Background())
	return &workoutService{
		deps:   deps,
		cfg:    cfg,
		base:   base,
		cancel: cancel,
	}
}

// === Start / Resume ===

// Start builds a new session from one source and makes it the user's active workout.
// A previous active session of the user is dropped; its draft, if saved, stays resumable.
func (s *workoutService) Start(ctx context.Context, userID primitive.ObjectID, req StartRequest) (*session.Session, error) {
	// 1. Validate Inputs
	sources := 0
	if len(req.ExerciseIDs) > 0 {
		sources++
	}
	for _, set := range []bool{req.TemplateID != nil, req.RepeatLogID != nil, req.AssignmentID != nil} {
		if set {
			sources++
		}
	}
	if sources == 0 {
		return nil, session.ErrNoExercises
	}
	if sources > 1 {
		return nil, ErrAmbiguousStart
	}

	// 2. Collect the exercise records
	opts := session.Options{OwnerID: userID, Name: req.Name, Now: s.cfg.Clock()}
	var (
		records []domain.ExerciseRecord
		source  string
		err     error
	)
	switch {
	case req.TemplateID != nil:
		source = "template"
		records, err = s.fromTemplate(ctx, userID, *req.TemplateID, &opts)
	case req.RepeatLogID != nil:
		source = "repeat"
		records, err = s.fromLog(ctx, userID, *req.RepeatLogID, &opts)
	case req.AssignmentID != nil:
		source = "assignment"
		records, err = s.fromAssignment(ctx, userID, *req.AssignmentID, &opts)
	default:
		source = "exercises"
		records, err = s.fromCatalog(ctx, req.ExerciseIDs)
	}
	if err != nil {
		return nil, err
	}

	// 3. Normalize into a session
	sess, err := session.New(opts, records, req.Prior)
	if err != nil {
		return nil, err
	}

	metrics.RecordSessionStarted(source)
	return s.activate(sess), nil
}

// Resume turns a saved draft back into the user's active workout.
func (s *workoutService) Resume(ctx context.Context, userID, logID primitive.ObjectID) (*session.Session, error) {
	draft, err := ownedLog(ctx, s.deps.Logs, userID, logID)
	if err != nil {
		return nil, err
	}
	if !draft.IsDraft() {
		return nil, ErrNotADraft
	}

	opts := session.Options{
		OwnerID:      userID,
		Name:         draft.Name,
		LogID:        draft.ID,
		AssignmentID: draft.AssignmentID,
		TemplateID:   draft.TemplateID,
		Elapsed:      time.Duration(draft.ElapsedSeconds) * time.Second,
		Now:          s.cfg.Clock(),
	}
	sess, err := session.New(opts, draft.Exercises, nil)
	if err != nil {
		return nil, err
	}

	metrics.RecordSessionStarted("resume")
	return s.activate(sess), nil
}

// activate registers sess and schedules its background lookups.
func (s *workoutService) activate(sess *session.Session) *session.Session {
	snapshot := sess.Clone()
	loop := s.deps.Registry.Start(sess)
	metrics.SetActiveSessions(s.deps.Registry.Len())

	log.WithFields(log.Fields{
		"userId":    snapshot.OwnerID.Hex(),
		"sessionId": snapshot.ID,
		"exercises": len(snapshot.Exercises),
	}).Info("workout session started")

	s.dispatchLookups(loop, snapshot, snapshot.Exercises)
	return snapshot
}

func (s *workoutService) fromCatalog(ctx context.Context, ids []string) ([]domain.ExerciseRecord, error) {
	exercises, err := s.deps.Catalog.GetExercisesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	records := make([]domain.ExerciseRecord, len(exercises))
	for i := range exercises {
		records[i] = exercises[i].Record()
	}
	return records, nil
}

func (s *workoutService) fromTemplate(ctx context.Context, userID, templateID primitive.ObjectID, opts *session.Options) ([]domain.ExerciseRecord, error) {
	tpl, err := s.deps.Templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if tpl.OwnerID != userID {
		return nil, ErrTemplateAccessDenied
	}
	if opts.Name == "" {
		opts.Name = tpl.Name
	}
	opts.TemplateID = &tpl.ID
	return freshRecords(tpl.Exercises), nil
}

func (s *workoutService) fromLog(ctx context.Context, userID, logID primitive.ObjectID, opts *session.Options) ([]domain.ExerciseRecord, error) {
	past, err := ownedLog(ctx, s.deps.Logs, userID, logID)
	if err != nil {
		return nil, err
	}
	if opts.Name == "" {
		opts.Name = past.Name
	}
	opts.TemplateID = past.TemplateID
	return freshRecords(past.Exercises), nil
}

func (s *workoutService) fromAssignment(ctx context.Context, userID, assignmentID primitive.ObjectID, opts *session.Options) ([]domain.ExerciseRecord, error) {
	assignment, err := s.deps.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	if assignment.ClientID != userID {
		return nil, ErrAssignmentNotBelongToClient
	}

	tpl, err := s.deps.Templates.GetByID(ctx, assignment.TemplateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if opts.Name == "" {
		opts.Name = tpl.Name
	}
	opts.AssignmentID = &assignment.ID
	opts.TemplateID = &tpl.ID
	return freshRecords(tpl.Exercises), nil
}

// freshRecords copies records with every set reset to not completed.
func freshRecords(records []domain.ExerciseRecord) []domain.ExerciseRecord {
	out := make([]domain.ExerciseRecord, len(records))
	for i, rec := range records {
		rec.Completed = false
		if rec.Sets != nil {
			sets := make([]domain.Set, len(rec.Sets))
			for j, set := range rec.Sets {
				set.Completed = false
				sets[j] = set
			}
			rec.Sets = sets
		}
		out[i] = rec
	}
	return out
}

// === Background lookups ===

// dispatchLookups fetches benchmarks and media for exercises without blocking the caller.
// Results are applied only while loop is still the user's active session.
func (s *workoutService) dispatchLookups(loop *session.Loop, snap *session.Session, exercises []*session.Exercise) {
	if len(exercises) == 0 {
		return
	}
	ids := make([]string, len(exercises))
	for i, ex := range exercises {
		ids[i] = ex.ExerciseID
	}
	fields := log.Fields{"userId": snap.OwnerID.Hex(), "sessionId": snap.ID}

	if s.deps.Benchmarks != nil {
		s.background(loop, func(ctx context.Context) {
			best, err := s.deps.Benchmarks.Lookup(ctx, snap.OwnerID, ids, snap.LogID)
			if err != nil {
				log.WithFields(fields).Warnf("benchmark lookup failed: %s", err)
				return
			}
			if !loop.Post(ctx, func(sess *session.Session) { sess.ApplyBenchmarks(best) }) {
				log.WithFields(fields).Debug("session ended before benchmarks arrived")
			}
		})
	}

	if s.deps.Media != nil {
		s.background(loop, func(ctx context.Context) {
			media, err := s.deps.Media.Backfill(ctx, exercises)
			if err != nil {
				log.WithFields(fields).Warnf("media backfill failed: %s", err)
				return
			}
			if len(media) == 0 {
				return
			}
			if !loop.Post(ctx, func(sess *session.Session) { sess.ApplyMedia(media) }) {
				log.WithFields(fields).Debug("session ended before media arrived")
			}
		})
	}
}

// background runs fn with a context that ends on timeout, on Close, or when loop stops.
func (s *workoutService) background(loop *session.Loop, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.base, s.cfg.LookupTimeout)
		defer cancel()
		go func() {
			select {
			case <-loop.Done():
				cancel()
			case <-ctx.Done():
			}
		}()
		fn(ctx)
	}()
}

// === Session operations ===

func (s *workoutService) activeLoop(userID primitive.ObjectID) (*session.Loop, error) {
	loop, ok := s.deps.Registry.Get(userID)
	if !ok {
		return nil, ErrNoActiveSession
	}
	return loop, nil
}

// closedAsMissing reports a session that ended while the call was in flight as missing.
func closedAsMissing(err error) error {
	if errors.Is(err, session.ErrSessionClosed) {
		return ErrNoActiveSession
	}
	return err
}

// Current returns a copy of the user's active session.
func (s *workoutService) Current(ctx context.Context, userID primitive.ObjectID) (*session.Session, error) {
	loop, err := s.activeLoop(userID)
	if err != nil {
		return nil, err
	}
	snap, err := loop.Snapshot(ctx)
	return snap, closedAsMissing(err)
}

func (s *workoutService) Mutate(ctx context.Context, userID primitive.ObjectID, fn func(*session.Session)) (*session.Session, error) {
	loop, err := s.activeLoop(userID)
	if err != nil {
		return nil, err
	}
	var snap *session.Session
	err = loop.Do(ctx, func(sess *session.Session) error {
		fn(sess)
		snap = sess.Clone()
		return nil
	})
	return snap, closedAsMissing(err)
}

// AddExercises merges catalog exercises into the active session and looks up their benchmarks and media.
func (s *workoutService) AddExercises(ctx context.Context, userID primitive.ObjectID, exerciseIDs []string) (*session.Session, error) {
	loop, err := s.activeLoop(userID)
	if err != nil {
		return nil, err
	}
	records, err := s.fromCatalog(ctx, exerciseIDs)
	if err != nil {
		return nil, err
	}

	var (
		snap  *session.Session
		added []*session.Exercise
	)
	err = loop.Do(ctx, func(sess *session.Session) error {
		ids := sess.AddExercises(records)
		snap = sess.Clone()
		for _, id := range ids {
			added = append(added, snap.Exercise(id))
		}
		return nil
	})
	if err != nil {
		return nil, closedAsMissing(err)
	}

	s.dispatchLookups(loop, snap, added)
	return snap, nil
}

// === Persistence ===

// Save upserts the active session as an in-progress draft. The first save captures the
// new log id so later saves replace the same document.
func (s *workoutService) Save(ctx context.Context, userID primitive.ObjectID) (*domain.WorkoutLog, error) {
	loop, err := s.activeLoop(userID)
	if err != nil {
		return nil, err
	}

	var draft *domain.WorkoutLog
	err = loop.Persist(func() error {
		snap, err := loop.Snapshot(ctx)
		if err != nil {
			return closedAsMissing(err)
		}
		draft = session.Draft(snap, s.cfg.Clock())

		id, err := s.deps.Logs.Upsert(ctx, draft)
		if err != nil {
			metrics.RecordStoreFailure("save_draft")
			log.WithFields(log.Fields{"userId": userID.Hex(), "sessionId": snap.ID}).Errorf("autosave failed: %s", err)
			return fmt.Errorf("%w: %v", ErrSaveFailed, err)
		}
		draft.ID = id
		if snap.LogID == id {
			return nil
		}
		// The draft exists now; its id must reach the session even if the caller has gone.
		return closedAsMissing(loop.Do(context.WithoutCancel(ctx), func(sess *session.Session) error {
			sess.LogID = id
			return nil
		}))
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// Finish saves the session as a completed or partial log and ends it.
// A partial workout needs req.ConfirmPartial; without it *session.IncompleteError is returned
// and the session stays active. A failed save also keeps the session so the user can retry.
func (s *workoutService) Finish(ctx context.Context, userID primitive.ObjectID, req FinishRequest) (*domain.WorkoutLog, error) {
	loop, err := s.activeLoop(userID)
	if err != nil {
		return nil, err
	}

	var finished *domain.WorkoutLog
	err = loop.Persist(func() error {
		// 1. Snapshot and build the final log
		snap, err := loop.Snapshot(ctx)
		if err != nil {
			return closedAsMissing(err)
		}
		finished, err = session.Prepare(snap, session.FinishOptions{
			DurationMinutes:   req.DurationMinutes,
			ConfirmPartial:    req.ConfirmPartial,
			CaloriesPerMinute: s.cfg.CaloriesPerMinute,
			Now:               s.cfg.Clock(),
		})
		if err != nil {
			return err
		}

		// 2. Upsert over the draft, if any
		id, err := s.deps.Logs.Upsert(ctx, finished)
		if err != nil {
			metrics.RecordStoreFailure("finish")
			log.WithFields(log.Fields{"userId": userID.Hex(), "sessionId": snap.ID}).Errorf("saving finished workout failed: %s", err)
			return fmt.Errorf("%w: %v", ErrSaveFailed, err)
		}
		finished.ID = id

		// 3. The session is over; a second finish finds nothing
		s.deps.Registry.End(userID, loop)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SetActiveSessions(s.deps.Registry.Len())
	metrics.RecordSessionFinished(string(finished.Status), finished.UpdatedAt)
	fields := log.Fields{"userId": userID.Hex(), "logId": finished.ID.Hex(), "status": finished.Status}
	log.WithFields(fields).Info("workout finished")

	// 4. Secondary signals never undo the save
	if finished.AssignmentID != nil && s.deps.Completion != nil {
		if err := s.deps.Completion.CompleteAssignment(ctx, userID, *finished.AssignmentID, finished.ID); err != nil {
			metrics.RecordStoreFailure("complete_assignment")
			log.WithFields(fields).Warnf("failed to complete assignment %s: %s", finished.AssignmentID.Hex(), err)
		}
	}
	if err := s.deps.Publisher.WorkoutFinished(ctx, finishedEvent(finished)); err != nil {
		log.WithFields(fields).Warnf("failed to publish workout finished: %s", err)
	}
	return finished, nil
}

func finishedEvent(wl *domain.WorkoutLog) events.WorkoutFinished {
	evt := events.WorkoutFinished{
		LogID:           wl.ID.Hex(),
		UserID:          wl.UserID.Hex(),
		Name:            wl.Name,
		Status:          string(wl.Status),
		DurationMinutes: wl.DurationMinutes,
		Calories:        wl.Calories,
		Exercises:       len(wl.Exercises),
		FinishedAt:      wl.UpdatedAt,
	}
	for _, ex := range wl.Exercises {
		for _, set := range ex.Sets {
			if set.Completed {
				evt.CompletedSets++
			}
		}
	}
	if wl.AssignmentID != nil {
		evt.AssignmentID = wl.AssignmentID.Hex()
	}
	return evt
}

// Cancel ends the active session. A saved draft is deleted on a best-effort basis:
// the in-memory session is gone even when the delete fails.
func (s *workoutService) Cancel(ctx context.Context, userID primitive.ObjectID) error {
	loop, err := s.activeLoop(userID)
	if err != nil {
		return err
	}

	var (
		draftID   primitive.ObjectID
		sessionID string
	)
	// Cleanup runs to the end even when the caller disconnects.
	ctx = context.WithoutCancel(ctx)
	_ = loop.Persist(func() error {
		// A save in flight has finished by now, so the draft id is final.
		if err := loop.Do(ctx, func(sess *session.Session) error {
			draftID = sess.LogID
			sessionID = sess.ID
			return nil
		}); err != nil {
			log.WithField("userId", userID.Hex()).Warnf("could not read draft id on cancel: %s", err)
		}
		s.deps.Registry.End(userID, loop)
		return nil
	})
	metrics.SetActiveSessions(s.deps.Registry.Len())
	metrics.RecordSessionCancelled()

	fields := log.Fields{"userId": userID.Hex(), "sessionId": sessionID}
	if draftID != primitive.NilObjectID {
		if err := s.deps.Logs.Delete(ctx, draftID, userID); err != nil {
			metrics.RecordStoreFailure("delete_draft")
			log.WithFields(fields).WithField("logId", draftID.Hex()).Warnf("failed to delete draft: %s", err)
		}
	}
	log.WithFields(fields).Info("workout cancelled")
	return nil
}

// Close stops background lookups and every active session.
func (s *workoutService) Close() {
	s.cancel()
	s.wg.Wait()
	s.deps.Registry.StopAll()
	metrics.SetActiveSessions(0)
}
