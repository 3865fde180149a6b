package service

import (
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/repository"
	"alcyxob/fitness-tracker/internal/session"
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// maxHistoryLookups bounds the concurrent history queries of one lookup.
const maxHistoryLookups = 4

// BenchmarkService supplies the best previous set of each exercise for display during a workout.
type BenchmarkService interface {
	// Lookup returns an entry only for exercises with usable history.
	// The log with id exclude (the session's own draft) and planned logs are ignored.
	Lookup(ctx context.Context, userID primitive.ObjectID, exerciseIDs []string, exclude primitive.ObjectID) (map[string]domain.Set, error)
}

type benchmarkService struct {
	logRepo repository.WorkoutLogRepository
}

// NewBenchmarkService creates a new instance of benchmarkService.
func NewBenchmarkService(logRepo repository.WorkoutLogRepository) BenchmarkService {
	return &benchmarkService{logRepo: logRepo}
}

// Lookup fans out one history query per exercise. A failed query drops that exercise only;
// an error is returned when every query failed.
func (s *benchmarkService) Lookup(ctx context.Context, userID primitive.ObjectID, exerciseIDs []string, exclude primitive.ObjectID) (map[string]domain.Set, error) {
	var (
		mu       sync.Mutex
		best     = make(map[string]domain.Set, len(exerciseIDs))
		failures int
		lastErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxHistoryLookups)
	for _, id := range exerciseIDs {
		id := id
		g.Go(func() error {
			history, err := s.logRepo.ExerciseHistory(gctx, userID, id, exclude)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.WithFields(log.Fields{"userId": userID.Hex(), "exerciseId": id}).Warnf("benchmark lookup failed: %s", err)
				failures++
				lastErr = err
				return nil
			}
			if set, ok := session.BestSet(history); ok {
				best[id] = set
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return an error

	if len(exerciseIDs) > 0 && failures == len(exerciseIDs) {
		return nil, lastErr
	}
	return best, nil
}
