package service

import (
	"alcyxob/fitness-tracker/internal/repository"
	"alcyxob/fitness-tracker/internal/session"
	"alcyxob/fitness-tracker/internal/storage"
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaService fills in exercise media for display during a workout.
type MediaService interface {
	// Backfill returns media for the exercises whose video or images can be completed from the catalog.
	// References are returned as stored, so a saved workout never holds an expiring URL.
	Backfill(ctx context.Context, exercises []*session.Exercise) (map[string]session.Media, error)
	// ResolveURL turns a bucket key into a presigned URL. Full URLs are returned unchanged.
	ResolveURL(ctx context.Context, ref string) string
}

type mediaService struct {
	exerciseRepo repository.ExerciseRepository
	fileStorage  storage.FileStorage // nil leaves bucket keys unresolved
	urlExpiry    time.Duration
}

// NewMediaService creates a new instance of mediaService.
func NewMediaService(exerciseRepo repository.ExerciseRepository, fileStorage storage.FileStorage, urlExpiry time.Duration) MediaService {
	if urlExpiry <= 0 {
		urlExpiry = storage.DefaultPresignedURLExpiry
	}
	return &mediaService{
		exerciseRepo: exerciseRepo,
		fileStorage:  fileStorage,
		urlExpiry:    urlExpiry,
	}
}

func (s *mediaService) Backfill(ctx context.Context, exercises []*session.Exercise) (map[string]session.Media, error) {
	// 1. Start from what the session already has
	current := make(map[string]session.Media, len(exercises))
	var missing []primitive.ObjectID
	for _, ex := range exercises {
		m := session.Media{VideoURL: ex.VideoURL, ImageURLs: append([]string(nil), ex.ImageURLs...)}
		current[ex.ExerciseID] = m
		if m.VideoURL != "" && len(m.ImageURLs) > 0 {
			continue
		}
		if oid, err := primitive.ObjectIDFromHex(ex.ExerciseID); err == nil {
			missing = append(missing, oid)
		}
	}

	// 2. Complete missing media from the catalog
	if len(missing) > 0 {
		catalog, err := s.exerciseRepo.GetByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, entry := range catalog {
			id := entry.ID.Hex()
			m := current[id]
			if m.VideoURL == "" {
				m.VideoURL = entry.VideoURL
			}
			if len(m.ImageURLs) == 0 {
				rec := entry.Record()
				m.ImageURLs = rec.Images()
			}
			current[id] = m
		}
	}

	// 3. Keep only what changed
	out := make(map[string]session.Media)
	for _, ex := range exercises {
		m := current[ex.ExerciseID]
		if m.VideoURL != ex.VideoURL || !equalStrings(m.ImageURLs, ex.ImageURLs) {
			out[ex.ExerciseID] = m
		}
	}
	return out, nil
}

// ResolveURL presigns a bucket key. On failure the key is kept as-is.
func (s *mediaService) ResolveURL(ctx context.Context, ref string) string {
	if s.fileStorage == nil || !storage.IsObjectKey(ref) {
		return ref
	}
	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, ref, s.urlExpiry)
	if err != nil {
		log.Warnf("failed to presign media %s: %s", ref, err)
		return ref
	}
	return url
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
