package session

import "alcyxob/fitness-tracker/internal/domain"

// Normalize turns exercise records coming from a template, a repeated log or a resumed draft
// into session exercises.
//
// Sets are taken from the record when it has any, else from prior[exerciseID], else a single
// empty set is created. Records without an id and repeated ids are skipped. Normalize does no I/O
// and returns equal output for equal input.
func Normalize(records []domain.ExerciseRecord, prior map[string][]domain.Set) []*Exercise {
	out := make([]*Exercise, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		rec := &records[i]
		id := rec.Ref()
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, normalizeOne(rec, prior[id]))
	}
	return out
}

func normalizeOne(rec *domain.ExerciseRecord, prior []domain.Set) *Exercise {
	var sets []domain.Set
	switch {
	case len(rec.Sets) > 0:
		sets = append([]domain.Set(nil), rec.Sets...)
	case len(prior) > 0:
		sets = append([]domain.Set(nil), prior...)
	default:
		sets = []domain.Set{{Weight: "", Reps: ""}}
	}

	tracking := rec.TrackingType
	if tracking == "" {
		tracking = domain.TrackingReps
	}

	ex := &Exercise{
		ExerciseID:   rec.Ref(),
		Name:         rec.Name,
		MuscleGroup:  rec.MuscleGroupKey(),
		SubMuscle:    rec.SubMuscle,
		Equipment:    rec.Equipment,
		VideoURL:     rec.VideoURL,
		ImageURLs:    rec.Images(),
		TrackingType: tracking,
		Sets:         sets,
	}
	ex.fire(setToggled)
	return ex
}
