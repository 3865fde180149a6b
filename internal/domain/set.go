package domain

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Set is one performed (or planned) set of an exercise.
// Weight and Reps are kept as entered; Reps holds seconds for time-tracked exercises.
type Set struct {
	Weight    string `bson:"weight" json:"weight"`
	Reps      string `bson:"reps" json:"reps"`
	Completed bool   `bson:"completed" json:"completed"`
}

// ExerciseRecord is the exercise-like document stored inside templates, workout logs and drafts.
//
// Older documents name the muscle group muscle_group_id, mainMuscle or muscle, and store images
// either as a single string or as an array of mixed values. The record decodes all of them;
// callers should read the canonical values through MuscleGroupKey and Images only.
type ExerciseRecord struct {
	ExerciseID string `bson:"exerciseId,omitempty" json:"exerciseId,omitempty"`
	LegacyID   string `bson:"id,omitempty" json:"id,omitempty"`
	Name       string `bson:"name" json:"name"`

	MuscleGroup   string `bson:"muscleGroup,omitempty" json:"muscleGroup,omitempty"`
	MuscleGroupID string `bson:"muscle_group_id,omitempty" json:"muscle_group_id,omitempty"`
	MainMuscle    string `bson:"mainMuscle,omitempty" json:"mainMuscle,omitempty"`
	Muscle        string `bson:"muscle,omitempty" json:"muscle,omitempty"`

	SubMuscle    string       `bson:"subMuscle,omitempty" json:"subMuscle,omitempty"`
	Equipment    string       `bson:"equipment,omitempty" json:"equipment,omitempty"`
	VideoURL     string       `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	ImageURLs    []string     `bson:"imageUrls,omitempty" json:"imageUrls,omitempty"`
	LegacyImages interface{}  `bson:"images,omitempty" json:"images,omitempty"`
	TrackingType TrackingType `bson:"trackingType,omitempty" json:"trackingType,omitempty"`

	Sets      []Set `bson:"sets,omitempty" json:"sets,omitempty"`
	Completed bool  `bson:"completed" json:"completed"`
}

// Ref returns the catalog exercise id the record points to.
func (r *ExerciseRecord) Ref() string {
	if r.ExerciseID != "" {
		return r.ExerciseID
	}
	return r.LegacyID
}

// MuscleGroupKey resolves the muscle group from whichever field the document carries.
func (r *ExerciseRecord) MuscleGroupKey() string {
	for _, v := range []string{r.MuscleGroup, r.MuscleGroupID, r.MainMuscle, r.Muscle} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Images returns the image references as strings, dropping anything that is not a non-empty string.
func (r *ExerciseRecord) Images() []string {
	if len(r.ImageURLs) > 0 {
		return stringsOnly(r.ImageURLs)
	}
	switch v := r.LegacyImages.(type) {
	case string:
		return stringsOnly([]string{v})
	case []string:
		return stringsOnly(v)
	case []interface{}:
		return anyStrings(v)
	case primitive.A:
		return anyStrings(v)
	}
	return []string{}
}

// Canonical returns a copy that only uses the canonical fields.
func (r ExerciseRecord) Canonical() ExerciseRecord {
	out := r
	out.ExerciseID = r.Ref()
	out.LegacyID = ""
	out.MuscleGroup = r.MuscleGroupKey()
	out.MuscleGroupID, out.MainMuscle, out.Muscle = "", "", ""
	out.ImageURLs = r.Images()
	out.LegacyImages = nil
	if r.Sets != nil {
		out.Sets = make([]Set, len(r.Sets))
		copy(out.Sets, r.Sets)
	}
	return out
}

// HasLegacyFields reports whether the record still carries any alias field.
func (r *ExerciseRecord) HasLegacyFields() bool {
	return r.LegacyID != "" || r.MuscleGroupID != "" || r.MainMuscle != "" || r.Muscle != "" || r.LegacyImages != nil
}

func anyStrings(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func stringsOnly(values []string) []string {
	out := make([]string, 0, len(values))
	for _, s := range values {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
