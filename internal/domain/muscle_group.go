package domain

// MuscleGroup is a catalog grouping used to organise exercises for display.
type MuscleGroup struct {
	Key        string   `bson:"_id" json:"key"` // e.g., "chest", "legs"
	Label      string   `bson:"label" json:"label"`
	Icon       string   `bson:"icon,omitempty" json:"icon,omitempty"`
	SubMuscles []string `bson:"subMuscles,omitempty" json:"subMuscles,omitempty"`
	Sequence   int      `bson:"sequence" json:"-"` // display order
}
