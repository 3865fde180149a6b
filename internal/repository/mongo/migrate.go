package mongo

import (
	"alcyxob/fitness-tracker/internal/domain"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MigrationCollections are the collections that store exercise records.
var MigrationCollections = []string{exerciseCollectionName, templateCollectionName, workoutLogCollectionName}

var legacyMuscleFields = []string{"muscle_group_id", "mainMuscle", "muscle"}

// MigrationResult counts the documents a migration touched in one collection.
type MigrationResult struct {
	Collection string
	Matched    int64
	Modified   int64
	Skipped    int64 // documents whose exercises could not be decoded
}

// Migrator rewrites legacy exercise record fields in place.
// Only the legacy keys and their canonical replacements are written; every other field is left alone.
type Migrator struct {
	db     *mongo.Database
	dryRun bool
}

// NewMigrator creates a Migrator. With dryRun set it only counts matching documents.
func NewMigrator(db *mongo.Database, dryRun bool) *Migrator {
	return &Migrator{db: db, dryRun: dryRun}
}

// recordFix inspects one raw exercise record and returns the keys to set and to remove.
type recordFix func(rec bson.D) (set bson.M, unset []string)

// RenameMuscleField moves muscle_group_id, mainMuscle and muscle into muscleGroup.
func (m *Migrator) RenameMuscleField(ctx context.Context, collection string) (MigrationResult, error) {
	var matchAny bson.A
	for _, f := range legacyMuscleFields {
		matchAny = append(matchAny, bson.M{f: bson.M{"$exists": true}})
	}
	return m.run(ctx, collection, bson.M{"$or": matchAny}, renameMuscleField)
}

// NormalizeImages converts the legacy images field into an imageUrls array.
func (m *Migrator) NormalizeImages(ctx context.Context, collection string) (MigrationResult, error) {
	return m.run(ctx, collection, bson.M{"images": bson.M{"$exists": true}}, normalizeImageField)
}

// run applies fix to every matching document. Catalog exercises keep their fields at the top
// level and get a $set/$unset of the touched keys; templates and logs nest records in an
// exercises array that is written back with only the touched keys changed.
func (m *Migrator) run(ctx context.Context, collection string, recordFilter bson.M, fix recordFix) (MigrationResult, error) {
	result := MigrationResult{Collection: collection}
	coll := m.db.Collection(collection)
	nested := collection != exerciseCollectionName

	filter := recordFilter
	if nested {
		filter = bson.M{"exercises": bson.M{"$elemMatch": recordFilter}}
	}

	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return result, fmt.Errorf("find in %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var (
			id     primitive.ObjectID
			update bson.M
		)
		if nested {
			var doc struct {
				ID        primitive.ObjectID `bson:"_id"`
				Exercises []bson.D           `bson:"exercises"`
			}
			if err := cursor.Decode(&doc); err != nil {
				result.Skipped++
				log.WithField("collection", collection).Warnf("skipping document with undecodable exercises: %s", err)
				continue
			}
			changed := false
			for i, rec := range doc.Exercises {
				set, unset := fix(rec)
				if len(set) == 0 && len(unset) == 0 {
					continue
				}
				doc.Exercises[i] = applyFix(rec, set, unset)
				changed = true
			}
			if !changed {
				continue
			}
			id, update = doc.ID, bson.M{"$set": bson.M{"exercises": doc.Exercises}}
		} else {
			var doc bson.D
			if err := cursor.Decode(&doc); err != nil {
				return result, fmt.Errorf("decode %s document: %w", collection, err)
			}
			set, unset := fix(doc)
			if len(set) == 0 && len(unset) == 0 {
				continue
			}
			raw, _ := lookup(doc, "_id")
			id, _ = raw.(primitive.ObjectID)
			update = topLevelUpdate(set, unset)
		}

		result.Matched++
		if m.dryRun {
			log.WithFields(log.Fields{"collection": collection, "id": id.Hex()}).Debug("would migrate document")
			continue
		}
		res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update)
		if err != nil {
			return result, fmt.Errorf("update %s %s: %w", collection, id.Hex(), err)
		}
		result.Modified += res.ModifiedCount
	}
	if err := cursor.Err(); err != nil {
		return result, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return result, nil
}

// topLevelUpdate builds the update document. MongoDB rejects an empty $set or $unset.
func topLevelUpdate(set bson.M, unset []string) bson.M {
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		fields := bson.M{}
		for _, f := range unset {
			fields[f] = ""
		}
		update["$unset"] = fields
	}
	return update
}

func renameMuscleField(rec bson.D) (bson.M, []string) {
	var present []string
	for _, f := range legacyMuscleFields {
		if _, ok := lookup(rec, f); ok {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil, nil
	}

	set := bson.M{}
	current, _ := lookup(rec, "muscleGroup")
	for _, f := range append([]string{"muscleGroup"}, legacyMuscleFields...) {
		v, _ := lookup(rec, f)
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			if s != current {
				set["muscleGroup"] = s
			}
			break
		}
	}
	return set, present
}

func normalizeImageField(rec bson.D) (bson.M, []string) {
	legacy, ok := lookup(rec, "images")
	if !ok {
		return nil, nil
	}
	set := bson.M{}
	if urls, _ := lookup(rec, "imageUrls"); !nonEmptyArray(urls) {
		r := domain.ExerciseRecord{LegacyImages: legacy}
		set["imageUrls"] = r.Images()
	}
	return set, []string{"images"}
}

func nonEmptyArray(v interface{}) bool {
	switch a := v.(type) {
	case primitive.A:
		return len(a) > 0
	case []interface{}:
		return len(a) > 0
	}
	return false
}

func lookup(d bson.D, key string) (interface{}, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// applyFix returns a copy of rec with the unset keys removed and the set keys replaced in place
// or appended, keeping the order of every other key.
func applyFix(rec bson.D, set bson.M, unset []string) bson.D {
	out := make(bson.D, 0, len(rec)+len(set))
	written := make(map[string]bool, len(set))
	for _, e := range rec {
		if v, ok := set[e.Key]; ok {
			out = append(out, bson.E{Key: e.Key, Value: v})
			written[e.Key] = true
			continue
		}
		if slices.Contains(unset, e.Key) {
			continue
		}
		out = append(out, e)
	}
	for _, k := range slices.Sorted(maps.Keys(set)) {
		if !written[k] {
			out = append(out, bson.E{Key: k, Value: set[k]})
		}
	}
	return out
}
