package main

import (
	"alcyxob/fitness-tracker/internal/config"
	"alcyxob/fitness-tracker/internal/logging"
	"alcyxob/fitness-tracker/internal/repository/mongo"
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// CLI rewrites legacy exercise record fields in the document store.
type CLI struct {
	ConfigPath string `help:"Directory holding config.yaml" default:"." type:"path"`
	Debug      bool   `help:"Log every document that would change" short:"d"`

	RenameMuscleField RenameMuscleFieldCmd `cmd:"" help:"Move muscle_group_id, mainMuscle and muscle into muscleGroup"`
	NormalizeImages   NormalizeImagesCmd   `cmd:"" help:"Convert the legacy images field into an imageUrls array"`
}

// CollectionFlags select the collections a migration runs on.
type CollectionFlags struct {
	Collection []string `help:"Collections to migrate (default: all that store exercise records)"`
	DryRun     bool     `help:"Only count the documents that would change" name:"dry-run"`
}

// Validate is called by kong after parsing.
func (f *CollectionFlags) Validate() error {
	for _, c := range f.Collection {
		if !slices.Contains(mongo.MigrationCollections, c) {
			return fmt.Errorf("unknown collection %q, expected one of %v", c, mongo.MigrationCollections)
		}
	}
	return nil
}

func (f CollectionFlags) collections() []string {
	if len(f.Collection) == 0 {
		return mongo.MigrationCollections
	}
	return f.Collection
}

type RenameMuscleFieldCmd struct {
	CollectionFlags `embed:""`
}

func (c *RenameMuscleFieldCmd) Run(cli *CLI) error {
	return migrate(cli, "rename-muscle-field", c.CollectionFlags, (*mongo.Migrator).RenameMuscleField)
}

type NormalizeImagesCmd struct {
	CollectionFlags `embed:""`
}

func (c *NormalizeImagesCmd) Run(cli *CLI) error {
	return migrate(cli, "normalize-images", c.CollectionFlags, (*mongo.Migrator).NormalizeImages)
}

type migration func(m *mongo.Migrator, ctx context.Context, collection string) (mongo.MigrationResult, error)

func migrate(cli *CLI, name string, flags CollectionFlags, run migration) error {
	cfg, err := config.LoadConfig(cli.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := cfg.Log.Level
	if cli.Debug {
		level = "debug"
	}
	logging.Setup(logging.LoggerSetupParams{LogLevel: level, LogFormatJSON: cfg.Log.JSON})

	client, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer func(client *mongodriver.Client) {
		if err := mongo.DisconnectDB(client); err != nil {
			log.Errorf("failed to disconnect MongoDB: %v", err)
		}
	}(client)

	ctx := context.Background()
	migrator := mongo.NewMigrator(client.Database(cfg.Database.Name), flags.DryRun)
	for _, collection := range flags.collections() {
		result, err := run(migrator, ctx, collection)
		if err != nil {
			return fmt.Errorf("%s on %s: %w", name, collection, err)
		}
		log.WithFields(log.Fields{
			"migration":  name,
			"collection": result.Collection,
			"matched":    result.Matched,
			"modified":   result.Modified,
			"skipped":    result.Skipped,
			"dryRun":     flags.DryRun,
		}).Info("migration finished")
	}
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("migrate"),
		kong.Description("Data migrations for the fitness tracker document store."),
		kong.UsageOnError(),
	)

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
