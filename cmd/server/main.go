package main

import (
	"alcyxob/fitness-tracker/internal/api"
	"alcyxob/fitness-tracker/internal/cache"
	"alcyxob/fitness-tracker/internal/config"
	"alcyxob/fitness-tracker/internal/events"
	"alcyxob/fitness-tracker/internal/logging"
	"alcyxob/fitness-tracker/internal/repository/mongo"
	"alcyxob/fitness-tracker/internal/service"
	"alcyxob/fitness-tracker/internal/session"
	"alcyxob/fitness-tracker/internal/storage"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// @title Fitness Tracker API
// @version 1.0
// @description API for logging workouts, managing exercises, templates and client assignments.
// @contact.name API Support
// @contact.email support@example.com
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the identity provider's JWT.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.Log.File,
		LogToStdout:   cfg.Log.Stdout,
		LogLevel:      cfg.Log.Level,
		LogFormatJSON: cfg.Log.JSON,
	})
	log.Info("Starting Fitness Tracker server...")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Errorf("failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.WithField("database", cfg.Database.Name).Info("Database connection established.")

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		for collection, err := range mongo.EnsureIndexes(ctx, appDB) {
			log.WithField("collection", collection).Warnf("index creation failed: %v", err)
		}
		log.Debug("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	var fileStorage storage.FileStorage
	if cfg.S3.BucketName != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		fileStorage, err = storage.NewS3Storage(ctx, cfg.S3)
		cancel()
		if err != nil {
			log.Fatalf("failed to initialize S3 storage: %v", err)
		}
	} else {
		log.Warn("No media bucket configured, stored media keys are served unresolved.")
	}

	// --- Event Publishing ---
	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.WorkoutTopic, cfg.Kafka.AssignmentTopic)
		log.WithField("brokers", cfg.Kafka.Brokers).Info("Publishing workout events to Kafka.")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Errorf("failed to close event publisher: %v", err)
		}
	}()

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	muscleGroupRepo := mongo.NewMongoMuscleGroupRepository(appDB)
	templateRepo := mongo.NewMongoWorkoutTemplateRepository(appDB)
	assignmentRepo := mongo.NewMongoAssignmentRepository(appDB)
	logRepo := mongo.NewMongoWorkoutLogRepository(appDB)

	// --- Initialize Services ---
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Issuer)
	exerciseService := service.NewExerciseService(exerciseRepo, muscleGroupRepo, cache.New(cfg.Cache.SizeMB, cfg.Cache.TTL), fileStorage)
	mediaService := service.NewMediaService(exerciseRepo, fileStorage, cfg.S3.URLExpiry)
	benchmarkService := service.NewBenchmarkService(logRepo)
	assignmentService := service.NewAssignmentService(assignmentRepo, publisher)
	trainerService := service.NewTrainerService(userRepo, assignmentRepo, templateRepo, exerciseService)
	clientService := service.NewClientService(assignmentRepo, templateRepo, logRepo)
	workoutService := service.NewWorkoutService(service.WorkoutDeps{
		Logs:        logRepo,
		Templates:   templateRepo,
		Assignments: assignmentRepo,
		Catalog:     exerciseService,
		Benchmarks:  benchmarkService,
		Media:       mediaService,
		Completion:  assignmentService,
		Publisher:   publisher,
		Registry:    session.NewRegistry(session.WithTickInterval(cfg.Session.TickInterval)),
	}, service.WorkoutConfig{
		CaloriesPerMinute: cfg.Session.CaloriesPerMinute,
		LookupTimeout:     cfg.Session.LookupTimeout,
	})
	defer workoutService.Close()

	// --- Initialize Gin Engine ---
	if log.GetLevel() < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger())

	api.SetupRoutes(router, api.Services{
		Auth:       authService,
		Exercises:  exerciseService,
		Media:      mediaService,
		Benchmarks: benchmarkService,
		Workouts:   workoutService,
		Trainer:    trainerService,
		Client:     clientService,
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Server starting on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutting down server...")
	case err := <-serverErr:
		log.Errorf("server stopped: %v", err)
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}

	log.Info("Server exiting.")
}
