package api

import (
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth       service.AuthService
	Exercises  service.ExerciseService
	Media      service.MediaService
	Benchmarks service.BenchmarkService
	Workouts   service.WorkoutService
	Trainer    service.TrainerService
	Client     service.ClientService
}

func SetupRoutes(router *gin.Engine, svc Services) {
	authHandler := NewAuthHandler(svc.Auth)
	exerciseHandler := NewExerciseHandler(svc.Exercises, svc.Media)
	sessionHandler := NewSessionHandler(svc.Workouts, svc.Media)
	trainerHandler := NewTrainerHandler(svc.Trainer)
	clientHandler := NewClientHandler(svc.Client, svc.Benchmarks, svc.Media)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(svc.Auth))
	{
		protected.GET("/me", authHandler.GetProfile)
		protected.PUT("/me", authHandler.SyncProfile)

		// --- Exercise Catalog ---
		protected.GET("/muscle-groups", exerciseHandler.ListMuscleGroups)
		exerciseGroup := protected.Group("/exercises")
		{
			exerciseGroup.GET("", exerciseHandler.ListExercises)
			exerciseGroup.GET("/:id", exerciseHandler.GetExercise)
			exerciseGroup.POST("", RoleMiddleware(domain.RoleTrainer), exerciseHandler.CreateExercise)
			exerciseGroup.PUT("/:id", RoleMiddleware(domain.RoleTrainer), exerciseHandler.UpdateExercise)
			exerciseGroup.DELETE("/:id", RoleMiddleware(domain.RoleTrainer), exerciseHandler.DeleteExercise)
			exerciseGroup.POST("/:id/media-upload-url", RoleMiddleware(domain.RoleTrainer), exerciseHandler.RequestMediaUploadURL)
		}

		// --- Active Workout ---
		sessionGroup := protected.Group("/sessions")
		{
			sessionGroup.POST("", sessionHandler.StartSession)
			sessionGroup.POST("/resume/:logId", sessionHandler.ResumeSession)

			current := sessionGroup.Group("/current")
			current.GET("", sessionHandler.GetCurrentSession)
			current.DELETE("", sessionHandler.CancelSession)
			current.POST("/save", sessionHandler.SaveSession)
			current.POST("/finish", sessionHandler.FinishSession)
			current.POST("/exercises", sessionHandler.AddExercises)
			current.DELETE("/exercises/:exerciseId", sessionHandler.RemoveExercise)
			current.POST("/exercises/:exerciseId/toggle", sessionHandler.ToggleExercise)
			current.POST("/exercises/:exerciseId/sets", sessionHandler.AddSet)
			current.PATCH("/exercises/:exerciseId/sets/:index", sessionHandler.UpdateSet)
			current.DELETE("/exercises/:exerciseId/sets/:index", sessionHandler.RemoveSet)
			current.POST("/exercises/:exerciseId/sets/:index/toggle", sessionHandler.ToggleSet)
		}

		// --- History ---
		protected.GET("/logs", clientHandler.GetMyLogs)
		protected.GET("/logs/:id", clientHandler.GetLog)
		protected.DELETE("/logs/:id", clientHandler.DeleteLog)
		protected.GET("/benchmarks", clientHandler.GetBenchmarks)

		// --- Trainer Specific Routes ---
		trainerApiGroup := protected.Group("/trainer")
		trainerApiGroup.Use(RoleMiddleware(domain.RoleTrainer))
		{
			trainerApiGroup.POST("/clients", trainerHandler.AddClientByEmail)
			trainerApiGroup.GET("/clients", trainerHandler.GetManagedClients)

			trainerApiGroup.POST("/templates", trainerHandler.CreateTemplate)
			trainerApiGroup.GET("/templates", trainerHandler.GetTemplates)
			trainerApiGroup.PUT("/templates/:templateId", trainerHandler.UpdateTemplate)
			trainerApiGroup.DELETE("/templates/:templateId", trainerHandler.DeleteTemplate)

			trainerApiGroup.POST("/assignments", trainerHandler.AssignProgram)
			trainerApiGroup.GET("/assignments", trainerHandler.GetAssignments)
		}

		// --- Client Specific Routes ---
		clientApiGroup := protected.Group("/client")
		clientApiGroup.Use(RoleMiddleware(domain.RoleClient))
		{
			clientApiGroup.GET("/assignments", clientHandler.GetMyAssignments)
		}
	}
}
