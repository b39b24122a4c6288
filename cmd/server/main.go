package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/taskhub/project-management-api/internal/config"
	"github.com/taskhub/project-management-api/internal/database"
	"github.com/taskhub/project-management-api/internal/events"
	"github.com/taskhub/project-management-api/internal/handlers"
	"github.com/taskhub/project-management-api/internal/logging"
	"github.com/taskhub/project-management-api/internal/middleware"
	"github.com/taskhub/project-management-api/internal/repository"
	"github.com/taskhub/project-management-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logging.Init(cfg.LogFile)

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := database.AddIndexes(database.GetDB()); err != nil {
		log.Fatalf("Failed to add indexes: %v", err)
	}

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions("pm_session", store))

	// Realtime event hub
	hub := events.NewHub()
	go hub.Run()
	defer hub.Close()

	// Repositories
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	timeEntryRepo := repository.NewTimeEntryRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)
	fileRepo := repository.NewFileRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	// Services
	authService := services.NewAuthService(userRepo, cfg.OAuthUserInfoURL)
	teamService := services.NewTeamService(teamRepo, userRepo)
	projectService := services.NewProjectService(projectRepo, taskRepo, userRepo, teamRepo, milestoneRepo, fileRepo, activityRepo)
	taskService := services.NewTaskService(taskRepo, projectRepo, userRepo, activityRepo, notificationRepo, fileRepo)
	commentService := services.NewCommentService(commentRepo, taskRepo, projectRepo, notificationRepo, activityRepo)
	notificationService := services.NewNotificationService(notificationRepo)
	timeEntryService := services.NewTimeEntryService(timeEntryRepo, taskRepo)
	reportService := services.NewReportService(analyticsRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	teamHandler := handlers.NewTeamHandler(teamService)
	projectHandler := handlers.NewProjectHandler(projectService, commentService, hub)
	taskHandler := handlers.NewTaskHandler(taskService, commentService, timeEntryService, hub)
	commentHandler := handlers.NewCommentHandler(commentService, hub)
	notificationHandler := handlers.NewNotificationHandler(notificationService, timeEntryService)
	analyticsHandler := handlers.NewAnalyticsHandler(reportService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Project Management API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.SignUp)
			auth.POST("/login", authHandler.Login)
			auth.POST("/oauth", authHandler.OAuthSignIn)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.Me)
		}

		api.GET("/users", middleware.RequireAuth(), authHandler.ListUsers)

		// Realtime events (protected)
		api.GET("/ws", middleware.RequireAuth(), hub.ServeWS)

		// Team routes (protected)
		teams := api.Group("/teams")
		teams.Use(middleware.RequireAuth())
		{
			teams.POST("", teamHandler.CreateTeam)
			teams.GET("", teamHandler.ListMyTeams)
			teams.POST("/join", teamHandler.Join)
			teams.GET("/:id", teamHandler.GetTeam)
			teams.PATCH("/:id", teamHandler.UpdateTeam)
			teams.DELETE("/:id", teamHandler.DeleteTeam)
			teams.POST("/:id/regenerate-code", teamHandler.RegenerateInviteCode)
			teams.GET("/:id/members", teamHandler.ListMembers)
			teams.DELETE("/:id/members/:userId", teamHandler.RemoveMember)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth())
		{
			projects.GET("", projectHandler.ListProjects)
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PATCH("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)
			projects.GET("/:id/tasks", taskHandler.ListProjectTasks)
			projects.POST("/:id/tasks", taskHandler.CreateProjectTask)
			projects.POST("/:id/members", projectHandler.AddMember)
			projects.DELETE("/:id/members/:userId", projectHandler.RemoveMember)
			projects.GET("/:id/milestones", projectHandler.ListMilestones)
			projects.POST("/:id/milestones", projectHandler.CreateMilestone)
			projects.GET("/:id/files", projectHandler.ListFiles)
			projects.GET("/:id/comments", projectHandler.ListProjectComments)
			projects.GET("/:id/activity", projectHandler.ListActivity)
		}

		api.PATCH("/milestones/:id", middleware.RequireAuth(), projectHandler.UpdateMilestone)
		api.POST("/milestones/:id/complete", middleware.RequireAuth(), projectHandler.CompleteMilestone)
		api.POST("/files", middleware.RequireAuth(), projectHandler.AttachFile)

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/create-subtask", taskHandler.CreateSubtask)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PATCH("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.GET("/:id/comments", taskHandler.ListTaskComments)
			tasks.GET("/:id/files", taskHandler.ListTaskFiles)
			tasks.POST("/:id/dependencies", taskHandler.AddDependencies)
			tasks.POST("/:id/time/start", taskHandler.StartTimer)
			tasks.POST("/:id/time/stop", taskHandler.StopTimer)
		}

		// Comment routes (protected)
		comments := api.Group("/comments")
		comments.Use(middleware.RequireAuth())
		{
			comments.POST("", commentHandler.CreateComment)
			comments.DELETE("/:id", commentHandler.DeleteComment)
		}

		// Notification and time-entry routes (protected)
		api.GET("/notifications", middleware.RequireAuth(), notificationHandler.ListNotifications)
		api.POST("/notifications/:id/read", middleware.RequireAuth(), notificationHandler.MarkRead)
		api.GET("/time-entries", middleware.RequireAuth(), notificationHandler.ListTimeEntries)
		api.POST("/time-entries", middleware.RequireAuth(), notificationHandler.CreateTimeEntry)
		api.POST("/time-entries/:id/stop", middleware.RequireAuth(), notificationHandler.StopTimeEntry)

		// Analytics (protected)
		api.GET("/analytics", middleware.RequireAuth(), analyticsHandler.GetAnalytics)
	}

	// Start server
	logging.Logger.WithField("addr", cfg.ListenAddr).Info("starting server")
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
