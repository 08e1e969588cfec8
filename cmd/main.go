package main

import (
  "fmt"
  "os"
  "time"
  "github.com/yungbote/pencilbase-backend/internal/logger"
  "github.com/yungbote/pencilbase-backend/internal/utils"
  "github.com/yungbote/pencilbase-backend/internal/db"
  "github.com/yungbote/pencilbase-backend/internal/observability"
  "github.com/yungbote/pencilbase-backend/internal/repos"
  "github.com/yungbote/pencilbase-backend/internal/services"
  "github.com/yungbote/pencilbase-backend/internal/handlers"
  "github.com/yungbote/pencilbase-backend/internal/middleware"
  "github.com/yungbote/pencilbase-backend/internal/server"
  redisclient "github.com/yungbote/pencilbase-backend/internal/clients/redis"
  "github.com/yungbote/pencilbase-backend/internal/clients/sheets"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  // Env
  log.Info("Loading environment variables from main...")
  port := utils.GetEnv("PORT", "8080", log)
  jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
  accessTokenTTL := utils.GetEnvAsDuration("ACCESS_TOKEN_TTL", time.Hour, log)
  refreshTokenTTL := utils.GetEnvAsDuration("REFRESH_TOKEN_TTL", 24*time.Hour, log)
  reconcileConcurrency := utils.GetEnvAsInt("RECONCILE_CONCURRENCY", 4, log)

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Warn("Postgres auto migration failed", "error", err)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  userRepo := repos.NewUserRepo(thePG, log)
  userTokenRepo := repos.NewUserTokenRepo(thePG, log)
  topicRepo := repos.NewTopicRepo(thePG, log)
  questionRepo := repos.NewQuestionRepo(thePG, log)

  // Clients
  log.Info("Setting up Clients from main...")
  var provider services.RowProvider
  sheetsClient, err := sheets.NewClient(log)
  if err != nil {
    log.Warn("Sheets client init failed, rebuild/sync endpoints will be unavailable", "error", err)
  } else {
    provider = sheetsClient
  }
  searchCache, err := redisclient.NewSearchCache(log)
  if err != nil {
    log.Warn("Redis init failed, running without search cache", "error", err)
    searchCache = nil
  }

  // Metrics
  metrics := observability.NewMetrics(log)

  // Services
  log.Info("Setting up Services from main...")
  bucketService, err := services.NewBucketService(log)
  if err != nil {
    log.Warn("Could not init BucketService", "error", err)
  }
  var avatarService services.AvatarService
  if bucketService != nil {
    avatarService, err = services.NewAvatarService(log, bucketService)
    if err != nil {
      log.Warn("Could not init AvatarService, users get no avatar", "error", err)
    }
  }
  authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, avatarService, jwtSecretKey, accessTokenTTL, refreshTokenTTL)
  userService := services.NewUserService(thePG, log, userRepo)
  taxonomyService := services.NewTaxonomyService(thePG, log, topicRepo, provider, searchCache)
  ingestService := services.NewIngestService(thePG, log, questionRepo, provider)
  searchService := services.NewSearchService(thePG, log, topicRepo, questionRepo, searchCache, metrics)
  reconcileService := services.NewReconcileService(thePG, log, topicRepo, questionRepo, searchService, searchCache, metrics, reconcileConcurrency)

  // Handlers
  log.Info("Setting up Handlers from main...")
  authHandler := handlers.NewAuthHandler(authService)
  userHandler := handlers.NewUserHandler(userService)
  topicHandler := handlers.NewTopicHandler(topicRepo, taxonomyService, searchService)
  questionHandler := handlers.NewQuestionHandler(ingestService)
  searchHandler := handlers.NewSearchHandler(searchService)
  jobsHandler := handlers.NewJobsHandler(reconcileService)

  // Middleware
  authMiddleware := middleware.NewAuthMiddleware(log, authService)

  // Router
  log.Info("Setting up Router from main...")
  router := server.NewRouter(server.RouterConfig{
    AuthHandler:      authHandler,
    AuthMiddleware:   authMiddleware,
    UserHandler:      userHandler,
    TopicHandler:     topicHandler,
    QuestionHandler:  questionHandler,
    SearchHandler:    searchHandler,
    JobsHandler:      jobsHandler,
    MetricsHandler:   metrics.Handler(),
  })

  log.Info("Starting server", "port", port)
  if err := router.Run(":" + port); err != nil {
    log.Fatal("Server exited", "error", err)
  }
}
