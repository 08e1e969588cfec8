package server

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/gin-contrib/cors"
  "github.com/yungbote/pencilbase-backend/internal/handlers"
  "github.com/yungbote/pencilbase-backend/internal/middleware"
)

type RouterConfig struct {
  AuthHandler       *handlers.AuthHandler
  AuthMiddleware    *middleware.AuthMiddleware
  UserHandler       *handlers.UserHandler
  TopicHandler      *handlers.TopicHandler
  QuestionHandler   *handlers.QuestionHandler
  SearchHandler     *handlers.SearchHandler
  JobsHandler       *handlers.JobsHandler
  MetricsHandler    http.Handler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  // Cors
  router.Use(cors.New(cors.Config{
    AllowOrigins: []string{
      "http://localhost:80",
      "http://localhost:3000",
      "http://localhost:5174",
    },
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

// ===============
// || Public    ||
// ===============
  router.GET("/healthcheck", handlers.HealthCheck)
  if cfg.MetricsHandler != nil {
    router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
  }
  api := router.Group("/api")
  {
    api.POST("/signup", cfg.AuthHandler.Register)
    api.POST("/signin", cfg.AuthHandler.Login)
  }

// ===============
// || Protected ||
// ===============
  protected := router.Group("/api")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  // Auth
  protected.POST("/refresh", cfg.AuthHandler.Refresh)
  protected.POST("/logout", cfg.AuthHandler.Logout)
  // User
  protected.GET("/user", cfg.UserHandler.GetMe)
  // Topics
  protected.GET("/topics", cfg.TopicHandler.ListTopics)
  protected.GET("/topics/:name", cfg.TopicHandler.GetTopic)
  // Search
  protected.GET("/search", cfg.SearchHandler.Search)

// ===============
// || Admin     ||
// ===============
  admin := router.Group("/api/admin")
  admin.Use(cfg.AuthMiddleware.RequireAuth(), cfg.AuthMiddleware.RequireAdmin())
  admin.POST("/questions", cfg.QuestionHandler.Ingest)
  admin.POST("/questions/sync", cfg.QuestionHandler.Sync)
  admin.POST("/topics/rebuild", cfg.TopicHandler.Rebuild)
  admin.POST("/reconcile", cfg.JobsHandler.Reconcile)

  return router
}
