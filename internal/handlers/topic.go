package handlers

import (
  "errors"
  "fmt"
  "net/http"
  "strings"
  "github.com/gin-gonic/gin"
  "github.com/yungbote/pencilbase-backend/internal/repos"
  "github.com/yungbote/pencilbase-backend/internal/services"
)

type TopicHandler struct {
  topicRepo         repos.TopicRepo
  taxonomyService   services.TaxonomyService
  searchService     services.SearchService
}

func NewTopicHandler(topicRepo repos.TopicRepo, taxonomyService services.TaxonomyService, searchService services.SearchService) *TopicHandler {
  return &TopicHandler{
    topicRepo:        topicRepo,
    taxonomyService:  taxonomyService,
    searchService:    searchService,
  }
}

// GET /api/topics
func (th *TopicHandler) ListTopics(c *gin.Context) {
  topics, err := th.topicRepo.GetAll(c.Request.Context(), nil)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "topics_unavailable", err)
    return
  }
  RespondOK(c, gin.H{"topics": topics})
}

// GET /api/topics/:name
func (th *TopicHandler) GetTopic(c *gin.Context) {
  name := strings.TrimSpace(c.Param("name"))
  if name == "" {
    RespondError(c, http.StatusBadRequest, "invalid_topic_name", fmt.Errorf("topic name is empty"))
    return
  }
  topics, err := th.topicRepo.GetByNames(c.Request.Context(), nil, []string{name})
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "topics_unavailable", err)
    return
  }
  if len(topics) == 0 {
    RespondError(c, http.StatusNotFound, "topic_not_found", fmt.Errorf("topic %q not found", name))
    return
  }
  closure, err := th.searchService.ResolveClosure(c.Request.Context(), name)
  if err != nil {
    if errors.Is(err, services.ErrTopicNotFound) {
      RespondError(c, http.StatusNotFound, "topic_not_found", err)
      return
    }
    RespondError(c, http.StatusInternalServerError, "closure_failed", err)
    return
  }
  RespondOK(c, gin.H{"topic": topics[0], "closure": closure})
}

// POST /api/admin/topics/rebuild
func (th *TopicHandler) Rebuild(c *gin.Context) {
  report, err := th.taxonomyService.RebuildFromProvider(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusBadGateway, "rebuild_failed", err)
    return
  }
  RespondOK(c, gin.H{"report": report})
}
