package handlers

import (
  "errors"
  "fmt"
  "net/http"
  "strings"
  "github.com/gin-gonic/gin"
  "github.com/yungbote/pencilbase-backend/internal/services"
)

type SearchHandler struct {
  searchService     services.SearchService
}

func NewSearchHandler(searchService services.SearchService) *SearchHandler {
  return &SearchHandler{searchService: searchService}
}

// GET /api/search?topic=
func (sh *SearchHandler) Search(c *gin.Context) {
  topic := strings.TrimSpace(c.Query("topic"))
  if topic == "" {
    RespondError(c, http.StatusBadRequest, "invalid_topic", fmt.Errorf("query param 'topic' is required"))
    return
  }
  numbers, err := sh.searchService.Search(c.Request.Context(), topic)
  if err != nil {
    if errors.Is(err, services.ErrTopicNotFound) {
      RespondError(c, http.StatusNotFound, "topic_not_found", err)
      return
    }
    RespondError(c, http.StatusInternalServerError, "search_failed", err)
    return
  }
  RespondOK(c, gin.H{"topic": topic, "question_numbers": numbers})
}
