package handlers

import (
  "fmt"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/yungbote/pencilbase-backend/internal/services"
)

type QuestionHandler struct {
  ingestService     services.IngestService
}

func NewQuestionHandler(ingestService services.IngestService) *QuestionHandler {
  return &QuestionHandler{ingestService: ingestService}
}

// POST /api/admin/questions
func (qh *QuestionHandler) Ingest(c *gin.Context) {
  var req struct {
    Questions   []services.QuestionInput    `json:"questions"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
    return
  }
  if len(req.Questions) == 0 {
    RespondError(c, http.StatusBadRequest, "empty_batch", fmt.Errorf("no questions given"))
    return
  }
  report, err := qh.ingestService.IngestQuestions(c.Request.Context(), req.Questions)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "ingest_failed", err)
    return
  }
  RespondOK(c, gin.H{"report": report})
}

// POST /api/admin/questions/sync
func (qh *QuestionHandler) Sync(c *gin.Context) {
  report, err := qh.ingestService.SyncFromProvider(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusBadGateway, "sync_failed", err)
    return
  }
  RespondOK(c, gin.H{"report": report})
}
