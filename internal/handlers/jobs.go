package handlers

import (
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/yungbote/pencilbase-backend/internal/services"
)

type JobsHandler struct {
  reconcileService    services.ReconcileService
}

func NewJobsHandler(reconcileService services.ReconcileService) *JobsHandler {
  return &JobsHandler{reconcileService: reconcileService}
}

// POST /api/admin/reconcile
func (jh *JobsHandler) Reconcile(c *gin.Context) {
  report, err := jh.reconcileService.ReconcileAll(c.Request.Context())
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "reconcile_failed", err)
    return
  }
  status := http.StatusOK
  if report.Failed > 0 {
    status = http.StatusMultiStatus
  }
  c.JSON(status, gin.H{"report": report})
}
