package services

import (
  "context"
  "errors"
  "fmt"
  "sort"
  "sync"
  "time"
  "golang.org/x/sync/errgroup"
  "gorm.io/gorm"
  redisclient "github.com/yungbote/pencilbase-backend/internal/clients/redis"
  "github.com/yungbote/pencilbase-backend/internal/logger"
  "github.com/yungbote/pencilbase-backend/internal/observability"
  "github.com/yungbote/pencilbase-backend/internal/repos"
)

type TopicFailure struct {
  TopicName   string    `json:"topic_name"`
  Error       string    `json:"error"`
}

type ReconcileReport struct {
  Processed   int              `json:"processed"`
  Succeeded   int              `json:"succeeded"`
  Failed      int              `json:"failed"`
  Failures    []TopicFailure   `json:"failures,omitempty"`
}

type ReconcileService interface {
  ReconcileAll(ctx context.Context) (ReconcileReport, error)
}

type reconcileService struct {
  db             *gorm.DB
  log            *logger.Logger
  topicRepo      repos.TopicRepo
  questionRepo   repos.QuestionRepo
  search         SearchService
  cache          redisclient.SearchCache
  metrics        *observability.Metrics
  concurrency    int
}

func NewReconcileService(db *gorm.DB, log *logger.Logger, topicRepo repos.TopicRepo, questionRepo repos.QuestionRepo, search SearchService, cache redisclient.SearchCache, metrics *observability.Metrics, concurrency int) ReconcileService {
  serviceLog := log.With("service", "ReconcileService")
  if concurrency < 1 {
    concurrency = 1
  }
  return &reconcileService{
    db:            db,
    log:           serviceLog,
    topicRepo:     topicRepo,
    questionRepo:  questionRepo,
    search:        search,
    cache:         cache,
    metrics:       metrics,
    concurrency:   concurrency,
  }
}

// ReconcileAll recomputes and persists the cached question list of every
// topic. Topics are independent units of work running under a bounded
// worker pool; each unit's result or error is captured before the run
// completes, and one bad topic never aborts the others. Only context
// cancellation ends the run early.
func (rs *reconcileService) ReconcileAll(ctx context.Context) (ReconcileReport, error) {
  start := time.Now()
  report := ReconcileReport{}

  topics, err := rs.topicRepo.GetAll(ctx, nil)
  if err != nil {
    return report, fmt.Errorf("Failed to list topics: %w", err)
  }
  report.Processed = len(topics)
  if len(topics) == 0 {
    rs.log.Info("No topics to reconcile")
    rs.metrics.ObserveReconcile(0, time.Since(start).Seconds())
    return report, nil
  }

  rs.log.Info("Starting reconciliation", "topics", len(topics), "concurrency", rs.concurrency)

  g, gctx := errgroup.WithContext(ctx)
  g.SetLimit(rs.concurrency)

  var mu sync.Mutex
  failures := []TopicFailure{}

  for _, topic := range topics {
    topicName := topic.TopicName
    g.Go(func() error {
      if gctx.Err() != nil {
        return gctx.Err()
      }
      if err := rs.reconcileTopic(gctx, topicName); err != nil {
        if gctx.Err() != nil {
          return gctx.Err()
        }
        rs.log.Warn("Topic reconciliation failed", "topic", topicName, "error", err)
        mu.Lock()
        failures = append(failures, TopicFailure{TopicName: topicName, Error: err.Error()})
        mu.Unlock()
      }
      return nil
    })
  }

  if err := g.Wait(); err != nil {
    return report, fmt.Errorf("Reconciliation cancelled: %w", err)
  }

  sort.Slice(failures, func(i, j int) bool { return failures[i].TopicName < failures[j].TopicName })
  report.Failures = failures
  report.Failed = len(failures)
  report.Succeeded = report.Processed - report.Failed

  if rs.cache != nil {
    rs.cache.Invalidate(ctx)
  }
  rs.metrics.ObserveReconcile(report.Failed, time.Since(start).Seconds())
  rs.log.Info("Reconciliation complete", "processed", report.Processed, "succeeded", report.Succeeded, "failed", report.Failed)
  return report, nil
}

const (
  storeRetryAttempts = 3
  storeRetryBackoff  = 100 * time.Millisecond
)

// withStoreRetry retries transient store failures with a linear backoff.
// An unknown topic or a cancelled context is final, not transient.
func withStoreRetry(ctx context.Context, op func() error) error {
  var lastErr error
  for attempt := 1; attempt <= storeRetryAttempts; attempt++ {
    lastErr = op()
    if lastErr == nil {
      return nil
    }
    if errors.Is(lastErr, ErrTopicNotFound) {
      return lastErr
    }
    if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
      return lastErr
    }
    select {
    case <-ctx.Done():
      return ctx.Err()
    case <-time.After(time.Duration(attempt) * storeRetryBackoff):
    }
  }
  return fmt.Errorf("gave up after %d attempts: %w", storeRetryAttempts, lastErr)
}

func (rs *reconcileService) reconcileTopic(ctx context.Context, topicName string) error {
  var closure []string
  if err := withStoreRetry(ctx, func() error {
    var rerr error
    closure, rerr = rs.search.ResolveClosure(ctx, topicName)
    return rerr
  }); err != nil {
    return fmt.Errorf("resolve closure: %w", err)
  }

  var numbers []int64
  if err := withStoreRetry(ctx, func() error {
    var qerr error
    numbers, qerr = rs.questionRepo.GetByAnyAnnotation(ctx, nil, closure)
    return qerr
  }); err != nil {
    return fmt.Errorf("query questions: %w", err)
  }
  if numbers == nil {
    numbers = []int64{}
  }

  if err := withStoreRetry(ctx, func() error {
    return rs.topicRepo.SetQuestionIDs(ctx, nil, topicName, numbers)
  }); err != nil {
    return fmt.Errorf("persist question ids: %w", err)
  }
  return nil
}
