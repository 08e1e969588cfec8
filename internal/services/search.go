package services

import (
  "context"
  "errors"
  "fmt"
  "time"
  "gorm.io/gorm"
  redisclient "github.com/yungbote/pencilbase-backend/internal/clients/redis"
  "github.com/yungbote/pencilbase-backend/internal/logger"
  "github.com/yungbote/pencilbase-backend/internal/observability"
  "github.com/yungbote/pencilbase-backend/internal/repos"
)

// ErrTopicNotFound distinguishes an unknown topic name from a known topic
// that happens to match zero questions.
var ErrTopicNotFound = errors.New("topic not found")

type SearchService interface {
  ResolveClosure(ctx context.Context, topicName string) ([]string, error)
  Search(ctx context.Context, topicName string) ([]int64, error)
}

type searchService struct {
  db             *gorm.DB
  log            *logger.Logger
  topicRepo      repos.TopicRepo
  questionRepo   repos.QuestionRepo
  cache          redisclient.SearchCache
  metrics        *observability.Metrics
}

func NewSearchService(db *gorm.DB, log *logger.Logger, topicRepo repos.TopicRepo, questionRepo repos.QuestionRepo, cache redisclient.SearchCache, metrics *observability.Metrics) SearchService {
  serviceLog := log.With("service", "SearchService")
  return &searchService{
    db:            db,
    log:           serviceLog,
    topicRepo:     topicRepo,
    questionRepo:  questionRepo,
    cache:         cache,
    metrics:       metrics,
  }
}

// ResolveClosure returns the topic plus every transitive descendant reached
// through sub_topics, in breadth-first order. Because each topic row
// carries its own precomputed children set, a closure costs one store
// round-trip per tree depth, not one per node. A name already visited is
// skipped, so a malformed tree with a cycle terminates instead of looping.
func (ss *searchService) ResolveClosure(ctx context.Context, topicName string) ([]string, error) {
  name := trimmed(topicName)
  if name == "" {
    return nil, ErrTopicNotFound
  }

  roots, err := ss.topicRepo.GetByNames(ctx, nil, []string{name})
  if err != nil {
    return nil, fmt.Errorf("Failed to look up topic %q: %w", name, err)
  }
  if len(roots) == 0 {
    return nil, ErrTopicNotFound
  }

  closure := []string{name}
  visited := map[string]struct{}{name: {}}
  frontier := []string{}
  for _, child := range roots[0].SubTopics {
    if _, ok := visited[child]; ok {
      continue
    }
    visited[child] = struct{}{}
    closure = append(closure, child)
    frontier = append(frontier, child)
  }

  for len(frontier) > 0 {
    topics, err := ss.topicRepo.GetByNames(ctx, nil, frontier)
    if err != nil {
      return nil, fmt.Errorf("Failed to expand topics %v: %w", frontier, err)
    }
    next := []string{}
    for _, topic := range topics {
      for _, child := range topic.SubTopics {
        if _, ok := visited[child]; ok {
          continue
        }
        visited[child] = struct{}{}
        closure = append(closure, child)
        next = append(next, child)
      }
    }
    frontier = next
  }

  return closure, nil
}

// Search returns the ascending numbers of every question whose annotations
// intersect the closure of topicName. ErrTopicNotFound propagates
// unchanged; a topic with no matching questions returns an empty list.
func (ss *searchService) Search(ctx context.Context, topicName string) ([]int64, error) {
  start := time.Now()

  if ss.cache != nil {
    if numbers, ok := ss.cache.GetSearch(ctx, trimmed(topicName)); ok {
      ss.metrics.SearchCacheHit()
      ss.metrics.ObserveSearch(observability.SearchStatusOK, time.Since(start).Seconds())
      return numbers, nil
    }
  }

  closure, err := ss.ResolveClosure(ctx, topicName)
  if err != nil {
    if errors.Is(err, ErrTopicNotFound) {
      ss.metrics.ObserveSearch(observability.SearchStatusNotFound, time.Since(start).Seconds())
      return nil, err
    }
    ss.metrics.ObserveSearch(observability.SearchStatusError, time.Since(start).Seconds())
    return nil, err
  }

  numbers, err := ss.questionRepo.GetByAnyAnnotation(ctx, nil, closure)
  if err != nil {
    ss.metrics.ObserveSearch(observability.SearchStatusError, time.Since(start).Seconds())
    return nil, fmt.Errorf("Failed to query questions for topic %q: %w", topicName, err)
  }
  if numbers == nil {
    numbers = []int64{}
  }

  if ss.cache != nil {
    ss.cache.SetSearch(ctx, trimmed(topicName), numbers)
  }
  ss.metrics.ObserveSearch(observability.SearchStatusOK, time.Since(start).Seconds())
  return numbers, nil
}
