package services

import (
  "context"
  "fmt"
  "strings"
  "gorm.io/gorm"
  "gorm.io/datatypes"
  redisclient "github.com/yungbote/pencilbase-backend/internal/clients/redis"
  "github.com/yungbote/pencilbase-backend/internal/clients/sheets"
  "github.com/yungbote/pencilbase-backend/internal/logger"
  "github.com/yungbote/pencilbase-backend/internal/repos"
  "github.com/yungbote/pencilbase-backend/internal/types"
)

// RowProvider is the boundary to the raw tabular source. The taxonomy tab
// yields three-column rows, the questions tab yields a number plus its
// annotation strings.
type RowProvider interface {
  FetchTopicRows(ctx context.Context) ([]sheets.TopicRow, error)
  FetchQuestionRows(ctx context.Context) ([]sheets.QuestionRow, error)
}

type TaxonomyWarning struct {
  TopicName   string    `json:"topic_name"`
  Message     string    `json:"message"`
}

type BuildReport struct {
  TopicsBuilt   int                 `json:"topics_built"`
  Warnings      []TaxonomyWarning   `json:"warnings,omitempty"`
}

type TaxonomyService interface {
  BuildFromRows(ctx context.Context, rows []sheets.TopicRow) (BuildReport, error)
  RebuildFromProvider(ctx context.Context) (BuildReport, error)
}

type taxonomyService struct {
  db          *gorm.DB
  log         *logger.Logger
  topicRepo   repos.TopicRepo
  provider    RowProvider
  cache       redisclient.SearchCache
}

func NewTaxonomyService(db *gorm.DB, log *logger.Logger, topicRepo repos.TopicRepo, provider RowProvider, cache redisclient.SearchCache) TaxonomyService {
  serviceLog := log.With("service", "TaxonomyService")
  return &taxonomyService{
    db:         db,
    log:        serviceLog,
    topicRepo:  topicRepo,
    provider:   provider,
    cache:      cache,
  }
}

func (ts *taxonomyService) RebuildFromProvider(ctx context.Context) (BuildReport, error) {
  if ts.provider == nil {
    return BuildReport{}, fmt.Errorf("No row provider configured")
  }
  rows, err := ts.provider.FetchTopicRows(ctx)
  if err != nil {
    return BuildReport{}, fmt.Errorf("Failed to fetch topic rows from provider: %w", err)
  }
  return ts.BuildFromRows(ctx, rows)
}

// BuildFromRows infers the three-level tree from raw rows and upserts one
// denormalized Topic per distinct name. Each column's header value (the
// first distinct value encountered) is dropped, as are blank cells.
// Inconsistencies never fail the build: a sub-topic observed under more
// than one parent keeps its first-observed parent, and a name appearing at
// two levels keeps its first-seen level; both are reported as warnings.
func (ts *taxonomyService) BuildFromRows(ctx context.Context, rows []sheets.TopicRow) (BuildReport, error) {
  report := BuildReport{}

  level1Names := dropHeaderValue(distinctColumn(rows, func(r sheets.TopicRow) string { return r.Level1 }))
  level2Names := dropHeaderValue(distinctColumn(rows, func(r sheets.TopicRow) string { return r.Level2 }))
  level3Names := dropHeaderValue(distinctColumn(rows, func(r sheets.TopicRow) string { return r.Level3 }))

  keep1 := toSet(level1Names)
  keep2 := toSet(level2Names)
  keep3 := toSet(level3Names)

  // Relations are keyed per level pair: a name appearing at two levels
  // must not merge its edges across them.
  childrenOfL1 := map[string][]string{}
  parentsOfL2 := map[string][]string{}
  childrenOfL2 := map[string][]string{}
  parentsOfL3 := map[string][]string{}
  for _, row := range rows {
    l1 := trimmed(row.Level1)
    l2 := trimmed(row.Level2)
    l3 := trimmed(row.Level3)
    if inSet(keep1, l1) && inSet(keep2, l2) {
      childrenOfL1[l1] = appendDistinct(childrenOfL1[l1], l2)
      parentsOfL2[l2] = appendDistinct(parentsOfL2[l2], l1)
    }
    if inSet(keep2, l2) && inSet(keep3, l3) {
      childrenOfL2[l2] = appendDistinct(childrenOfL2[l2], l3)
      parentsOfL3[l3] = appendDistinct(parentsOfL3[l3], l2)
    }
  }

  emitted := make([]*types.Topic, 0, len(level1Names)+len(level2Names)+len(level3Names))
  seenLevel := map[string]int{}
  emit := func(name string, level int, parents, children []string) {
    if priorLevel, dup := seenLevel[name]; dup {
      report.Warnings = append(report.Warnings, TaxonomyWarning{
        TopicName: name,
        Message:   fmt.Sprintf("name appears at level %d and level %d, keeping level %d", priorLevel, level, priorLevel),
      })
      return
    }
    seenLevel[name] = level

    parent := ""
    if len(parents) > 0 {
      parent = parents[0]
      if len(parents) > 1 {
        report.Warnings = append(report.Warnings, TaxonomyWarning{
          TopicName: name,
          Message:   fmt.Sprintf("observed %d distinct parents %v, keeping %q", len(parents), parents, parent),
        })
      }
    }

    if children == nil {
      children = []string{}
    }

    emitted = append(emitted, &types.Topic{
      TopicName:   name,
      TopicLevel:  level,
      ParentTopic: parent,
      SubTopics:   datatypes.NewJSONSlice(children),
      Position:    len(emitted),
    })
  }

  for _, name := range level1Names {
    emit(name, 1, nil, childrenOfL1[name])
  }
  for _, name := range level2Names {
    emit(name, 2, parentsOfL2[name], childrenOfL2[name])
  }
  for _, name := range level3Names {
    emit(name, 3, parentsOfL3[name], nil)
  }

  if len(emitted) == 0 {
    ts.log.Info("Taxonomy build produced no topics")
    return report, nil
  }

  // Rows already in the store keep their position (the upsert never
  // touches it), so new names are appended after the current maximum.
  // A rebuild can only extend the GetAll order, never interleave it.
  existing, err := ts.topicRepo.GetAll(ctx, nil)
  if err != nil {
    return report, fmt.Errorf("Failed to list existing topics: %w", err)
  }
  known := make(map[string]struct{}, len(existing))
  nextPosition := 0
  for _, topic := range existing {
    known[topic.TopicName] = struct{}{}
    if topic.Position >= nextPosition {
      nextPosition = topic.Position + 1
    }
  }
  for _, topic := range emitted {
    if _, ok := known[topic.TopicName]; ok {
      continue
    }
    topic.Position = nextPosition
    nextPosition++
  }

  if err := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    return ts.topicRepo.UpsertMany(ctx, tx, emitted)
  }); err != nil {
    return report, fmt.Errorf("Failed to upsert topics: %w", err)
  }

  if ts.cache != nil {
    ts.cache.Invalidate(ctx)
  }

  report.TopicsBuilt = len(emitted)
  ts.log.Info("Taxonomy build complete", "topics", report.TopicsBuilt, "warnings", len(report.Warnings))
  return report, nil
}

func distinctColumn(rows []sheets.TopicRow, pick func(sheets.TopicRow) string) []string {
  seen := map[string]struct{}{}
  out := []string{}
  for _, row := range rows {
    v := trimmed(pick(row))
    if v == "" {
      continue
    }
    if _, ok := seen[v]; ok {
      continue
    }
    seen[v] = struct{}{}
    out = append(out, v)
  }
  return out
}

func dropHeaderValue(values []string) []string {
  if len(values) == 0 {
    return values
  }
  return values[1:]
}

func toSet(values []string) map[string]struct{} {
  set := make(map[string]struct{}, len(values))
  for _, v := range values {
    set[v] = struct{}{}
  }
  return set
}

func inSet(set map[string]struct{}, v string) bool {
  if v == "" {
    return false
  }
  _, ok := set[v]
  return ok
}

func trimmed(s string) string {
  return strings.TrimSpace(s)
}

func appendDistinct(values []string, v string) []string {
  for _, existing := range values {
    if existing == v {
      return values
    }
  }
  return append(values, v)
}
