package services

import (
  "context"
  "fmt"
  "gorm.io/datatypes"
  "gorm.io/gorm"
  "github.com/yungbote/pencilbase-backend/internal/logger"
  "github.com/yungbote/pencilbase-backend/internal/repos"
  "github.com/yungbote/pencilbase-backend/internal/types"
)

type QuestionInput struct {
  QuestionNumber   int64      `json:"question_number"`
  Annotations      []string   `json:"annotations"`
}

type RejectedQuestion struct {
  QuestionNumber   int64     `json:"question_number"`
  Reason           string    `json:"reason"`
}

type IngestReport struct {
  Ingested   int                 `json:"ingested"`
  Rejected   []RejectedQuestion  `json:"rejected,omitempty"`
}

type IngestService interface {
  IngestQuestions(ctx context.Context, items []QuestionInput) (IngestReport, error)
  SyncFromProvider(ctx context.Context) (IngestReport, error)
}

type ingestService struct {
  db             *gorm.DB
  log            *logger.Logger
  questionRepo   repos.QuestionRepo
  provider       RowProvider
}

func NewIngestService(db *gorm.DB, log *logger.Logger, questionRepo repos.QuestionRepo, provider RowProvider) IngestService {
  serviceLog := log.With("service", "IngestService")
  return &ingestService{
    db:            db,
    log:           serviceLog,
    questionRepo:  questionRepo,
    provider:      provider,
  }
}

// IngestQuestions bulk-inserts questions. Validation is per item: an item
// with a non-positive number, an empty annotation set, or a number already
// present (in the store or earlier in the batch) is reported and skipped
// while the rest of the batch proceeds. The first stored version of a
// question always wins.
func (is *ingestService) IngestQuestions(ctx context.Context, items []QuestionInput) (IngestReport, error) {
  report := IngestReport{}
  if len(items) == 0 {
    return report, nil
  }

  numbers := make([]int64, 0, len(items))
  for _, item := range items {
    if item.QuestionNumber > 0 {
      numbers = append(numbers, item.QuestionNumber)
    }
  }
  existing, err := is.questionRepo.ExistingNumbers(ctx, nil, numbers)
  if err != nil {
    return report, fmt.Errorf("Failed to check existing question numbers: %w", err)
  }
  taken := make(map[int64]struct{}, len(existing))
  for _, n := range existing {
    taken[n] = struct{}{}
  }

  toInsert := []*types.Question{}
  for _, item := range items {
    if item.QuestionNumber <= 0 {
      report.Rejected = append(report.Rejected, RejectedQuestion{QuestionNumber: item.QuestionNumber, Reason: "question number must be positive"})
      continue
    }
    annotations := dedupeAnnotations(item.Annotations)
    if len(annotations) == 0 {
      report.Rejected = append(report.Rejected, RejectedQuestion{QuestionNumber: item.QuestionNumber, Reason: "annotation set is empty"})
      continue
    }
    if _, dup := taken[item.QuestionNumber]; dup {
      report.Rejected = append(report.Rejected, RejectedQuestion{QuestionNumber: item.QuestionNumber, Reason: "duplicate question number, first version retained"})
      continue
    }
    taken[item.QuestionNumber] = struct{}{}
    toInsert = append(toInsert, &types.Question{
      QuestionNumber: item.QuestionNumber,
      Annotations:    datatypes.NewJSONSlice(annotations),
    })
  }

  if len(toInsert) > 0 {
    if err := is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
      return is.questionRepo.CreateMany(ctx, tx, toInsert)
    }); err != nil {
      return report, fmt.Errorf("Failed to insert questions: %w", err)
    }
  }

  report.Ingested = len(toInsert)
  is.log.Info("Question ingest complete", "ingested", report.Ingested, "rejected", len(report.Rejected))
  return report, nil
}

func (is *ingestService) SyncFromProvider(ctx context.Context) (IngestReport, error) {
  if is.provider == nil {
    return IngestReport{}, fmt.Errorf("No row provider configured")
  }
  rows, err := is.provider.FetchQuestionRows(ctx)
  if err != nil {
    return IngestReport{}, fmt.Errorf("Failed to fetch question rows from provider: %w", err)
  }
  items := make([]QuestionInput, 0, len(rows))
  for _, row := range rows {
    items = append(items, QuestionInput{QuestionNumber: row.QuestionNumber, Annotations: row.Annotations})
  }
  return is.IngestQuestions(ctx, items)
}

func dedupeAnnotations(annotations []string) []string {
  seen := map[string]struct{}{}
  out := []string{}
  for _, annotation := range annotations {
    a := trimmed(annotation)
    if a == "" {
      continue
    }
    if _, ok := seen[a]; ok {
      continue
    }
    seen[a] = struct{}{}
    out = append(out, a)
  }
  return out
}
