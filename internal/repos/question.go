package repos

import (
  "context"
  "strings"
  "gorm.io/gorm"
  "github.com/yungbote/pencilbase-backend/internal/logger"
  "github.com/yungbote/pencilbase-backend/internal/types"
)

type QuestionRepo interface {
  CreateMany(ctx context.Context, tx *gorm.DB, questions []*types.Question) error
  GetByNumbers(ctx context.Context, tx *gorm.DB, numbers []int64) ([]*types.Question, error)
  ExistingNumbers(ctx context.Context, tx *gorm.DB, numbers []int64) ([]int64, error)
  GetByAnyAnnotation(ctx context.Context, tx *gorm.DB, topicNames []string) ([]int64, error)
}

type questionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
  repoLog := baseLog.With("repo", "QuestionRepo")
  return &questionRepo{db: db, log: repoLog}
}

func (qr *questionRepo) CreateMany(ctx context.Context, tx *gorm.DB, questions []*types.Question) error {
  transaction := tx
  if transaction == nil {
    transaction = qr.db
  }

  if len(questions) == 0 {
    return nil
  }

  if err := transaction.WithContext(ctx).Create(&questions).Error; err != nil {
    return err
  }

  return nil
}

func (qr *questionRepo) GetByNumbers(ctx context.Context, tx *gorm.DB, numbers []int64) ([]*types.Question, error) {
  transaction := tx
  if transaction == nil {
    transaction = qr.db
  }

  var results []*types.Question
  if len(numbers) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("question_number IN ?", numbers).
    Order("question_number asc").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (qr *questionRepo) ExistingNumbers(ctx context.Context, tx *gorm.DB, numbers []int64) ([]int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = qr.db
  }

  var existing []int64
  if len(numbers) == 0 {
    return existing, nil
  }

  if err := transaction.WithContext(ctx).
    Model(&types.Question{}).
    Where("question_number IN ?", numbers).
    Order("question_number asc").
    Pluck("question_number", &existing).Error; err != nil {
    return nil, err
  }
  return existing, nil
}

// GetByAnyAnnotation returns the numbers of every question whose annotation
// set intersects topicNames, ordered ascending so results are deterministic
// for a given store state. On Postgres the intersection runs in SQL against
// the JSONB annotations column; other dialects (sqlite in tests) scan and
// filter in Go under the same contract.
func (qr *questionRepo) GetByAnyAnnotation(ctx context.Context, tx *gorm.DB, topicNames []string) ([]int64, error) {
  transaction := tx
  if transaction == nil {
    transaction = qr.db
  }

  numbers := []int64{}
  if len(topicNames) == 0 {
    return numbers, nil
  }

  if transaction.Dialector.Name() == "postgres" {
    placeholders := strings.TrimSuffix(strings.Repeat("?,", len(topicNames)), ",")
    args := make([]interface{}, 0, len(topicNames))
    for _, name := range topicNames {
      args = append(args, name)
    }
    if err := transaction.WithContext(ctx).
      Model(&types.Question{}).
      Where("jsonb_exists_any(annotations::jsonb, ARRAY["+placeholders+"])", args...).
      Order("question_number asc").
      Pluck("question_number", &numbers).Error; err != nil {
      return nil, err
    }
    return numbers, nil
  }

  wanted := make(map[string]struct{}, len(topicNames))
  for _, name := range topicNames {
    wanted[name] = struct{}{}
  }

  var all []*types.Question
  if err := transaction.WithContext(ctx).
    Order("question_number asc").
    Find(&all).Error; err != nil {
    return nil, err
  }
  for _, q := range all {
    for _, annotation := range q.Annotations {
      if _, ok := wanted[annotation]; ok {
        numbers = append(numbers, q.QuestionNumber)
        break
      }
    }
  }
  return numbers, nil
}
