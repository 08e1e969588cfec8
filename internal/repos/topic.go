package repos

import (
  "context"
  "fmt"
  "gorm.io/datatypes"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/yungbote/pencilbase-backend/internal/logger"
  "github.com/yungbote/pencilbase-backend/internal/types"
)

type TopicRepo interface {
  UpsertMany(ctx context.Context, tx *gorm.DB, topics []*types.Topic) error
  GetByNames(ctx context.Context, tx *gorm.DB, names []string) ([]*types.Topic, error)
  GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Topic, error)
  SetQuestionIDs(ctx context.Context, tx *gorm.DB, topicName string, questionIDs []int64) error
}

type topicRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewTopicRepo(db *gorm.DB, baseLog *logger.Logger) TopicRepo {
  repoLog := baseLog.With("repo", "TopicRepo")
  return &topicRepo{db: db, log: repoLog}
}

// UpsertMany inserts or merges topics by name. A conflicting name keeps its
// row: level, parent and children are overwritten by the new build, while
// question_ids and position survive so rebuilds neither clear the
// reconciled cache nor reshuffle GetAll ordering.
func (tr *topicRepo) UpsertMany(ctx context.Context, tx *gorm.DB, topics []*types.Topic) error {
  transaction := tx
  if transaction == nil {
    transaction = tr.db
  }

  if len(topics) == 0 {
    return nil
  }

  if err := transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns:   []clause.Column{{Name: "topic_name"}},
      DoUpdates: clause.AssignmentColumns([]string{"topic_level", "parent_topic", "sub_topics", "updated_at"}),
    }).
    Create(&topics).Error; err != nil {
    return err
  }

  return nil
}

func (tr *topicRepo) GetByNames(ctx context.Context, tx *gorm.DB, names []string) ([]*types.Topic, error) {
  transaction := tx
  if transaction == nil {
    transaction = tr.db
  }

  var results []*types.Topic
  if len(names) == 0 {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("topic_name IN ?", names).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (tr *topicRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Topic, error) {
  transaction := tx
  if transaction == nil {
    transaction = tr.db
  }

  var results []*types.Topic

  if err := transaction.WithContext(ctx).
    Order("position asc").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

// SetQuestionIDs is a single-column UPDATE, so the persisted list for one
// topic is always the output of exactly one reconciliation pass.
func (tr *topicRepo) SetQuestionIDs(ctx context.Context, tx *gorm.DB, topicName string, questionIDs []int64) error {
  transaction := tx
  if transaction == nil {
    transaction = tr.db
  }

  if questionIDs == nil {
    questionIDs = []int64{}
  }

  result := transaction.WithContext(ctx).
    Model(&types.Topic{}).
    Where("topic_name = ?", topicName).
    Update("question_ids", datatypes.NewJSONSlice(questionIDs))
  if result.Error != nil {
    return result.Error
  }
  if result.RowsAffected == 0 {
    return fmt.Errorf("No topic named %q to update", topicName)
  }
  return nil
}
