package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

// Topic is one node of the three-level taxonomy, stored denormalized:
// the parent and the direct children are name references, never embedded
// rows, so resolving a subtree never re-queries per level.
type Topic struct {
  ID            uuid.UUID                     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  TopicName     string                        `gorm:"uniqueIndex;not null;column:topic_name" json:"topic_name"`
  TopicLevel    int                           `gorm:"not null;column:topic_level" json:"topic_level"`
  ParentTopic   string                        `gorm:"column:parent_topic" json:"parent_topic,omitempty"`
  SubTopics     datatypes.JSONSlice[string]   `gorm:"column:sub_topics" json:"sub_topics"`
  // QuestionIDs is written only by the reconciliation job. NULL means the
  // topic has never been reconciled; an empty array means reconciled with
  // zero matches.
  QuestionIDs   datatypes.JSONSlice[int64]    `gorm:"column:question_ids" json:"question_ids,omitempty"`
  Position      int                           `gorm:"not null;column:position" json:"-"`
  CreatedAt     time.Time                     `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt     time.Time                     `gorm:"not null;default:now()" json:"updated_at"`
}

func (Topic) TableName() string {
  return "topic"
}
