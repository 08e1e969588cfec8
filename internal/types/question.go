package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

type Question struct {
  ID               uuid.UUID                    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  QuestionNumber   int64                        `gorm:"uniqueIndex;not null;column:question_number" json:"question_number"`
  Annotations      datatypes.JSONSlice[string]  `gorm:"not null;column:annotations" json:"annotations"`
  CreatedAt        time.Time                    `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt        time.Time                    `gorm:"not null;default:now()" json:"updated_at"`
}

func (Question) TableName() string {
  return "question"
}
