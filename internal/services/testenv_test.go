package services

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/pencilbase-backend/internal/logger"
	"github.com/yungbote/pencilbase-backend/internal/types"
)

// Schema equivalent to the Postgres one, minus the server-side defaults
// sqlite cannot evaluate.
var testDDL = []string{
	`CREATE TABLE topic (
		id            text PRIMARY KEY,
		topic_name    text NOT NULL UNIQUE,
		topic_level   integer NOT NULL,
		parent_topic  text,
		sub_topics    text,
		question_ids  text,
		position      integer NOT NULL DEFAULT 0,
		created_at    datetime,
		updated_at    datetime
	)`,
	`CREATE TABLE question (
		id               text PRIMARY KEY,
		question_number  integer NOT NULL UNIQUE,
		annotations      text NOT NULL,
		created_at       datetime,
		updated_at       datetime
	)`,
	`CREATE TABLE user (
		id                 text PRIMARY KEY,
		email              text NOT NULL UNIQUE,
		password           text NOT NULL,
		first_name         text NOT NULL,
		last_name          text NOT NULL,
		is_admin           integer NOT NULL DEFAULT 0,
		avatar_bucket_key  text,
		avatar_url         text,
		created_at         datetime,
		updated_at         datetime
	)`,
	`CREATE TABLE user_token (
		id             text PRIMARY KEY,
		user_id        text NOT NULL,
		access_token   text NOT NULL,
		refresh_token  text NOT NULL UNIQUE,
		expires_at     datetime NOT NULL,
		created_at     datetime,
		updated_at     datetime
	)`,
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// A fresh connection would be a fresh empty :memory: database.
	sqlDB.SetMaxOpenConns(1)
	for _, ddl := range testDDL {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func topicByName(t *testing.T, topics []*types.Topic, name string) *types.Topic {
	t.Helper()
	for _, topic := range topics {
		if topic.TopicName == name {
			return topic
		}
	}
	t.Fatalf("topic %q not found", name)
	return nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}
