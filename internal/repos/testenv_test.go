package repos

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/pencilbase-backend/internal/logger"
)

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
	sqlDB.SetMaxOpenConns(1)
	for _, ddl := range testDDL {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}
