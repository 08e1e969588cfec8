package services

import (
	"context"
	"reflect"
	"testing"

	"github.com/yungbote/pencilbase-backend/internal/clients/sheets"
	"github.com/yungbote/pencilbase-backend/internal/repos"
)

func topicRows() []sheets.TopicRow {
	return []sheets.TopicRow{
		{Level1: "Subject", Level2: "Topic", Level3: "Subtopic"},
		{Level1: "Math", Level2: "Algebra", Level3: "Linear Equations"},
		{Level1: "Math", Level2: "Algebra", Level3: "Quadratics"},
		{Level1: "Math", Level2: "Geometry", Level3: "Triangles"},
		{Level1: "Science", Level2: "Biology", Level3: "Cells"},
	}
}

func TestBuildFromRows_DropsHeadersAndBuildsTree(t *testing.T) {
	db := openTestDB(t)
	log := newTestLogger(t)
	topicRepo := repos.NewTopicRepo(db, log)
	ts := NewTaxonomyService(db, log, topicRepo, nil, nil)

	report, err := ts.BuildFromRows(context.Background(), topicRows())
	if err != nil {
		t.Fatalf("BuildFromRows: %v", err)
	}
	if report.TopicsBuilt != 9 {
		t.Fatalf("expected 9 topics built, got %d", report.TopicsBuilt)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", report.Warnings)
	}

	all, err := topicRepo.GetAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	byName := map[string]int{}
	for _, topic := range all {
		byName[topic.TopicName] = topic.TopicLevel
	}
	if byName["Subject"] != 0 || byName["Topic"] != 0 || byName["Subtopic"] != 0 {
		t.Fatalf("header values leaked into topics: %v", byName)
	}
	if byName["Math"] != 1 || byName["Algebra"] != 2 || byName["Quadratics"] != 3 {
		t.Fatalf("unexpected levels: %v", byName)
	}

	math := topicByName(t, all, "Math")
	if !reflect.DeepEqual([]string(math.SubTopics), []string{"Algebra", "Geometry"}) {
		t.Fatalf("unexpected Math children: %v", math.SubTopics)
	}
	algebra := topicByName(t, all, "Algebra")
	if algebra.ParentTopic != "Math" {
		t.Fatalf("expected Algebra parent Math, got %q", algebra.ParentTopic)
	}
	if !reflect.DeepEqual([]string(algebra.SubTopics), []string{"Linear Equations", "Quadratics"}) {
		t.Fatalf("unexpected Algebra children: %v", algebra.SubTopics)
	}
	triangles := topicByName(t, all, "Triangles")
	if triangles.ParentTopic != "Geometry" {
		t.Fatalf("expected Triangles parent Geometry, got %q", triangles.ParentTopic)
	}
	if len(triangles.SubTopics) != 0 {
		t.Fatalf("leaf should have no children: %v", triangles.SubTopics)
	}
}

func TestBuildFromRows_RebuildPreservesQuestionIDsAndOrder(t *testing.T) {
	db := openTestDB(t)
	log := newTestLogger(t)
	topicRepo := repos.NewTopicRepo(db, log)
	ts := NewTaxonomyService(db, log, topicRepo, nil, nil)
	ctx := context.Background()

	if _, err := ts.BuildFromRows(ctx, topicRows()); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if err := topicRepo.SetQuestionIDs(ctx, nil, "Algebra", []int64{3, 7}); err != nil {
		t.Fatalf("SetQuestionIDs: %v", err)
	}
	before, err := topicRepo.GetAll(ctx, nil)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}

	if _, err := ts.BuildFromRows(ctx, topicRows()); err != nil {
		t.Fatalf("second build: %v", err)
	}
	after, err := topicRepo.GetAll(ctx, nil)
	if err != nil {
		t.Fatalf("GetAll after rebuild: %v", err)
	}

	if len(after) != len(before) {
		t.Fatalf("rebuild changed topic count: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].TopicName != after[i].TopicName {
			t.Fatalf("rebuild reordered topics at %d: %q -> %q", i, before[i].TopicName, after[i].TopicName)
		}
	}
	algebra := topicByName(t, after, "Algebra")
	if !reflect.DeepEqual([]int64(algebra.QuestionIDs), []int64{3, 7}) {
		t.Fatalf("rebuild clobbered question ids: %v", algebra.QuestionIDs)
	}
}

func TestBuildFromRows_RebuildAppendsNewTopicsAfterExistingOrder(t *testing.T) {
	db := openTestDB(t)
	log := newTestLogger(t)
	topicRepo := repos.NewTopicRepo(db, log)
	ts := NewTaxonomyService(db, log, topicRepo, nil, nil)
	ctx := context.Background()

	if _, err := ts.BuildFromRows(ctx, topicRows()); err != nil {
		t.Fatalf("first build: %v", err)
	}
	first, err := topicRepo.GetAll(ctx, nil)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}

	grown := append(topicRows(), sheets.TopicRow{Level1: "Science", Level2: "Chemistry", Level3: "Atoms"})
	if _, err := ts.BuildFromRows(ctx, grown); err != nil {
		t.Fatalf("second build: %v", err)
	}
	second, err := topicRepo.GetAll(ctx, nil)
	if err != nil {
		t.Fatalf("GetAll after rebuild: %v", err)
	}

	if len(second) != len(first)+2 {
		t.Fatalf("expected %d topics after rebuild, got %d", len(first)+2, len(second))
	}
	// The pre-existing prefix keeps its order; the new names follow it.
	for i := range first {
		if second[i].TopicName != first[i].TopicName {
			t.Fatalf("rebuild disturbed existing order at %d: %q -> %q", i, first[i].TopicName, second[i].TopicName)
		}
	}
	appended := []string{second[len(first)].TopicName, second[len(first)+1].TopicName}
	if !reflect.DeepEqual(appended, []string{"Chemistry", "Atoms"}) {
		t.Fatalf("expected new topics appended in emission order, got %v", appended)
	}

	positions := map[int]string{}
	for _, topic := range second {
		if prior, dup := positions[topic.Position]; dup {
			t.Fatalf("position %d assigned to both %q and %q", topic.Position, prior, topic.TopicName)
		}
		positions[topic.Position] = topic.TopicName
	}
}

func TestBuildFromRows_WarnsOnCrossLevelDuplicate(t *testing.T) {
	db := openTestDB(t)
	log := newTestLogger(t)
	topicRepo := repos.NewTopicRepo(db, log)
	ts := NewTaxonomyService(db, log, topicRepo, nil, nil)

	rows := []sheets.TopicRow{
		{Level1: "Subject", Level2: "Topic", Level3: "Subtopic"},
		{Level1: "Math", Level2: "Algebra", Level3: "Algebra"},
	}
	report, err := ts.BuildFromRows(context.Background(), rows)
	if err != nil {
		t.Fatalf("BuildFromRows: %v", err)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", report.Warnings)
	}
	if report.Warnings[0].TopicName != "Algebra" {
		t.Fatalf("unexpected warning topic: %v", report.Warnings[0])
	}

	topics, err := topicRepo.GetByNames(context.Background(), nil, []string{"Algebra"})
	if err != nil {
		t.Fatalf("GetByNames: %v", err)
	}
	if len(topics) != 1 || topics[0].TopicLevel != 2 {
		t.Fatalf("expected Algebra kept at first-seen level 2, got %+v", topics)
	}
}

func TestBuildFromRows_CrossLevelDuplicateKeepsNoForeignEdges(t *testing.T) {
	db := openTestDB(t)
	log := newTestLogger(t)
	topicRepo := repos.NewTopicRepo(db, log)
	ts := NewTaxonomyService(db, log, topicRepo, nil, nil)

	// Algebra shows up both as a level-1 and a level-2 name. The kept
	// level-1 row must not inherit the parent or the level-3 children of
	// its level-2 occurrence.
	rows := []sheets.TopicRow{
		{Level1: "Subject", Level2: "Topic", Level3: "Subtopic"},
		{Level1: "Math", Level2: "Algebra", Level3: "X"},
		{Level1: "Algebra", Level2: "Y", Level3: ""},
	}
	report, err := ts.BuildFromRows(context.Background(), rows)
	if err != nil {
		t.Fatalf("BuildFromRows: %v", err)
	}
	if len(report.Warnings) != 1 || report.Warnings[0].TopicName != "Algebra" {
		t.Fatalf("expected a duplicate warning for Algebra, got %v", report.Warnings)
	}

	topics, err := topicRepo.GetByNames(context.Background(), nil, []string{"Algebra"})
	if err != nil {
		t.Fatalf("GetByNames: %v", err)
	}
	if len(topics) != 1 {
		t.Fatalf("expected a single Algebra row, got %d", len(topics))
	}
	algebra := topics[0]
	if algebra.TopicLevel != 1 {
		t.Fatalf("expected first-seen level 1, got %d", algebra.TopicLevel)
	}
	if algebra.ParentTopic != "" {
		t.Fatalf("level-1 topic must have no parent, got %q", algebra.ParentTopic)
	}
	if !reflect.DeepEqual([]string(algebra.SubTopics), []string{"Y"}) {
		t.Fatalf("expected only the level-2 child Y, got %v", algebra.SubTopics)
	}
}

func TestBuildFromRows_WarnsOnMultipleParents(t *testing.T) {
	db := openTestDB(t)
	log := newTestLogger(t)
	topicRepo := repos.NewTopicRepo(db, log)
	ts := NewTaxonomyService(db, log, topicRepo, nil, nil)

	rows := []sheets.TopicRow{
		{Level1: "Subject", Level2: "Topic", Level3: "Subtopic"},
		{Level1: "Math", Level2: "Algebra", Level3: "Graphs"},
		{Level1: "Math", Level2: "Geometry", Level3: "Graphs"},
	}
	report, err := ts.BuildFromRows(context.Background(), rows)
	if err != nil {
		t.Fatalf("BuildFromRows: %v", err)
	}
	if len(report.Warnings) != 1 || report.Warnings[0].TopicName != "Graphs" {
		t.Fatalf("expected a multi-parent warning for Graphs, got %v", report.Warnings)
	}

	topics, err := topicRepo.GetByNames(context.Background(), nil, []string{"Graphs"})
	if err != nil {
		t.Fatalf("GetByNames: %v", err)
	}
	if len(topics) != 1 || topics[0].ParentTopic != "Algebra" {
		t.Fatalf("expected first-observed parent Algebra, got %+v", topics)
	}
}

func TestBuildFromRows_IgnoresBlankCells(t *testing.T) {
	db := openTestDB(t)
	log := newTestLogger(t)
	topicRepo := repos.NewTopicRepo(db, log)
	ts := NewTaxonomyService(db, log, topicRepo, nil, nil)

	rows := []sheets.TopicRow{
		{Level1: "Subject", Level2: "Topic", Level3: "Subtopic"},
		{Level1: "Math", Level2: "  Algebra  ", Level3: ""},
		{Level1: "", Level2: "", Level3: ""},
	}
	report, err := ts.BuildFromRows(context.Background(), rows)
	if err != nil {
		t.Fatalf("BuildFromRows: %v", err)
	}
	if report.TopicsBuilt != 2 {
		t.Fatalf("expected Math and Algebra only, got %d topics", report.TopicsBuilt)
	}

	topics, err := topicRepo.GetByNames(context.Background(), nil, []string{"Algebra"})
	if err != nil {
		t.Fatalf("GetByNames: %v", err)
	}
	if len(topics) != 1 {
		t.Fatalf("expected trimmed Algebra to exist, got %v", topics)
	}
}

func TestRebuildFromProvider_NoProvider(t *testing.T) {
	db := openTestDB(t)
	log := newTestLogger(t)
	ts := NewTaxonomyService(db, log, repos.NewTopicRepo(db, log), nil, nil)

	if _, err := ts.RebuildFromProvider(context.Background()); err == nil {
		t.Fatalf("expected error without a configured provider")
	}
}
