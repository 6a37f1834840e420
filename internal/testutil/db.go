package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/andrewpaige1/studyplan-api/models"
)

// SetupTestDB opens a private in-memory sqlite database with every model
// migrated. It is closed when the test ends.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to access underlying DB: %v", err)
	}
	// one connection keeps background jobs and the test from tripping over
	// shared-cache table locks
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
	})
	return gdb
}

func CreateUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	u := models.User{Email: email, Name: strings.Split(email, "@")[0], PasswordHash: "x"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

func CreateStudyBlock(t *testing.T, db *gorm.DB, user models.User, title string, start, end time.Time) models.StudyBlock {
	t.Helper()
	b := models.StudyBlock{
		Title:      title,
		StartDate:  start.UTC(),
		EndDate:    end.UTC(),
		TotalHours: 2,
		DaysOfWeek: []string{"MON", "WED", "FRI"},
		Content:    "Chapter 1: cells. Chapter 2: genetics.",
		Status:     models.StatusActive,
		UserID:     user.ID,
	}
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("failed to create study block: %v", err)
	}
	return b
}

func CreateTask(t *testing.T, db *gorm.DB, block models.StudyBlock, title, taskType string, due time.Time) models.Task {
	t.Helper()
	task := models.Task{
		Title:        title,
		Description:  "Work through " + title,
		DueDate:      due.UTC(),
		TaskType:     taskType,
		StudyBlockID: block.ID,
		UserID:       block.UserID,
	}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return task
}
