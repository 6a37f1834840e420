package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TaskTypeLearn    = "learn"
	TaskTypePractice = "practice"
	TaskTypeReview   = "review"
)

var TaskTypes = []string{TaskTypeLearn, TaskTypePractice, TaskTypeReview}

func IsTaskType(s string) bool {
	for _, t := range TaskTypes {
		if s == t {
			return true
		}
	}
	return false
}

// Task is a single dated unit of work generated for a study block
type Task struct {
	ID               string     `gorm:"primaryKey;size:21" json:"id"`
	Title            string     `gorm:"not null;size:300" json:"title"`
	Description      string     `gorm:"type:text" json:"description"`
	DueDate          time.Time  `gorm:"not null;index:idx_task_user_due" json:"dueDate"`
	TaskType         string     `gorm:"size:20;not null" json:"taskType"`
	EstimatedMinutes int        `gorm:"not null;default:0" json:"estimatedMinutes"`
	Completed        bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt      *time.Time `json:"completedAt"`

	// Summary is generated Markdown; Materials is its structured form.
	Summary         *string        `gorm:"type:text" json:"summary"`
	Materials       datatypes.JSON `json:"materials,omitempty"`
	LastSummaryDate *time.Time     `json:"lastSummaryDate"`

	StudyBlockID string      `gorm:"size:21;not null;index" json:"studyBlockId"`
	StudyBlock   *StudyBlock `gorm:"foreignKey:StudyBlockID" json:"-"`
	UserID       string      `gorm:"size:21;not null;index:idx_task_user_due" json:"userId"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) (err error) {
	t.ID, err = newID(t.ID)
	return err
}
