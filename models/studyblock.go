package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusActive   = "ACTIVE"
	StatusArchived = "ARCHIVED"
)

// Weekdays are the day codes accepted in StudyBlock.DaysOfWeek, Sunday first.
var Weekdays = []string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

// StudyBlock is an exam or course preparation window
type StudyBlock struct {
	ID         string                      `gorm:"primaryKey;size:21" json:"id"`
	Title      string                      `gorm:"not null;size:200" json:"title"`
	StartDate  time.Time                   `gorm:"not null" json:"startDate"`
	EndDate    time.Time                   `gorm:"not null;index" json:"endDate"`
	TotalHours int                         `gorm:"not null" json:"totalHours"` // hours per day
	DaysOfWeek datatypes.JSONSlice[string] `gorm:"not null" json:"daysOfWeek"`
	Content    string                      `gorm:"type:text;not null" json:"content"`
	Status     string                      `gorm:"size:20;not null;default:ACTIVE;index" json:"status"`
	UserID     string                      `gorm:"size:21;not null;index" json:"userId"`
	User       *User                       `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	CreatedAt  time.Time                   `json:"createdAt"`
	UpdatedAt  time.Time                   `json:"updatedAt"`

	Tasks []Task `gorm:"foreignKey:StudyBlockID;constraint:OnDelete:CASCADE;" json:"tasks"`
}

func (b *StudyBlock) BeforeCreate(tx *gorm.DB) (err error) {
	b.ID, err = newID(b.ID)
	return err
}

// StudiesOn reports whether the block schedules study on the given weekday.
func (b *StudyBlock) StudiesOn(day time.Weekday) bool {
	code := Weekdays[day]
	for _, d := range b.DaysOfWeek {
		if d == code {
			return true
		}
	}
	return false
}
