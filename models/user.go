package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account that owns study blocks
type User struct {
	ID           string    `gorm:"primaryKey;size:21" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:320;not null" json:"email"`
	Name         string    `gorm:"size:120" json:"name"`
	PasswordHash string    `gorm:"size:72;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	StudyBlocks []StudyBlock `gorm:"foreignKey:UserID" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	u.ID, err = newID(u.ID)
	return err
}
