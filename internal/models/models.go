package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"      json:"id"`
	Username     string    `gorm:"size:50;not null"              json:"username"`
	Email        string    `gorm:"size:250;uniqueIndex;not null" json:"email"`
	Password     string    `gorm:"size:255;not null"             json:"-"`
	Avatar       *string   `gorm:"size:255"                      json:"avatar"`
	RefreshToken *string   `gorm:"type:text"                     json:"-"`
	Confirmed    bool      `gorm:"default:false"                 json:"confirmed"`
	CreatedAt    time.Time `                                     json:"created_at"`
}

type Contact struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"     json:"id"`
	FirstName   string    `gorm:"size:20;not null;index"       json:"first_name"`
	LastName    string    `gorm:"size:20;not null;index"       json:"last_name"`
	Email       string    `gorm:"size:50;uniqueIndex;not null" json:"email"`
	Phone       string    `gorm:"size:12;uniqueIndex;not null" json:"phone"`
	Birthday    Date      `gorm:"type:date;not null"           json:"birthday"`
	Description string    `gorm:"size:250"                     json:"description"`
	UserID      uint      `gorm:"index;not null"               json:"-"`
	User        *User     `gorm:"constraint:OnDelete:CASCADE"  json:"-"`
	CreatedAt   time.Time `                                    json:"created_at"`
	UpdatedAt   time.Time `                                    json:"updated_at"`
}

func All() []any {
	return []any{&User{}, &Contact{}}
}
