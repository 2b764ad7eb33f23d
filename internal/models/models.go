package models

import (
	"time"

	"github.com/Skotchmaster/church_members/internal/domain"
)

type User struct {
	ID           uint        `gorm:"primaryKey;autoIncrement"          json:"id"`
	Email        string      `gorm:"size:120;uniqueIndex;not null"     json:"email"`
	PasswordHash string      `gorm:"size:128;not null"                 json:"-"`
	Role         domain.Role `gorm:"size:20;not null;default:USER"     json:"role"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

type Member struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RegisterDate time.Time `gorm:"not null"                 json:"registerDate"`
	Name         string    `gorm:"size:50;not null;index"   json:"name"`
	BirthYear    int       `gorm:"not null"                 json:"birthYear"`
	BirthMonth   int       `gorm:"not null"                 json:"birthMonth"`
	BirthDay     int       `gorm:"not null"                 json:"birthDay"`
	Phone        string    `gorm:"size:20;not null"         json:"phone"`
	Gender       string    `gorm:"size:10"                  json:"gender"`
	Address      string    `gorm:"size:100"                 json:"address"`
	City         string    `gorm:"size:50"                  json:"city"`
	State        string    `gorm:"size:2"                   json:"state"`
	Zipcode      string    `gorm:"size:10"                  json:"zipcode"`
	District     string    `gorm:"size:50;index"            json:"district"`
	Spouse       string    `gorm:"size:50"                  json:"spouse"`
	Position     string    `gorm:"size:50;index"            json:"position"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RevokedToken backs the relational revocation ledger. Rows past ExpiresAt are dead and
// get purged.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"`
	JTI       string    `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

func All() []any {
	return []any{&User{}, &Member{}, &RevokedToken{}}
}
