package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StartingCash is credited to every account at registration.
var StartingCash = decimal.NewFromInt(10000)

// User is an account of the simulator. Hash holds the bcrypt hash of the
// password, never the password itself.
type User struct {
	gorm.Model
	Username string          `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Hash     string          `gorm:"not null" json:"-"`
	Cash     decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"cash"`
}
