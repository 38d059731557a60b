package db

import "time"

// Symbol represents a stock symbol in the local catalogue.
type Symbol struct {
	Symbol    string    `gorm:"primaryKey" json:"symbol"`
	Name      string    `gorm:"index" json:"name"`
	Data      string    `json:"data"` // raw market summary JSON, may be empty
	UpdatedAt time.Time `json:"updated_at"`
}
