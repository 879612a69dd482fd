package entities

import "time"

// KVEntry is one row of the key/value store. Version starts at 1 on insert
// and increases on every write to the key.
type KVEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:255;not null" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	Version   int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
