package eventlog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReceiptRecord is the persisted header of a committed call.
type ReceiptRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReceiptID string    `gorm:"size:64;uniqueIndex"`
	Sequence  uint64    `gorm:"uniqueIndex"`
	Operation string    `gorm:"size:64;index"`
	Caller    string    `gorm:"size:128;index"`
	Timestamp uint64    `gorm:"index"`
	CreatedAt time.Time
	Events    []EventRecord `gorm:"foreignKey:ReceiptRowID"`
}

// EventRecord stores one event of a receipt. Attributes hold the JSON encoded
// attribute map.
type EventRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReceiptRowID uuid.UUID `gorm:"type:uuid;index"`
	Sequence     uint64    `gorm:"index"`
	Position     int
	Type         string `gorm:"size:64;index"`
	Attributes   string `gorm:"type:text"`
}

// AutoMigrate creates or updates the journal tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ReceiptRecord{}, &EventRecord{})
}
