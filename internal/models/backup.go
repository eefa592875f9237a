package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BackupTrigger identifies what requested a snapshot
type BackupTrigger string

const (
	BackupAuto   BackupTrigger = "auto"
	BackupManual BackupTrigger = "manual"
)

// BackupSnapshot is an immutable, timestamped copy of the pending operation
// queue kept for disaster recovery. Rows are only appended, never updated;
// old ones are pruned by age.
type BackupSnapshot struct {
	ID             string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Trigger        BackupTrigger  `gorm:"type:varchar(10);not null" json:"trigger"`
	OperationCount int            `gorm:"not null;default:0" json:"operationCount"`
	Payload        datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"createdAt"`
}

// TableName specifies the table name
func (BackupSnapshot) TableName() string {
	return "backups"
}

// BeforeCreate hook
func (b *BackupSnapshot) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// SyncState is the single-row bookkeeping table for device-level timestamps
type SyncState struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	LastSyncAt   *time.Time `json:"lastSyncAt"`
	LastBackupAt *time.Time `json:"lastBackupAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// TableName specifies the table name
func (SyncState) TableName() string {
	return "sync_state"
}
