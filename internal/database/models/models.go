package models

import (
	"time"

	"gorm.io/datatypes"
)

// Document is the extraction record for one stored upload. A re-upload with
// the same owner and filename replaces the row.
type Document struct {
	ID           uint                                  `gorm:"primaryKey" json:"id"`
	Owner        string                                `gorm:"not null;size:50;uniqueIndex:idx_owner_filename" json:"owner"`
	Filename     string                                `gorm:"not null;size:255;uniqueIndex:idx_owner_filename" json:"filename"`
	Kind         string                                `gorm:"not null;size:10;index" json:"kind"`
	StoragePath  string                                `gorm:"not null;size:1024" json:"storage_path"`
	FileSize     int64                                 `gorm:"not null" json:"file_size"`
	Hash         string                                `gorm:"size:64" json:"hash"`
	Text         string                                `gorm:"type:text" json:"text"`
	ExtractError string                                `gorm:"size:500" json:"extract_error,omitempty"`
	Metadata     datatypes.JSONType[map[string]string] `json:"metadata"` // docconv meta, e.g. page count
	CreatedAt    time.Time                             `json:"created_at"`
	UpdatedAt    time.Time                             `json:"updated_at"`
}
