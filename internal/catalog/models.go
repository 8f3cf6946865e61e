package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Workflow is a stored workflow definition. Definitions are authored
// externally and treated as read-only data; the engine never edits them.
type Workflow struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	DocType     string         `gorm:"not null;index" json:"doc_type"`
	Description string         `json:"description"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	Data        datatypes.JSON `gorm:"not null" json:"data"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Workflow) TableName() string {
	return "workflows"
}
