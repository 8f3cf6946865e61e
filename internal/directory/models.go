package directory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Department is an organizational unit documents are raised under.
type Department struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Department) TableName() string {
	return "departments"
}

// DepartmentMember links a user to a department. A stage with
// department-wide access resolves to these rows.
type DepartmentMember struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DepartmentID string    `gorm:"not null;index" json:"department_id"`
	UserID       string    `gorm:"not null;index" json:"user_id"`
	JoinedAt     time.Time `json:"joined_at"`
}

func (DepartmentMember) TableName() string {
	return "department_members"
}
