package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app notification delivered to one user.
type Notification struct {
	ID        uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID    string     `json:"user_id" gorm:"not null;index"`
	Title     string     `json:"title" gorm:"not null"`
	Message   string     `json:"message" gorm:"not null"`
	DocType   string     `json:"doc_type" gorm:"index"`
	DocID     uuid.UUID  `json:"doc_id" gorm:"type:uuid;index"`
	DocNo     string     `json:"doc_no"`
	Action    string     `json:"action"`
	IsRead    bool       `json:"is_read" gorm:"default:false"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
