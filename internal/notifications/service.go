package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"procureflow/back-office/back-office-backend/internal/notifications/websocket"
)

// Service persists notifications and pushes them to connected clients.
type Service struct {
	db     *gorm.DB
	ws     *websocket.Manager
	logger *zap.Logger
}

func NewService(db *gorm.DB, ws *websocket.Manager, logger *zap.Logger) *Service {
	return &Service{db: db, ws: ws, logger: logger}
}

// NotifyUsers stores one notification per recipient and pushes each over any
// live websocket connection. A partial failure is logged and does not stop
// the remaining recipients.
func (s *Service) NotifyUsers(ctx context.Context, userIDs []string, template Notification) {
	for _, userID := range userIDs {
		n := template
		n.ID = uuid.New()
		n.UserID = userID

		if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
			s.logger.Error("failed to persist notification",
				zap.String("user_id", userID),
				zap.String("doc_no", template.DocNo),
				zap.Error(err))
			continue
		}

		s.ws.SendToUser(userID, websocket.Message{Type: "notification", Payload: n})
	}
}

// ListForUser returns a user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var list []Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

// UnreadCount returns how many unread notifications a user has.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead marks one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID, userID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error
}

// MarkAllRead marks every unread notification of the user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error
}
