// internal/services/notification_service.go
package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/campuswell/wellness-loans/internal/models"
)

// NotificationService records loan state changes and fans them out to
// connected dashboards. Each committed transition produces one LoanEvent row
// and one message on the Redis event channel; the push transport consuming
// that channel lives outside this service. Delivery failures are logged and
// never fail the transition that produced the event.
type NotificationService struct {
	db      *gorm.DB
	redis   *redis.Client
	channel string
}

type LoanEventPayload struct {
	LoanID     uuid.UUID         `json:"loan_id"`
	BorrowerID uuid.UUID         `json:"borrower_id"`
	ItemID     uuid.UUID         `json:"item_id"`
	FromStatus models.LoanStatus `json:"from_status,omitempty"`
	ToStatus   models.LoanStatus `json:"to_status"`
	ActorID    *uuid.UUID        `json:"actor_id,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func NewNotificationService(db *gorm.DB, redisClient *redis.Client, channel string) *NotificationService {
	if channel == "" {
		channel = "loan-events"
	}
	return &NotificationService{
		db:      db,
		redis:   redisClient,
		channel: channel,
	}
}

func (s *NotificationService) LoanStateChanged(ctx context.Context, loan *models.Loan, from models.LoanStatus, actorID *uuid.UUID) {
	occurredAt := time.Now().UTC()

	event := &models.LoanEvent{
		LoanID:     loan.ID,
		FromStatus: from,
		ToStatus:   loan.Status,
		ActorID:    actorID,
		OccurredAt: occurredAt,
	}

	if err := s.db.Create(event).Error; err != nil {
		logrus.WithError(err).WithField("loan_id", loan.ID).Error("Failed to record loan event")
	}

	if s.redis == nil {
		return
	}

	payload, err := json.Marshal(LoanEventPayload{
		LoanID:     loan.ID,
		BorrowerID: loan.BorrowerID,
		ItemID:     loan.ItemID,
		FromStatus: from,
		ToStatus:   loan.Status,
		ActorID:    actorID,
		OccurredAt: occurredAt,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to encode loan event payload")
		return
	}

	if err := s.redis.Publish(ctx, s.channel, payload).Err(); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"loan_id": loan.ID,
			"channel": s.channel,
		}).Warn("Failed to publish loan event")
	}
}

// RecentEvents returns the latest recorded transitions, newest first.
func (s *NotificationService) RecentEvents(limit int) ([]models.LoanEvent, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var events []models.LoanEvent
	err := s.db.Order("occurred_at DESC").Limit(limit).Find(&events).Error
	return events, err
}
