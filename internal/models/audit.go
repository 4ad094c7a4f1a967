// internal/models/audit.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:255;not null"`
	ResourceType string     `json:"resource_type" gorm:"size:50;index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"size:500"`
	NewValues    JSONB      `json:"new_values" gorm:"type:jsonb"`
}

// LoanEvent records one committed state transition. One row is written per
// transition and the same payload is published for dashboard push.
type LoanEvent struct {
	BaseModel
	LoanID     uuid.UUID  `json:"loan_id" gorm:"type:uuid;not null;index"`
	FromStatus LoanStatus `json:"from_status" gorm:"type:varchar(20)"`
	ToStatus   LoanStatus `json:"to_status" gorm:"type:varchar(20);not null"`
	ActorID    *uuid.UUID `json:"actor_id" gorm:"type:uuid"`
	OccurredAt time.Time  `json:"occurred_at" gorm:"not null;index"`
}
