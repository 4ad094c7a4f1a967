// internal/models/loan.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Loan struct {
	BaseModel
	BorrowerID uuid.UUID  `json:"borrower_id" gorm:"type:uuid;not null;index"`
	ItemID     uuid.UUID  `json:"item_id" gorm:"type:uuid;not null;index"`
	Status     LoanStatus `json:"status" gorm:"type:varchar(20);default:'requested';index"`

	// RequestedAt is when the borrower (or admin) filed the loan.
	// StartTime/EstimatedEndTime are set on approval, ActualEndTime on
	// return or loss. A requested loan carries no start/end times.
	RequestedAt        time.Time  `json:"requested_at" gorm:"not null"`
	RequestedStartTime *time.Time `json:"requested_start_time"`
	StartTime          *time.Time `json:"start_time"`
	EstimatedEndTime   *time.Time `json:"estimated_end_time" gorm:"index"`
	ActualEndTime      *time.Time `json:"actual_end_time"`

	ApprovedAt      *time.Time `json:"approved_at"`
	ApprovedBy      *uuid.UUID `json:"approved_by" gorm:"type:uuid"`
	RejectedAt      *time.Time `json:"rejected_at"`
	RejectionReason string     `json:"rejection_reason,omitempty" gorm:"type:text"`

	// Relationships
	Borrower User          `json:"borrower,omitempty" gorm:"foreignKey:BorrowerID"`
	Item     EquipmentItem `json:"item,omitempty" gorm:"foreignKey:ItemID"`
	Approver *User         `json:"approver,omitempty" gorm:"foreignKey:ApprovedBy"`
}
