// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeStudent UserType = "student"
	UserTypeAdmin   UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
)

// LoanStatus is the closed set of lifecycle states a loan can be in.
// Transitions between them are owned by the lifecycle package.
type LoanStatus string

const (
	LoanStatusRequested LoanStatus = "requested"
	LoanStatusActive    LoanStatus = "active"
	LoanStatusReturned  LoanStatus = "returned"
	LoanStatusOverdue   LoanStatus = "overdue"
	LoanStatusLost      LoanStatus = "lost"
	LoanStatusRejected  LoanStatus = "rejected"
)

// Terminal reports whether no further transition is legal from s.
func (s LoanStatus) Terminal() bool {
	switch s {
	case LoanStatusReturned, LoanStatusLost, LoanStatusRejected:
		return true
	}
	return false
}

// Outstanding reports whether a loan in this state holds a unit of its item.
func (s LoanStatus) Outstanding() bool {
	return s == LoanStatusActive || s == LoanStatusOverdue
}

// TimeStatus is the read-time classification of an active loan against its
// estimated end time.
type TimeStatus string

const (
	TimeStatusOnTime     TimeStatus = "on_time"
	TimeStatusNearExpiry TimeStatus = "near_expiry"
	TimeStatusOverdue    TimeStatus = "overdue"
)
