// internal/models/equipment.go
package models

type EquipmentItem struct {
	BaseModel
	Name     string `json:"name" gorm:"uniqueIndex;size:200;not null"`
	Category string `json:"category" gorm:"size:50;index"`

	// AvailableUnits must always equal TotalUnits minus the number of
	// loans on this item in an outstanding state. The lifecycle engine is
	// the only code that adjusts it.
	TotalUnits     int  `json:"total_units" gorm:"not null;check:total_units >= 0"`
	AvailableUnits int  `json:"available_units" gorm:"not null;check:available_units >= 0"`
	Active         bool `json:"active" gorm:"not null;default:true"`

	PhotoURL string `json:"photo_url,omitempty" gorm:"size:500"`

	// Relationships
	Loans []Loan `json:"loans,omitempty" gorm:"foreignKey:ItemID"`
}
