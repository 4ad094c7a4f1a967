// internal/models/program.go
package models

type Program struct {
	BaseModel
	Name   string `json:"name" gorm:"size:200;not null"`
	Code   string `json:"code" gorm:"uniqueIndex;size:20;not null"`
	Active bool   `json:"active" gorm:"not null;default:true"`

	// Relationships
	Students []User `json:"students,omitempty" gorm:"foreignKey:ProgramID"`
}
