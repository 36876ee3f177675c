package models

import (
	"gorm.io/gorm"
)

// Machine is an application machine, typically a sprayer.
type Machine struct {
	gorm.Model
	Name     string  `gorm:"not null" json:"name"`
	Type     string  `json:"type"`
	Capacity float64 `gorm:"not null" json:"capacity"` // carrier tank litres
}
