package models

import (
	"gorm.io/gorm"
)

// Parcel is a piece of land that treatments are applied to.
type Parcel struct {
	gorm.Model
	Name         string  `gorm:"not null" json:"name"`
	Area         float64 `gorm:"not null" json:"area"` // hectares
	Crop         string  `gorm:"not null" json:"crop"`
	PlantingYear int     `json:"planting_year"`
	Location     string  `json:"location"`
}
