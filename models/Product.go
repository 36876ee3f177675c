package models

import (
	"strings"

	"gorm.io/gorm"
)

const (
	ApplicationSpraying    = "spraying"
	ApplicationFertigation = "fertigation"
)

var doseTypeLabels = map[string]string{
	"l_per_1000l":  "L/1000L agua",
	"kg_per_1000l": "kg/1000L agua",
	"l_per_2000l":  "L/2000L agua",
	"kg_per_2000l": "kg/2000L agua",
	"pct":          "%",
	"l_per_ha":     "L/ha",
	"kg_per_ha":    "kg/ha",
}

// Product is a catalogue product with a default dose per application method.
type Product struct {
	gorm.Model
	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Category string `json:"category"` // fertilizer | pesticide
	Comments string `gorm:"type:text" json:"comments"`

	// --- Spraying defaults ---
	SprayingDose     *float64 `json:"spraying_dose,omitempty"`
	SprayingDoseType *string  `json:"spraying_dose_type,omitempty"`

	// --- Fertigation defaults ---
	FertigationDose     *float64 `json:"fertigation_dose,omitempty"`
	FertigationDoseType *string  `json:"fertigation_dose_type,omitempty"`
}

// Supports reports whether the product has a dose configured for the application type.
func (p Product) Supports(application string) bool {
	dose, doseType := p.DoseFor(application)
	return dose != nil && doseType != ""
}

// DoseFor returns the default dose and dose type code for the application type.
func (p Product) DoseFor(application string) (*float64, string) {
	switch strings.ToLower(strings.TrimSpace(application)) {
	case ApplicationSpraying:
		return p.SprayingDose, deref(p.SprayingDoseType)
	case ApplicationFertigation:
		return p.FertigationDose, deref(p.FertigationDoseType)
	}
	return nil, ""
}

// DoseTypeLabel returns the display label for a dose type code.
func DoseTypeLabel(code string) string {
	if label, ok := doseTypeLabels[strings.ToLower(strings.TrimSpace(code))]; ok {
		return label
	}
	return code
}

// ValidDoseType reports whether the code is a known dose type.
func ValidDoseType(code string) bool {
	_, ok := doseTypeLabels[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// LookupDoseType resolves a dose type given either as its code or as its
// display label ("L/1000L agua") to the code.
func LookupDoseType(value string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if _, ok := doseTypeLabels[normalized]; ok {
		return normalized, true
	}
	for code, label := range doseTypeLabels {
		if strings.EqualFold(label, strings.TrimSpace(value)) {
			return code, true
		}
	}
	return "", false
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
