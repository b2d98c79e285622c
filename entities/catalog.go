package entities

import (
	"github.com/google/uuid"
)

type Tag struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name  string    `gorm:"size:150;uniqueIndex;not null" json:"name"`
	Color string    `gorm:"size:7;uniqueIndex;not null;default:'#49B64E'" json:"color"`
	Slug  string    `gorm:"size:150;uniqueIndex;not null" json:"slug"`
}

// Ingredient names repeat across units ("Salt, g" and "Salt, pinch"), the pair is unique.
type Ingredient struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name            string    `gorm:"size:150;not null;uniqueIndex:idx_ingredient_name_unit;index:idx_ingredient_name" json:"name"`
	MeasurementUnit string    `gorm:"size:150;not null;uniqueIndex:idx_ingredient_name_unit" json:"measurement_unit"`
}
