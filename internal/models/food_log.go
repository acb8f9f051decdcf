package models

import (
	"time"
)

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// Valid reports whether m is one of the four meal slots.
func (m MealType) Valid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	}
	return false
}

// FoodLogEntry is one logged food. Its macros were added to the daily
// record for Date when it was logged, and are subtracted again if the entry
// is deleted.
type FoodLogEntry struct {
	ID        string     `json:"id"`
	Date      string     `json:"date"`
	Meal      MealType   `json:"meal"`
	Name      string     `json:"name"`
	Servings  float64    `json:"servings"`
	Macros    MacroDelta `json:"macros"`
	Deleted   bool       `json:"deleted,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}
