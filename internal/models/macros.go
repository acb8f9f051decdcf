package models

import (
	"time"
)

// MacroDelta is an amount added to or removed from a day's totals.
// Missing JSON fields decode as zero.
type MacroDelta struct {
	Calories float64 `json:"calories" bson:"calories"`
	Protein  float64 `json:"protein" bson:"protein"`
	Carbs    float64 `json:"carbs" bson:"carbs"`
	Fats     float64 `json:"fats" bson:"fats"`
}

// Plus returns the field-wise sum of d and o.
func (d MacroDelta) Plus(o MacroDelta) MacroDelta {
	return MacroDelta{
		Calories: d.Calories + o.Calories,
		Protein:  d.Protein + o.Protein,
		Carbs:    d.Carbs + o.Carbs,
		Fats:     d.Fats + o.Fats,
	}
}

// DailyMacroRecord is the running total for one user and calendar date.
// Exists is false when nothing was ever logged for the date; the totals are
// then all zero.
type DailyMacroRecord struct {
	Date      string     `json:"date"`
	Calories  float64    `json:"calories"`
	Protein   float64    `json:"protein"`
	Carbs     float64    `json:"carbs"`
	Fats      float64    `json:"fats"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Exists    bool       `json:"exists"`
}

// Totals returns the record's macros as a delta.
func (r DailyMacroRecord) Totals() MacroDelta {
	return MacroDelta{Calories: r.Calories, Protein: r.Protein, Carbs: r.Carbs, Fats: r.Fats}
}
