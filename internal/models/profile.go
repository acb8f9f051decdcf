package models

import (
	"time"

	"github.com/AnshRaj112/macrolog-backend/internal/nutrition"
)

// UserProfile is the per-user nutrition document.
type UserProfile struct {
	UserID              string                  `json:"userId"`
	OnboardingCompleted bool                    `json:"onboardingCompleted"`
	Profile             *nutrition.Profile      `json:"profile,omitempty"`
	TargetMacros        *nutrition.MacroTargets `json:"targetMacros,omitempty"`
	MacroMode           string                  `json:"macroMode,omitempty"`
	Streak              int                     `json:"streak"`
	LongestStreak       int                     `json:"longestStreak"`
	LastMealLogDate     string                  `json:"lastMealLogDate,omitempty"`
	UpdatedAt           *time.Time              `json:"updatedAt,omitempty"`
}

const (
	MacroModeCalculated = "calculated"
	MacroModeManual     = "manual"
)
