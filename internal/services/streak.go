package services

import (
	"github.com/AnshRaj112/macrolog-backend/pkg/datekey"
)

// Profile document fields holding the streak.
const (
	fieldStreak          = "streak"
	fieldLongestStreak   = "longestStreak"
	fieldLastMealLogDate = "lastMealLogDate"
)

// StreakState is the streak bookkeeping stored on the user profile.
type StreakState struct {
	Streak          int    `json:"streak"`
	LongestStreak   int    `json:"longestStreak"`
	LastMealLogDate string `json:"lastMealLogDate,omitempty"`
}

// NextStreak returns the state after a food was logged on date, and
// whether anything changed.
//
//	never logged          -> 1
//	same day              -> unchanged
//	next calendar day     -> +1
//	one or more days gap  -> reset to 1
//	earlier than last log -> unchanged (backdated entry)
//
// An unreadable lastMealLogDate is treated as never logged.
func NextStreak(s StreakState, date string) (StreakState, bool) {
	if !datekey.Valid(date) {
		return s, false
	}

	next := s
	gap, err := datekey.DaysBetween(s.LastMealLogDate, date)
	switch {
	case s.LastMealLogDate == "" || err != nil:
		next.Streak = 1
	case gap <= 0:
		return s, false
	case gap == 1:
		next.Streak = s.Streak + 1
	default:
		next.Streak = 1
	}

	next.LastMealLogDate = date
	if next.Streak > next.LongestStreak {
		next.LongestStreak = next.Streak
	}
	return next, true
}
