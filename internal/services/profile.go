package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AnshRaj112/macrolog-backend/internal/models"
	"github.com/AnshRaj112/macrolog-backend/internal/nutrition"
	"github.com/AnshRaj112/macrolog-backend/internal/store"
)

// Profile document fields.
const (
	fieldOnboardingCompleted = "onboardingCompleted"
	fieldProfile             = "profile"
	fieldUserSettings        = "userSettings"
	fieldMacros              = "macros"
	fieldTargetMacros        = "targetMacros"
	fieldMacroMode           = "macroMode"
	fieldBaseTDEE            = "baseTDEE"
)

// ProfileService owns onboarding and target macros. Targets are written to
// userSettings.macros, which is what reads use, and mirrored to the legacy
// targetMacros field that older clients still read.
type ProfileService struct {
	store  store.Store
	cache  Cache
	logger *zap.Logger
	now    func() time.Time
}

func NewProfileService(st store.Store, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{store: st, logger: logger, now: time.Now}
}

// SetCache puts a read-through cache in front of GetTargets. Writes drop
// the cached value.
func (s *ProfileService) SetCache(c Cache) {
	s.cache = c
}

// CompleteOnboarding stores the biometric profile, computes the targets and
// marks onboarding as done.
func (s *ProfileService) CompleteOnboarding(ctx context.Context, userID string, p nutrition.Profile) (nutrition.MacroTargets, error) {
	if userID == "" {
		return nutrition.MacroTargets{}, &nutrition.InputError{Field: "userId", Message: "is required"}
	}
	targets, err := nutrition.CalculateTargets(p)
	if err != nil {
		return nutrition.MacroTargets{}, err
	}

	fields := targetFields(targets, models.MacroModeCalculated)
	fields[fieldProfile] = profileDocument(p)
	fields[fieldOnboardingCompleted] = true
	fields[store.FieldUpdatedAt] = s.now().UTC()

	if err := s.store.Set(ctx, profileKey(userID), fields, true); err != nil {
		return nutrition.MacroTargets{}, fmt.Errorf("%w: save onboarding: %w", ErrStoreUnavailable, err)
	}
	s.invalidateTargets(ctx, userID)
	s.logger.Info("onboarding completed",
		zap.String("user_id", userID),
		zap.Int("calories", targets.Calories),
	)
	return targets, nil
}

// SetManualTargets switches the user to manual macro mode. Calories are
// derived from the macros.
func (s *ProfileService) SetManualTargets(ctx context.Context, userID string, protein, carbs, fats float64) (nutrition.MacroTargets, error) {
	if userID == "" {
		return nutrition.MacroTargets{}, &nutrition.InputError{Field: "userId", Message: "is required"}
	}
	targets, err := nutrition.ManualTargets(protein, carbs, fats)
	if err != nil {
		return nutrition.MacroTargets{}, err
	}

	fields := targetFields(targets, models.MacroModeManual)
	fields[fieldOnboardingCompleted] = true
	fields[store.FieldUpdatedAt] = s.now().UTC()

	if err := s.store.Set(ctx, profileKey(userID), fields, true); err != nil {
		return nutrition.MacroTargets{}, fmt.Errorf("%w: save targets: %w", ErrStoreUnavailable, err)
	}
	s.invalidateTargets(ctx, userID)
	return targets, nil
}

// GetTargets returns the stored targets, preferring userSettings.macros and
// falling back to targetMacros. It returns store.ErrNotFound when neither is
// set.
func (s *ProfileService) GetTargets(ctx context.Context, userID string) (nutrition.MacroTargets, error) {
	var targets nutrition.MacroTargets
	if s.cache != nil && userID != "" {
		hit, err := s.cache.Get(ctx, CacheKey("targets", userID), &targets)
		if err != nil {
			s.logger.Debug("targets cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
		if hit {
			return targets, nil
		}
	}

	doc, err := s.get(ctx, userID)
	if err != nil {
		return nutrition.MacroTargets{}, err
	}
	targets, ok := targetsFromDocument(doc)
	if !ok {
		return nutrition.MacroTargets{}, fmt.Errorf("targets for %s: %w", userID, store.ErrNotFound)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, CacheKey("targets", userID), targets); err != nil {
			s.logger.Debug("targets cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return targets, nil
}

func (s *ProfileService) invalidateTargets(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, CacheKey("targets", userID)); err != nil {
		s.logger.Warn("targets cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// GetProfile returns the profile document. A user that never onboarded gets
// a zero profile.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	doc, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &models.UserProfile{
		UserID:              userID,
		OnboardingCompleted: store.Bool(doc, fieldOnboardingCompleted),
		MacroMode:           store.String(doc, fieldMacroMode),
		Streak:              store.Int(doc, fieldStreak),
		LongestStreak:       store.Int(doc, fieldLongestStreak),
		LastMealLogDate:     store.String(doc, fieldLastMealLogDate),
	}
	if p := store.Sub(doc, fieldProfile); p != nil {
		profile := profileFromDocument(p)
		out.Profile = &profile
	}
	if targets, ok := targetsFromDocument(doc); ok {
		out.TargetMacros = &targets
	}
	if t := store.Time(doc, store.FieldUpdatedAt); !t.IsZero() {
		out.UpdatedAt = &t
	}
	return out, nil
}

func (s *ProfileService) get(ctx context.Context, userID string) (store.Document, error) {
	if userID == "" {
		return nil, &nutrition.InputError{Field: "userId", Message: "is required"}
	}
	doc, err := s.store.Get(ctx, profileKey(userID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get profile: %w", ErrStoreUnavailable, err)
	}
	return doc, nil
}

// targetFields writes every target field, baseTDEE included, so a merge
// never leaves a stale value from the previous mode behind.
func targetFields(t nutrition.MacroTargets, mode string) store.Document {
	macros := func() store.Document {
		return store.Document{
			fieldCalories: t.Calories,
			fieldProtein:  t.Protein,
			fieldCarbs:    t.Carbs,
			fieldFats:     t.Fats,
			fieldBaseTDEE: t.BaseTDEE,
		}
	}
	return store.Document{
		fieldUserSettings: store.Document{fieldMacros: macros()},
		fieldTargetMacros: macros(),
		fieldMacroMode:    mode,
	}
}

func targetsFromDocument(doc store.Document) (nutrition.MacroTargets, bool) {
	macros := store.Sub(store.Sub(doc, fieldUserSettings), fieldMacros)
	if macros == nil {
		macros = store.Sub(doc, fieldTargetMacros)
	}
	if macros == nil {
		return nutrition.MacroTargets{}, false
	}
	return nutrition.MacroTargets{
		Calories: store.Int(macros, fieldCalories),
		Protein:  store.Int(macros, fieldProtein),
		Carbs:    store.Int(macros, fieldCarbs),
		Fats:     store.Int(macros, fieldFats),
		BaseTDEE: store.Int(macros, fieldBaseTDEE),
	}, true
}

func profileDocument(p nutrition.Profile) store.Document {
	return store.Document{
		"age":           p.Age,
		"sex":           string(p.Sex),
		"height":        p.Height,
		"heightUnit":    p.HeightUnit,
		"weight":        p.Weight,
		"weightUnit":    p.WeightUnit,
		"activityLevel": string(p.ActivityLevel),
		"goal":          string(p.Goal),
		"goalIntensity": string(p.GoalIntensity),
	}
}

func profileFromDocument(doc store.Document) nutrition.Profile {
	return nutrition.Profile{
		Age:           store.Int(doc, "age"),
		Sex:           nutrition.Sex(store.String(doc, "sex")),
		Height:        store.Float(doc, "height"),
		HeightUnit:    store.String(doc, "heightUnit"),
		Weight:        store.Float(doc, "weight"),
		WeightUnit:    store.String(doc, "weightUnit"),
		ActivityLevel: nutrition.ActivityLevel(store.String(doc, "activityLevel")),
		Goal:          nutrition.Goal(store.String(doc, "goal")),
		GoalIntensity: nutrition.Intensity(store.String(doc, "goalIntensity")),
	}
}
