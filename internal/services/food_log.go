package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AnshRaj112/macrolog-backend/internal/models"
	"github.com/AnshRaj112/macrolog-backend/internal/nutrition"
	"github.com/AnshRaj112/macrolog-backend/internal/store"
	"github.com/AnshRaj112/macrolog-backend/pkg/datekey"
)

const maxFoodNameLength = 120

// Food log document fields.
const (
	fieldID        = "id"
	fieldMeal      = "meal"
	fieldName      = "name"
	fieldServings  = "servings"
	fieldDeleted   = "deleted"
	fieldDeletedAt = "deletedAt"
)

// FoodInput is a food to log or the replacement values for a logged one.
type FoodInput struct {
	Date     string            `json:"date"`
	Meal     models.MealType   `json:"meal"`
	Name     string            `json:"name"`
	Servings float64           `json:"servings"`
	Macros   models.MacroDelta `json:"macros"`
}

// FoodLogService records individual foods and keeps the daily ledger in
// step with them: the day's totals always equal the sum of its entries that
// have not been deleted.
//
// Entry ids are "<date>_<uuid>" so a day's entries form one contiguous id
// range.
type FoodLogService struct {
	store  store.Store
	ledger *Ledger
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewFoodLogService(st store.Store, ledger *Ledger, logger *zap.Logger) *FoodLogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FoodLogService{
		store:  st,
		ledger: ledger,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// LogFood adds the entry's macros to the ledger and saves the entry. If the
// entry cannot be saved the macros are subtracted again and the streak is
// put back to what it was before the add.
func (s *FoodLogService) LogFood(ctx context.Context, userID string, in FoodInput) (*models.FoodLogEntry, *models.DailyMacroRecord, error) {
	date, err := s.ledger.resolve(userID, in.Date)
	if err != nil {
		return nil, nil, err
	}
	in, err = normalizeFood(in)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	entry := &models.FoodLogEntry{
		ID:        date + "_" + s.newID(),
		Date:      date,
		Meal:      in.Meal,
		Name:      in.Name,
		Servings:  in.Servings,
		Macros:    in.Macros,
		CreatedAt: now,
		UpdatedAt: now,
	}

	prevStreak, streakErr := s.ledger.Streak(ctx, userID)

	rec, err := s.ledger.AddToRecord(ctx, userID, entry.Macros, date)
	if err != nil {
		return nil, nil, err
	}

	if err := s.store.Set(ctx, foodKey(userID, entry.ID), foodDocument(entry), false); err != nil {
		if _, undoErr := s.ledger.SubtractFromRecord(ctx, userID, entry.Macros, date); undoErr != nil {
			s.logger.Error("failed to undo ledger add after food save error",
				zap.String("user_id", userID),
				zap.String("entry_id", entry.ID),
				zap.Error(undoErr),
			)
		}
		if streakErr == nil {
			if undoErr := s.ledger.restoreStreak(ctx, userID, prevStreak); undoErr != nil {
				s.logger.Warn("failed to restore streak after food save error",
					zap.String("user_id", userID),
					zap.String("entry_id", entry.ID),
					zap.Error(undoErr),
				)
			}
		}
		return nil, nil, fmt.Errorf("%w: save food entry: %w", ErrStoreUnavailable, err)
	}

	return entry, rec, nil
}

// UpdateFood replaces a logged food. The ledger sees the change as the old
// macros subtracted and the new ones added on the entry's original date.
func (s *FoodLogService) UpdateFood(ctx context.Context, userID, id string, in FoodInput) (*models.FoodLogEntry, *models.DailyMacroRecord, error) {
	entry, err := s.getEntry(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	in, err = normalizeFood(in)
	if err != nil {
		return nil, nil, err
	}

	old := entry.Macros
	updated := *entry
	updated.Meal = in.Meal
	updated.Name = in.Name
	updated.Servings = in.Servings
	updated.Macros = in.Macros
	updated.UpdatedAt = s.now().UTC()

	rec, err := s.ledger.EditRecord(ctx, userID, old, updated.Macros, entry.Date)
	if err != nil {
		return nil, nil, err
	}

	if err := s.store.Set(ctx, foodKey(userID, id), foodDocument(&updated), false); err != nil {
		if _, undoErr := s.ledger.EditRecord(ctx, userID, updated.Macros, old, entry.Date); undoErr != nil {
			s.logger.Error("failed to undo ledger edit after food save error",
				zap.String("user_id", userID),
				zap.String("entry_id", id),
				zap.Error(undoErr),
			)
		}
		return nil, nil, fmt.Errorf("%w: save food entry: %w", ErrStoreUnavailable, err)
	}
	return &updated, rec, nil
}

// DeleteFood soft-deletes an entry and subtracts its macros. Deleting an
// already deleted entry returns store.ErrNotFound so the macros are never
// subtracted twice.
func (s *FoodLogService) DeleteFood(ctx context.Context, userID, id string) (*models.DailyMacroRecord, error) {
	entry, err := s.getEntry(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	key := foodKey(userID, id)
	now := s.now().UTC()
	err = s.store.Set(ctx, key, store.Document{
		fieldDeleted:         true,
		fieldDeletedAt:       now,
		store.FieldUpdatedAt: now,
	}, true)
	if err != nil {
		return nil, fmt.Errorf("%w: delete food entry: %w", ErrStoreUnavailable, err)
	}

	rec, err := s.ledger.SubtractFromRecord(ctx, userID, entry.Macros, entry.Date)
	if err != nil {
		restoreErr := s.store.Set(ctx, key, store.Document{
			fieldDeleted:         false,
			fieldDeletedAt:       nil,
			store.FieldUpdatedAt: entry.UpdatedAt,
		}, true)
		if restoreErr != nil {
			s.logger.Error("failed to restore food entry after ledger error",
				zap.String("user_id", userID),
				zap.String("entry_id", id),
				zap.Error(restoreErr),
			)
		}
		return nil, err
	}
	return rec, nil
}

// ListFoods returns the entries logged for date that are not deleted,
// in the order they were logged.
func (s *FoodLogService) ListFoods(ctx context.Context, userID, date string) ([]models.FoodLogEntry, error) {
	date, err := s.ledger.resolve(userID, date)
	if err != nil {
		return nil, err
	}

	items, err := s.store.Range(ctx, userID, store.CollectionFoodLogs, date+"_", date+"_~")
	if err != nil {
		return nil, fmt.Errorf("%w: list food entries: %w", ErrStoreUnavailable, err)
	}

	out := make([]models.FoodLogEntry, 0, len(items))
	for _, it := range items {
		entry := foodFromDocument(it.ID, it.Doc)
		if entry.Deleted {
			continue
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *FoodLogService) getEntry(ctx context.Context, userID, id string) (*models.FoodLogEntry, error) {
	if userID == "" {
		return nil, &nutrition.InputError{Field: "userId", Message: "is required"}
	}
	if _, ok := entryDate(id); !ok {
		return nil, &nutrition.InputError{Field: "id", Message: fmt.Sprintf("malformed entry id %q", id)}
	}

	doc, err := s.store.Get(ctx, foodKey(userID, id))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("food entry %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get food entry: %w", ErrStoreUnavailable, err)
	}
	entry := foodFromDocument(id, doc)
	if entry.Deleted {
		return nil, fmt.Errorf("food entry %s: %w", id, store.ErrNotFound)
	}
	return &entry, nil
}

func normalizeFood(in FoodInput) (FoodInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, &nutrition.InputError{Field: "name", Message: "is required"}
	}
	if len(in.Name) > maxFoodNameLength {
		return in, &nutrition.InputError{Field: "name", Message: fmt.Sprintf("must be at most %d characters", maxFoodNameLength)}
	}
	if !in.Meal.Valid() {
		return in, &nutrition.InputError{Field: "meal", Message: fmt.Sprintf("unknown value %q", in.Meal)}
	}
	if math.IsNaN(in.Servings) || math.IsInf(in.Servings, 0) || in.Servings < 0 {
		return in, &nutrition.InputError{Field: "servings", Message: "must be a non-negative number"}
	}
	if in.Servings == 0 {
		in.Servings = 1
	}
	if err := validateDelta(in.Macros); err != nil {
		return in, err
	}
	return in, nil
}

// entryDate extracts the date prefix of an entry id.
func entryDate(id string) (string, bool) {
	if len(id) <= len(datekey.Layout)+1 || id[len(datekey.Layout)] != '_' {
		return "", false
	}
	date := id[:len(datekey.Layout)]
	return date, datekey.Valid(date)
}

func foodKey(userID, id string) store.Key {
	return store.Key{UserID: userID, Collection: store.CollectionFoodLogs, ID: id}
}

func foodDocument(e *models.FoodLogEntry) store.Document {
	return store.Document{
		fieldID:       e.ID,
		fieldDate:     e.Date,
		fieldMeal:     string(e.Meal),
		fieldName:     e.Name,
		fieldServings: e.Servings,
		fieldMacros: store.Document{
			fieldCalories: e.Macros.Calories,
			fieldProtein:  e.Macros.Protein,
			fieldCarbs:    e.Macros.Carbs,
			fieldFats:     e.Macros.Fats,
		},
		fieldDeleted:         e.Deleted,
		store.FieldCreatedAt: e.CreatedAt,
		store.FieldUpdatedAt: e.UpdatedAt,
	}
}

func foodFromDocument(id string, doc store.Document) models.FoodLogEntry {
	macros := store.Sub(doc, fieldMacros)
	entry := models.FoodLogEntry{
		ID:       id,
		Date:     store.String(doc, fieldDate),
		Meal:     models.MealType(store.String(doc, fieldMeal)),
		Name:     store.String(doc, fieldName),
		Servings: store.Float(doc, fieldServings),
		Macros: models.MacroDelta{
			Calories: store.Float(macros, fieldCalories),
			Protein:  store.Float(macros, fieldProtein),
			Carbs:    store.Float(macros, fieldCarbs),
			Fats:     store.Float(macros, fieldFats),
		},
		Deleted:   store.Bool(doc, fieldDeleted),
		CreatedAt: store.Time(doc, store.FieldCreatedAt),
		UpdatedAt: store.Time(doc, store.FieldUpdatedAt),
	}
	if entry.Date == "" {
		entry.Date, _ = entryDate(id)
	}
	if t := store.Time(doc, fieldDeletedAt); !t.IsZero() {
		entry.DeletedAt = &t
	}
	return entry
}
