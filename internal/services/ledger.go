package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/AnshRaj112/macrolog-backend/internal/models"
	"github.com/AnshRaj112/macrolog-backend/internal/nutrition"
	"github.com/AnshRaj112/macrolog-backend/internal/store"
	"github.com/AnshRaj112/macrolog-backend/pkg/datekey"
)

var (
	// ErrStoreUnavailable wraps every store failure surfaced by the ledger.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrStreakUpdateFailed is logged, never returned from AddToRecord.
	ErrStreakUpdateFailed = errors.New("streak update failed")
)

// Daily record fields.
const (
	fieldDate     = "date"
	fieldCalories = "calories"
	fieldProtein  = "protein"
	fieldCarbs    = "carbs"
	fieldFats     = "fats"
)

// LedgerPublisher is notified after every successful ledger mutation.
type LedgerPublisher interface {
	PublishLedgerUpdate(ctx context.Context, userID string, record models.DailyMacroRecord) error
}

// Ledger keeps the per-user, per-day macro totals and the logging streak.
// All user state is addressed by the userID argument; nothing is read from
// the request context.
type Ledger struct {
	store     store.Store
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
	publisher LedgerPublisher
}

func NewLedger(st store.Store, logger *zap.Logger, loc *time.Location) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Ledger{store: st, logger: logger, loc: loc, now: time.Now}
}

// SetPublisher attaches the realtime publisher. A nil publisher disables it.
func (l *Ledger) SetPublisher(p LedgerPublisher) {
	l.publisher = p
}

// Today returns today's date key in the ledger's location.
func (l *Ledger) Today() string {
	return datekey.Today(l.now(), l.loc)
}

// GetRecord returns the totals for date. A day with nothing logged yields a
// zero record with Exists false.
func (l *Ledger) GetRecord(ctx context.Context, userID, date string) (*models.DailyMacroRecord, error) {
	date, err := l.resolve(userID, date)
	if err != nil {
		return nil, err
	}

	doc, err := l.store.Get(ctx, dailyKey(userID, date))
	if errors.Is(err, store.ErrNotFound) {
		return &models.DailyMacroRecord{Date: date}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get record %s: %w", ErrStoreUnavailable, date, err)
	}
	rec := recordFromDocument(date, doc)
	return &rec, nil
}

// AddToRecord adds delta to the totals for date and then advances the
// streak. Each call is a real increment; callers must not repeat it for the
// same food entry. A streak failure is logged and does not fail the add.
func (l *Ledger) AddToRecord(ctx context.Context, userID string, delta models.MacroDelta, date string) (*models.DailyMacroRecord, error) {
	date, err := l.resolve(userID, date)
	if err != nil {
		return nil, err
	}
	if err := validateDelta(delta); err != nil {
		return nil, err
	}

	rec, err := l.apply(ctx, userID, date, delta, 1)
	if err != nil {
		return nil, err
	}

	if err := l.updateStreak(ctx, userID, date); err != nil {
		l.logger.Warn("streak update failed",
			zap.String("user_id", userID),
			zap.String("date", date),
			zap.Error(err),
		)
	}

	l.publish(ctx, userID, *rec)
	return rec, nil
}

// SubtractFromRecord removes delta from the totals for date. Every field is
// clamped at zero on its own. The streak is never touched, and a day with no
// record is left without one.
func (l *Ledger) SubtractFromRecord(ctx context.Context, userID string, delta models.MacroDelta, date string) (*models.DailyMacroRecord, error) {
	date, err := l.resolve(userID, date)
	if err != nil {
		return nil, err
	}
	if err := validateDelta(delta); err != nil {
		return nil, err
	}

	rec, err := l.apply(ctx, userID, date, delta, -1)
	if err != nil {
		return nil, err
	}
	if rec.Exists {
		l.publish(ctx, userID, *rec)
	}
	return rec, nil
}

// EditRecord replaces a previously added amount: old is subtracted, then
// updated is added, as two separate writes against the same date.
func (l *Ledger) EditRecord(ctx context.Context, userID string, old, updated models.MacroDelta, date string) (*models.DailyMacroRecord, error) {
	date, err := l.resolve(userID, date)
	if err != nil {
		return nil, err
	}
	if err := validateDelta(old); err != nil {
		return nil, err
	}
	if err := validateDelta(updated); err != nil {
		return nil, err
	}

	if _, err := l.SubtractFromRecord(ctx, userID, old, date); err != nil {
		return nil, err
	}
	return l.AddToRecord(ctx, userID, updated, date)
}

// GetRange returns the existing records between start and end inclusive,
// oldest first. Days without a record are omitted.
func (l *Ledger) GetRange(ctx context.Context, userID, start, end string) ([]models.DailyMacroRecord, error) {
	if userID == "" {
		return nil, &nutrition.InputError{Field: "userId", Message: "is required"}
	}
	if !datekey.Valid(start) {
		return nil, &nutrition.InputError{Field: "start", Message: "must be a YYYY-MM-DD date"}
	}
	if !datekey.Valid(end) {
		return nil, &nutrition.InputError{Field: "end", Message: "must be a YYYY-MM-DD date"}
	}
	if start > end {
		return nil, &nutrition.InputError{Field: "end", Message: "must not be before start"}
	}

	items, err := l.store.Range(ctx, userID, store.CollectionDailyMacros, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: range %s..%s: %w", ErrStoreUnavailable, start, end, err)
	}
	out := make([]models.DailyMacroRecord, 0, len(items))
	for _, it := range items {
		out = append(out, recordFromDocument(it.ID, it.Doc))
	}
	return out, nil
}

// Streak returns the stored streak state for userID.
func (l *Ledger) Streak(ctx context.Context, userID string) (StreakState, error) {
	doc, err := l.store.Get(ctx, profileKey(userID))
	if errors.Is(err, store.ErrNotFound) {
		return StreakState{}, nil
	}
	if err != nil {
		return StreakState{}, fmt.Errorf("%w: get profile: %w", ErrStoreUnavailable, err)
	}
	return streakFromDocument(doc), nil
}

func (l *Ledger) apply(ctx context.Context, userID, date string, delta models.MacroDelta, sign float64) (*models.DailyMacroRecord, error) {
	key := dailyKey(userID, date)
	now := l.now().UTC()
	deltas := map[string]float64{
		fieldCalories: sign * delta.Calories,
		fieldProtein:  sign * delta.Protein,
		fieldCarbs:    sign * delta.Carbs,
		fieldFats:     sign * delta.Fats,
	}

	// records are only ever created by an add
	create := sign > 0

	var (
		doc store.Document
		err error
	)
	if inc, ok := l.store.(store.Incrementer); ok {
		doc, err = inc.Increment(ctx, key, deltas, 0, create, now)
	} else {
		doc, err = l.readModifyWrite(ctx, key, deltas, create, now)
	}
	if errors.Is(err, store.ErrNotFound) {
		return &models.DailyMacroRecord{Date: date}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: write record %s: %w", ErrStoreUnavailable, date, err)
	}

	rec := recordFromDocument(date, doc)
	return &rec, nil
}

// readModifyWrite is used with stores that have no atomic increment. It
// assumes one writer per (user, date) at a time.
func (l *Ledger) readModifyWrite(ctx context.Context, key store.Key, deltas map[string]float64, create bool, now time.Time) (store.Document, error) {
	current, err := l.store.Get(ctx, key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if current == nil && !create {
		return nil, store.ErrNotFound
	}

	createdAt := store.Time(current, store.FieldCreatedAt)
	if current == nil || createdAt.IsZero() {
		createdAt = now
	}

	fields := store.Document{
		fieldDate:            key.ID,
		store.FieldCreatedAt: createdAt,
		store.FieldUpdatedAt: now,
	}
	for field, d := range deltas {
		fields[field] = math.Max(0, store.Round(store.Float(current, field)+d))
	}

	if err := l.store.Set(ctx, key, fields, true); err != nil {
		return nil, err
	}
	return fields, nil
}

func (l *Ledger) updateStreak(ctx context.Context, userID, date string) error {
	doc, err := l.store.Get(ctx, profileKey(userID))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: read profile: %w", ErrStreakUpdateFailed, err)
	}

	next, changed := NextStreak(streakFromDocument(doc), date)
	if !changed {
		return nil
	}
	return l.writeStreak(ctx, userID, next)
}

// restoreStreak puts back a streak state read before an add that was later
// undone. It writes nothing when the add did not move the streak.
func (l *Ledger) restoreStreak(ctx context.Context, userID string, prev StreakState) error {
	current, err := l.Streak(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStreakUpdateFailed, err)
	}
	if current == prev {
		return nil
	}
	return l.writeStreak(ctx, userID, prev)
}

func (l *Ledger) writeStreak(ctx context.Context, userID string, s StreakState) error {
	err := l.store.Set(ctx, profileKey(userID), store.Document{
		fieldStreak:          s.Streak,
		fieldLongestStreak:   s.LongestStreak,
		fieldLastMealLogDate: s.LastMealLogDate,
		store.FieldUpdatedAt: l.now().UTC(),
	}, true)
	if err != nil {
		return fmt.Errorf("%w: write profile: %w", ErrStreakUpdateFailed, err)
	}
	return nil
}

func (l *Ledger) publish(ctx context.Context, userID string, rec models.DailyMacroRecord) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishLedgerUpdate(ctx, userID, rec); err != nil {
		l.logger.Debug("ledger publish failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// resolve validates userID and turns an empty date into today.
func (l *Ledger) resolve(userID, date string) (string, error) {
	if userID == "" {
		return "", &nutrition.InputError{Field: "userId", Message: "is required"}
	}
	if date == "" {
		return l.Today(), nil
	}
	if !datekey.Valid(date) {
		return "", &nutrition.InputError{Field: "date", Message: fmt.Sprintf("must be a YYYY-MM-DD date, got %q", date)}
	}
	return date, nil
}

func validateDelta(d models.MacroDelta) error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{fieldCalories, d.Calories},
		{fieldProtein, d.Protein},
		{fieldCarbs, d.Carbs},
		{fieldFats, d.Fats},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &nutrition.InputError{Field: f.name, Message: "must be a finite number"}
		}
		if f.value < 0 {
			return &nutrition.InputError{Field: f.name, Message: fmt.Sprintf("must not be negative, got %g", f.value)}
		}
	}
	return nil
}

func dailyKey(userID, date string) store.Key {
	return store.Key{UserID: userID, Collection: store.CollectionDailyMacros, ID: date}
}

func profileKey(userID string) store.Key {
	return store.Key{UserID: userID, Collection: store.CollectionProfiles, ID: userID}
}

func recordFromDocument(date string, doc store.Document) models.DailyMacroRecord {
	rec := models.DailyMacroRecord{
		Date:     date,
		Calories: store.Float(doc, fieldCalories),
		Protein:  store.Float(doc, fieldProtein),
		Carbs:    store.Float(doc, fieldCarbs),
		Fats:     store.Float(doc, fieldFats),
		Exists:   doc != nil,
	}
	if t := store.Time(doc, store.FieldCreatedAt); !t.IsZero() {
		rec.CreatedAt = &t
	}
	if t := store.Time(doc, store.FieldUpdatedAt); !t.IsZero() {
		rec.UpdatedAt = &t
	}
	return rec
}

func streakFromDocument(doc store.Document) StreakState {
	return StreakState{
		Streak:          store.Int(doc, fieldStreak),
		LongestStreak:   store.Int(doc, fieldLongestStreak),
		LastMealLogDate: store.String(doc, fieldLastMealLogDate),
	}
}
