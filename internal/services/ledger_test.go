package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/AnshRaj112/macrolog-backend/internal/models"
	"github.com/AnshRaj112/macrolog-backend/internal/nutrition"
	"github.com/AnshRaj112/macrolog-backend/internal/store"
)

func totals(r *models.DailyMacroRecord) models.MacroDelta {
	return r.Totals()
}

func TestLedger_GetRecord_Absent(t *testing.T) {
	l, _ := newTestLedger(t, store.NewMemoryStore())

	rec, err := l.GetRecord(context.Background(), "u1", "2024-03-10")
	if err != nil {
		t.Fatalf("GetRecord error = %v", err)
	}
	if rec.Exists {
		t.Error("Expected Exists=false for an empty day")
	}
	if totals(rec) != (models.MacroDelta{}) {
		t.Errorf("Expected zero totals, got %+v", totals(rec))
	}
	if rec.Date != "2024-03-10" {
		t.Errorf("Date = %q, want 2024-03-10", rec.Date)
	}
}

func TestLedger_Additivity(t *testing.T) {
	storeModes(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		l, _ := newTestLedger(t, st)
		d1 := models.MacroDelta{Calories: 320.5, Protein: 25, Carbs: 30.25, Fats: 9}
		d2 := models.MacroDelta{Calories: 180, Protein: 4.5, Carbs: 12, Fats: 6.75}

		if _, err := l.AddToRecord(ctx, "split", d1, "2024-03-10"); err != nil {
			t.Fatalf("AddToRecord error = %v", err)
		}
		split, err := l.AddToRecord(ctx, "split", d2, "2024-03-10")
		if err != nil {
			t.Fatalf("AddToRecord error = %v", err)
		}
		whole, err := l.AddToRecord(ctx, "whole", d1.Plus(d2), "2024-03-10")
		if err != nil {
			t.Fatalf("AddToRecord error = %v", err)
		}

		if totals(split) != totals(whole) {
			t.Errorf("add(d1); add(d2) = %+v, add(d1+d2) = %+v", totals(split), totals(whole))
		}

		stored, _ := l.GetRecord(ctx, "split", "2024-03-10")
		if totals(stored) != totals(split) || !stored.Exists {
			t.Errorf("Stored record %+v does not match returned %+v", stored, split)
		}
	})
}

func TestLedger_AddSubtractRestores(t *testing.T) {
	storeModes(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		l, _ := newTestLedger(t, st)
		prior := models.MacroDelta{Calories: 800, Protein: 60, Carbs: 90, Fats: 25}
		food := models.MacroDelta{Calories: 500, Protein: 40, Carbs: 50, Fats: 20}

		before, err := l.AddToRecord(ctx, "u1", prior, "2024-03-10")
		if err != nil {
			t.Fatalf("AddToRecord error = %v", err)
		}
		if _, err := l.AddToRecord(ctx, "u1", food, "2024-03-10"); err != nil {
			t.Fatalf("AddToRecord error = %v", err)
		}
		after, err := l.SubtractFromRecord(ctx, "u1", food, "2024-03-10")
		if err != nil {
			t.Fatalf("SubtractFromRecord error = %v", err)
		}
		if totals(after) != totals(before) {
			t.Errorf("add then subtract = %+v, want %+v", totals(after), totals(before))
		}
	})
}

func TestLedger_SubtractClampsEachField(t *testing.T) {
	storeModes(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		l, _ := newTestLedger(t, st)

		if _, err := l.AddToRecord(ctx, "u1", models.MacroDelta{Calories: 10, Protein: 20, Carbs: 5, Fats: 3}, "2024-03-10"); err != nil {
			t.Fatalf("AddToRecord error = %v", err)
		}
		rec, err := l.SubtractFromRecord(ctx, "u1", models.MacroDelta{Calories: 1000, Protein: 5, Carbs: 5}, "2024-03-10")
		if err != nil {
			t.Fatalf("SubtractFromRecord error = %v", err)
		}
		want := models.MacroDelta{Calories: 0, Protein: 15, Carbs: 0, Fats: 3}
		if totals(rec) != want {
			t.Errorf("after clamp = %+v, want %+v", totals(rec), want)
		}

		// subtracting from a day that was never logged stays at zero
		empty, err := l.SubtractFromRecord(ctx, "u1", models.MacroDelta{Calories: 50}, "2024-03-09")
		if err != nil {
			t.Fatalf("SubtractFromRecord error = %v", err)
		}
		if totals(empty) != (models.MacroDelta{}) {
			t.Errorf("subtract on empty day = %+v, want zeros", totals(empty))
		}
		if empty.Exists || empty.CreatedAt != nil {
			t.Errorf("subtract on empty day returned %+v, want no record", empty)
		}
		if got, _ := l.GetRecord(ctx, "u1", "2024-03-09"); got.Exists {
			t.Errorf("subtract on empty day created a record: %+v", got)
		}
	})
}

func TestLedger_FractionalRoundTrip(t *testing.T) {
	storeModes(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		l, _ := newTestLedger(t, st)
		a := models.MacroDelta{Calories: 0.1, Protein: 0.1, Carbs: 0.1, Fats: 0.1}
		b := models.MacroDelta{Calories: 0.2, Protein: 0.2, Carbs: 0.2, Fats: 0.2}

		if _, err := l.AddToRecord(ctx, "u1", a, "2024-03-10"); err != nil {
			t.Fatalf("AddToRecord error = %v", err)
		}
		sum, err := l.AddToRecord(ctx, "u1", b, "2024-03-10")
		if err != nil {
			t.Fatalf("AddToRecord error = %v", err)
		}
		want := models.MacroDelta{Calories: 0.3, Protein: 0.3, Carbs: 0.3, Fats: 0.3}
		if totals(sum) != want {
			t.Errorf("0.1 + 0.2 = %+v, want %+v", totals(sum), want)
		}

		back, err := l.SubtractFromRecord(ctx, "u1", b, "2024-03-10")
		if err != nil {
			t.Fatalf("SubtractFromRecord error = %v", err)
		}
		if totals(back) != a {
			t.Errorf("undo of 0.2 = %+v, want exactly %+v", totals(back), a)
		}

		zero, err := l.SubtractFromRecord(ctx, "u1", a, "2024-03-10")
		if err != nil {
			t.Fatalf("SubtractFromRecord error = %v", err)
		}
		if totals(zero) != (models.MacroDelta{}) {
			t.Errorf("after removing every entry = %+v, want exact zeros", totals(zero))
		}
	})
}

func TestLedger_Timestamps(t *testing.T) {
	storeModes(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		l, clock := newTestLedger(t, st)
		created := clock.t

		if _, err := l.AddToRecord(ctx, "u1", models.MacroDelta{Calories: 100}, "2024-03-10"); err != nil {
			t.Fatalf("AddToRecord error = %v", err)
		}
		clock.t = clock.t.Add(2 * time.Hour)
		rec, err := l.SubtractFromRecord(ctx, "u1", models.MacroDelta{Calories: 40}, "2024-03-10")
		if err != nil {
			t.Fatalf("SubtractFromRecord error = %v", err)
		}

		if rec.CreatedAt == nil || !rec.CreatedAt.Equal(created) {
			t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, created)
		}
		if rec.UpdatedAt == nil || !rec.UpdatedAt.Equal(clock.t) {
			t.Errorf("UpdatedAt = %v, want %v", rec.UpdatedAt, clock.t)
		}
	})
}

func TestLedger_EditRecord(t *testing.T) {
	storeModes(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		l, _ := newTestLedger(t, st)
		other := models.MacroDelta{Calories: 300, Protein: 10, Carbs: 40, Fats: 8}
		old := models.MacroDelta{Calories: 500, Protein: 40, Carbs: 50, Fats: 20}
		updated := models.MacroDelta{Calories: 250, Protein: 20, Carbs: 25, Fats: 10}

		for _, d := range []models.MacroDelta{other, old} {
			if _, err := l.AddToRecord(ctx, "u1", d, "2024-03-10"); err != nil {
				t.Fatalf("AddToRecord error = %v", err)
			}
		}
		rec, err := l.EditRecord(ctx, "u1", old, updated, "2024-03-10")
		if err != nil {
			t.Fatalf("EditRecord error = %v", err)
		}
		if want := other.Plus(updated); totals(rec) != want {
			t.Errorf("after edit = %+v, want %+v", totals(rec), want)
		}
	})
}

func TestLedger_Streak(t *testing.T) {
	food := models.MacroDelta{Calories: 200, Protein: 10}

	tests := []struct {
		name  string
		dates []string
		want  []int
	}{
		{"consecutive days", []string{"2024-03-01", "2024-03-02", "2024-03-03"}, []int{1, 2, 3}},
		{"gap resets", []string{"2024-03-01", "2024-03-04"}, []int{1, 1}},
		{"same day twice", []string{"2024-03-01", "2024-03-01"}, []int{1, 1}},
		{"skip a day", []string{"2024-03-01", "2024-03-02", "2024-03-04"}, []int{1, 2, 1}},
		{"backdated entry", []string{"2024-03-01", "2024-03-02", "2024-02-27", "2024-03-03"}, []int{1, 2, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storeModes(t, func(t *testing.T, st store.Store) {
				ctx := context.Background()
				l, _ := newTestLedger(t, st)
				for i, d := range tt.dates {
					if _, err := l.AddToRecord(ctx, "u1", food, d); err != nil {
						t.Fatalf("AddToRecord(%s) error = %v", d, err)
					}
					s, err := l.Streak(ctx, "u1")
					if err != nil {
						t.Fatalf("Streak error = %v", err)
					}
					if s.Streak != tt.want[i] {
						t.Errorf("after %s streak = %d, want %d", d, s.Streak, tt.want[i])
					}
				}
			})
		})
	}
}

func TestLedger_BackdatedKeepsLastLogDate(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, store.NewMemoryStore())
	food := models.MacroDelta{Calories: 100}

	for _, d := range []string{"2024-03-05", "2024-03-06", "2024-03-01"} {
		if _, err := l.AddToRecord(ctx, "u1", food, d); err != nil {
			t.Fatalf("AddToRecord error = %v", err)
		}
	}
	s, _ := l.Streak(ctx, "u1")
	want := StreakState{Streak: 2, LongestStreak: 2, LastMealLogDate: "2024-03-06"}
	if s != want {
		t.Errorf("Streak = %+v, want %+v", s, want)
	}

	// the backdated macros still land on their own day
	rec, _ := l.GetRecord(ctx, "u1", "2024-03-01")
	if rec.Calories != 100 {
		t.Errorf("backdated day calories = %v, want 100", rec.Calories)
	}
}

func TestLedger_SubtractLeavesStreak(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, store.NewMemoryStore())

	if _, err := l.AddToRecord(ctx, "u1", models.MacroDelta{Calories: 100}, "2024-03-01"); err != nil {
		t.Fatalf("AddToRecord error = %v", err)
	}
	if _, err := l.SubtractFromRecord(ctx, "u1", models.MacroDelta{Calories: 100}, "2024-03-02"); err != nil {
		t.Fatalf("SubtractFromRecord error = %v", err)
	}
	s, _ := l.Streak(ctx, "u1")
	if s.Streak != 1 || s.LastMealLogDate != "2024-03-01" {
		t.Errorf("Streak = %+v, want streak 1 on 2024-03-01", s)
	}
}

func TestLedger_StreakFailureDoesNotFailAdd(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	st := &faultyStore{Store: mem, failSet: map[string]bool{store.CollectionProfiles: true}}
	l, _ := newTestLedger(t, st)

	rec, err := l.AddToRecord(ctx, "u1", models.MacroDelta{Calories: 500, Protein: 40}, "2024-03-10")
	if err != nil {
		t.Fatalf("AddToRecord error = %v, want nil", err)
	}
	if rec.Calories != 500 || rec.Protein != 40 {
		t.Errorf("record = %+v, want calories 500 protein 40", rec)
	}

	stored, _ := NewLedger(mem, nil, time.UTC).GetRecord(ctx, "u1", "2024-03-10")
	if stored.Calories != 500 {
		t.Errorf("stored calories = %v, want 500", stored.Calories)
	}
	if err := l.updateStreak(ctx, "u1", "2024-03-10"); !errors.Is(err, ErrStreakUpdateFailed) {
		t.Errorf("updateStreak error = %v, want ErrStreakUpdateFailed", err)
	}

	// a failing profile read is swallowed the same way
	st.failGet = map[string]bool{store.CollectionProfiles: true}
	if _, err := l.AddToRecord(ctx, "u1", models.MacroDelta{Calories: 1}, "2024-03-10"); err != nil {
		t.Errorf("AddToRecord with failing profile read error = %v, want nil", err)
	}
}

func TestLedger_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	st := &faultyStore{
		Store:   store.NewMemoryStore(),
		failGet: map[string]bool{store.CollectionDailyMacros: true},
		failSet: map[string]bool{store.CollectionDailyMacros: true},
	}
	l, _ := newTestLedger(t, st)

	if _, err := l.GetRecord(ctx, "u1", "2024-03-10"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("GetRecord error = %v, want ErrStoreUnavailable", err)
	}
	if _, err := l.AddToRecord(ctx, "u1", models.MacroDelta{Calories: 1}, "2024-03-10"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("AddToRecord error = %v, want ErrStoreUnavailable", err)
	}
	if _, err := l.SubtractFromRecord(ctx, "u1", models.MacroDelta{Calories: 1}, "2024-03-10"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("SubtractFromRecord error = %v, want ErrStoreUnavailable", err)
	}

	// the failed add must not have advanced the streak
	s, _ := l.Streak(ctx, "u1")
	if s.Streak != 0 {
		t.Errorf("Streak = %d after failed add, want 0", s.Streak)
	}
}

func TestLedger_InvalidInput(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, store.NewMemoryStore())

	tests := []struct {
		name   string
		userID string
		delta  models.MacroDelta
		date   string
		field  string
	}{
		{"missing user", "", models.MacroDelta{Calories: 1}, "2024-03-10", "userId"},
		{"bad date", "u1", models.MacroDelta{Calories: 1}, "03/10/2024", "date"},
		{"negative calories", "u1", models.MacroDelta{Calories: -5}, "2024-03-10", "calories"},
		{"NaN protein", "u1", models.MacroDelta{Protein: math.NaN()}, "2024-03-10", "protein"},
		{"infinite fats", "u1", models.MacroDelta{Fats: math.Inf(1)}, "2024-03-10", "fats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, op := range []func() (*models.DailyMacroRecord, error){
				func() (*models.DailyMacroRecord, error) { return l.AddToRecord(ctx, tt.userID, tt.delta, tt.date) },
				func() (*models.DailyMacroRecord, error) { return l.SubtractFromRecord(ctx, tt.userID, tt.delta, tt.date) },
			} {
				_, err := op()
				var inputErr *nutrition.InputError
				if !errors.Is(err, nutrition.ErrInvalidInput) || !errors.As(err, &inputErr) || inputErr.Field != tt.field {
					t.Errorf("error = %v, want InputError on %q", err, tt.field)
				}
			}
		})
	}
}

func TestLedger_EmptyDateIsToday(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	l, clock := newTestLedger(t, st)

	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	l.loc = loc
	// 02:00 UTC on the 11th is still the 10th in Los Angeles
	clock.t = time.Date(2024, 3, 11, 2, 0, 0, 0, time.UTC)

	rec, err := l.AddToRecord(ctx, "u1", models.MacroDelta{Calories: 42}, "")
	if err != nil {
		t.Fatalf("AddToRecord error = %v", err)
	}
	if rec.Date != "2024-03-10" {
		t.Errorf("Date = %q, want 2024-03-10", rec.Date)
	}
	got, _ := l.GetRecord(ctx, "u1", "")
	if got.Calories != 42 {
		t.Errorf("GetRecord(today) calories = %v, want 42", got.Calories)
	}
}

func TestLedger_GetRange(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, store.NewMemoryStore())

	for i, d := range []string{"2024-03-04", "2024-03-01", "2024-03-02", "2024-03-06"} {
		if _, err := l.AddToRecord(ctx, "u1", models.MacroDelta{Calories: float64(100 * (i + 1))}, d); err != nil {
			t.Fatalf("AddToRecord error = %v", err)
		}
	}
	if _, err := l.AddToRecord(ctx, "u2", models.MacroDelta{Calories: 1}, "2024-03-03"); err != nil {
		t.Fatalf("AddToRecord error = %v", err)
	}

	recs, err := l.GetRange(ctx, "u1", "2024-03-02", "2024-03-06")
	if err != nil {
		t.Fatalf("GetRange error = %v", err)
	}
	wantDates := []string{"2024-03-02", "2024-03-04", "2024-03-06"}
	wantCalories := []float64{300, 100, 400}
	if len(recs) != len(wantDates) {
		t.Fatalf("GetRange returned %d records, want %d", len(recs), len(wantDates))
	}
	for i, r := range recs {
		if r.Date != wantDates[i] || r.Calories != wantCalories[i] || !r.Exists {
			t.Errorf("record %d = %+v, want %s with %v kcal", i, r, wantDates[i], wantCalories[i])
		}
	}

	if _, err := l.GetRange(ctx, "u1", "2024-03-06", "2024-03-02"); !errors.Is(err, nutrition.ErrInvalidInput) {
		t.Errorf("reversed range error = %v, want ErrInvalidInput", err)
	}
	if _, err := l.GetRange(ctx, "u1", "", "2024-03-02"); !errors.Is(err, nutrition.ErrInvalidInput) {
		t.Errorf("missing start error = %v, want ErrInvalidInput", err)
	}
}

func TestLedger_PublishesUpdates(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, store.NewMemoryStore())
	pub := &recordingPublisher{err: errBoom}
	l.SetPublisher(pub)

	if _, err := l.AddToRecord(ctx, "u1", models.MacroDelta{Calories: 300}, "2024-03-10"); err != nil {
		t.Fatalf("AddToRecord error = %v", err)
	}
	if _, err := l.SubtractFromRecord(ctx, "u1", models.MacroDelta{Calories: 100}, "2024-03-10"); err != nil {
		t.Fatalf("SubtractFromRecord error = %v, publish errors must not fail writes", err)
	}

	if len(pub.records) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.records))
	}
	if pub.records[1].Calories != 200 {
		t.Errorf("last published calories = %v, want 200", pub.records[1].Calories)
	}
}
