package nutrition

import (
	"errors"
	"math"
	"testing"
)

func baseProfile() Profile {
	return Profile{
		Age:           30,
		Sex:           SexMale,
		Height:        180,
		HeightUnit:    HeightUnitCM,
		Weight:        80,
		WeightUnit:    WeightUnitKG,
		ActivityLevel: ActivityModerate,
		Goal:          GoalLose,
		GoalIntensity: IntensityModerate,
	}
}

func TestCalculateTargets(t *testing.T) {
	tests := []struct {
		name    string
		profile func() Profile
		want    MacroTargets
	}{
		{
			name:    "male moderate lose",
			profile: baseProfile,
			want:    MacroTargets{Calories: 2259, Protein: 160, Carbs: 264, Fats: 63, BaseTDEE: 2759},
		},
		{
			name: "female sedentary maintain",
			profile: func() Profile {
				p := baseProfile()
				p.Age = 25
				p.Sex = SexFemale
				p.Height = 165
				p.Weight = 60
				p.ActivityLevel = ActivitySedentary
				p.Goal = GoalMaintain
				p.GoalIntensity = IntensityMild
				return p
			},
			want: MacroTargets{Calories: 1614, Protein: 96, Carbs: 207, Fats: 45, BaseTDEE: 1614},
		},
		{
			name: "male very active aggressive build",
			profile: func() Profile {
				p := baseProfile()
				p.Weight = 82
				p.ActivityLevel = ActivityVery
				p.Goal = GoalBuild
				p.GoalIntensity = IntensityAggressive
				return p
			},
			want: MacroTargets{Calories: 3855, Protein: 148, Carbs: 575, Fats: 107, BaseTDEE: 3105},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateTargets(tt.profile())
			if err != nil {
				t.Fatalf("CalculateTargets() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CalculateTargets() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCalculateTargets_Deterministic(t *testing.T) {
	p := baseProfile()
	first, err := CalculateTargets(p)
	if err != nil {
		t.Fatalf("CalculateTargets() error = %v", err)
	}
	for i := 0; i < 100; i++ {
		got, _ := CalculateTargets(p)
		if got != first {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestCalculateTargets_ImperialUnits(t *testing.T) {
	metric := baseProfile()
	metric.Height = 182.88
	metric.Weight = 80

	imperial := baseProfile()
	imperial.Height = 6
	imperial.HeightUnit = HeightUnitFT
	imperial.Weight = 80 * LbsPerKG
	imperial.WeightUnit = WeightUnitLB

	want, err := CalculateTargets(metric)
	if err != nil {
		t.Fatalf("metric error = %v", err)
	}
	got, err := CalculateTargets(imperial)
	if err != nil {
		t.Fatalf("imperial error = %v", err)
	}
	if got != want {
		t.Errorf("imperial = %+v, want %+v", got, want)
	}
}

func TestCalculateTargets_GoalAdjustment(t *testing.T) {
	maintain := baseProfile()
	maintain.Goal = GoalMaintain
	base, err := CalculateTargets(maintain)
	if err != nil {
		t.Fatalf("error = %v", err)
	}

	for intensity, kcal := range IntensityCalories {
		lose := baseProfile()
		lose.GoalIntensity = intensity
		got, _ := CalculateTargets(lose)
		if got.Calories != base.Calories-int(kcal) {
			t.Errorf("lose/%s calories = %d, want %d", intensity, got.Calories, base.Calories-int(kcal))
		}
		if got.BaseTDEE != base.BaseTDEE {
			t.Errorf("lose/%s baseTDEE = %d, want %d", intensity, got.BaseTDEE, base.BaseTDEE)
		}

		build := baseProfile()
		build.Goal = GoalBuild
		build.GoalIntensity = intensity
		got, _ = CalculateTargets(build)
		if got.Calories != base.Calories+int(kcal) {
			t.Errorf("build/%s calories = %d, want %d", intensity, got.Calories, base.Calories+int(kcal))
		}
	}

	// intensity is ignored when maintaining
	maintain.GoalIntensity = IntensityAggressive
	got, _ := CalculateTargets(maintain)
	if got != base {
		t.Errorf("maintain/aggressive = %+v, want %+v", got, base)
	}
}

func TestCalculateTargets_CarbsFloor(t *testing.T) {
	p := Profile{
		Age:           100,
		Sex:           SexFemale,
		Height:        50,
		HeightUnit:    HeightUnitCM,
		Weight:        150,
		WeightUnit:    WeightUnitKG,
		ActivityLevel: ActivitySedentary,
		Goal:          GoalLose,
		GoalIntensity: IntensityAggressive,
	}
	got, err := CalculateTargets(p)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if got.Carbs != 0 {
		t.Errorf("Carbs = %d, want 0", got.Carbs)
	}
	if got.Calories != 632 {
		t.Errorf("Calories = %d, want 632", got.Calories)
	}
}

func TestBMR_OtherIsMeanOfBinary(t *testing.T) {
	male := BMR(70, 175, 40, SexMale)
	female := BMR(70, 175, 40, SexFemale)
	other := BMR(70, 175, 40, SexOther)
	if math.Abs(other-(male+female)/2) > 1e-9 {
		t.Errorf("BMR(other) = %f, want %f", other, (male+female)/2)
	}
}

func TestCalculateTargets_InvalidInput(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*Profile)
	}{
		{"age", func(p *Profile) { p.Age = 12 }},
		{"age", func(p *Profile) { p.Age = 121 }},
		{"age", func(p *Profile) { p.Age = -5 }},
		{"sex", func(p *Profile) { p.Sex = "unknown" }},
		{"heightUnit", func(p *Profile) { p.HeightUnit = "in" }},
		{"height", func(p *Profile) { p.Height = 0 }},
		{"height", func(p *Profile) { p.Height = 9; p.HeightUnit = HeightUnitFT }},
		{"height", func(p *Profile) { p.Height = math.NaN() }},
		{"weightUnit", func(p *Profile) { p.WeightUnit = "stone" }},
		{"weight", func(p *Profile) { p.Weight = -80 }},
		{"weight", func(p *Profile) { p.Weight = 1000; p.WeightUnit = WeightUnitLB }},
		{"activityLevel", func(p *Profile) { p.ActivityLevel = "extreme" }},
		{"goal", func(p *Profile) { p.Goal = "bulk" }},
		{"goalIntensity", func(p *Profile) { p.GoalIntensity = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			p := baseProfile()
			tt.mutate(&p)
			_, err := CalculateTargets(p)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("error = %v, want ErrInvalidInput", err)
			}
			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("error type = %T, want *InputError", err)
			}
			if inputErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", inputErr.Field, tt.field)
			}
		})
	}
}

func TestManualTargets(t *testing.T) {
	tests := []struct {
		protein, carbs, fats float64
	}{
		{150, 200, 60},
		{0, 0, 0},
		{120.4, 210.6, 55.3},
		{33.3, 0, 12.5},
		{MaxProteinGrams, MaxCarbsGrams, MaxFatsGrams},
	}
	for _, tt := range tests {
		got, err := ManualTargets(tt.protein, tt.carbs, tt.fats)
		if err != nil {
			t.Fatalf("ManualTargets(%v, %v, %v) error = %v", tt.protein, tt.carbs, tt.fats, err)
		}
		want := int(math.Round(tt.protein*4 + tt.carbs*4 + tt.fats*9))
		if got.Calories != want {
			t.Errorf("ManualTargets(%v, %v, %v).Calories = %d, want %d", tt.protein, tt.carbs, tt.fats, got.Calories, want)
		}
		if got.BaseTDEE != 0 {
			t.Errorf("ManualTargets BaseTDEE = %d, want 0", got.BaseTDEE)
		}
	}

	got, _ := ManualTargets(150, 200, 60)
	if got != (MacroTargets{Calories: 1940, Protein: 150, Carbs: 200, Fats: 60}) {
		t.Errorf("ManualTargets(150, 200, 60) = %+v", got)
	}
}

func TestManualTargets_InvalidInput(t *testing.T) {
	cases := []struct {
		field                string
		protein, carbs, fats float64
	}{
		{"protein", -1, 10, 10},
		{"carbs", 10, math.Inf(1), 10},
		{"fats", 10, 10, math.NaN()},
		{"protein", 1e300, 10, 10},
		{"carbs", 10, MaxCarbsGrams + 1, 10},
		{"fats", 10, 10, 1001},
	}
	for _, c := range cases {
		_, err := ManualTargets(c.protein, c.carbs, c.fats)
		var inputErr *InputError
		if !errors.As(err, &inputErr) || inputErr.Field != c.field {
			t.Errorf("ManualTargets error = %v, want InputError on %q", err, c.field)
		}
	}
}
