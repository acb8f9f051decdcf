// Package nutrition computes daily calorie and macro targets from a user's
// biometric profile. Everything here is pure: no I/O, no clock.
package nutrition

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is matched by every *InputError.
var ErrInvalidInput = errors.New("invalid input")

// InputError names the field that failed validation.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, format string, args ...interface{}) error {
	return &InputError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Profile is the biometric and goal input collected during onboarding.
type Profile struct {
	Age           int           `json:"age" bson:"age"`
	Sex           Sex           `json:"sex" bson:"sex"`
	Height        float64       `json:"height" bson:"height"`
	HeightUnit    string        `json:"heightUnit" bson:"heightUnit"`
	Weight        float64       `json:"weight" bson:"weight"`
	WeightUnit    string        `json:"weightUnit" bson:"weightUnit"`
	ActivityLevel ActivityLevel `json:"activityLevel" bson:"activityLevel"`
	Goal          Goal          `json:"goal" bson:"goal"`
	GoalIntensity Intensity     `json:"goalIntensity" bson:"goalIntensity"`
}

// MacroTargets is the daily target. BaseTDEE is zero in manual mode.
type MacroTargets struct {
	Calories int `json:"calories" bson:"calories"`
	Protein  int `json:"protein" bson:"protein"`
	Carbs    int `json:"carbs" bson:"carbs"`
	Fats     int `json:"fats" bson:"fats"`
	BaseTDEE int `json:"baseTDEE,omitempty" bson:"baseTDEE,omitempty"`
}

// Validate checks every field and returns the first offending one.
func (p Profile) Validate() error {
	if p.Age < MinAge || p.Age > MaxAge {
		return invalid("age", "must be between %d and %d, got %d", MinAge, MaxAge, p.Age)
	}
	if _, ok := SexConstants[p.Sex]; !ok {
		return invalid("sex", "unknown value %q", p.Sex)
	}
	if _, err := p.HeightCM(); err != nil {
		return err
	}
	if _, err := p.WeightKG(); err != nil {
		return err
	}
	if _, ok := ActivityMultipliers[p.ActivityLevel]; !ok {
		return invalid("activityLevel", "unknown value %q", p.ActivityLevel)
	}
	if _, ok := ProteinPerKg[p.Goal]; !ok {
		return invalid("goal", "unknown value %q", p.Goal)
	}
	if _, ok := IntensityCalories[p.GoalIntensity]; !ok {
		return invalid("goalIntensity", "unknown value %q", p.GoalIntensity)
	}
	return nil
}

// HeightCM normalises the height to centimetres.
func (p Profile) HeightCM() (float64, error) {
	if math.IsNaN(p.Height) || math.IsInf(p.Height, 0) {
		return 0, invalid("height", "must be a finite number")
	}
	var cm float64
	switch p.HeightUnit {
	case HeightUnitCM:
		cm = p.Height
	case HeightUnitFT:
		cm = p.Height * CMPerFoot
	default:
		return 0, invalid("heightUnit", "unknown value %q", p.HeightUnit)
	}
	if cm < MinHeightCM || cm > MaxHeightCM {
		return 0, invalid("height", "out of plausible range (%.0f-%.0f cm), got %.1f cm", MinHeightCM, MaxHeightCM, cm)
	}
	return cm, nil
}

// WeightKG normalises the weight to kilograms.
func (p Profile) WeightKG() (float64, error) {
	if math.IsNaN(p.Weight) || math.IsInf(p.Weight, 0) {
		return 0, invalid("weight", "must be a finite number")
	}
	var kg float64
	switch p.WeightUnit {
	case WeightUnitKG:
		kg = p.Weight
	case WeightUnitLB:
		kg = p.Weight / LbsPerKG
	default:
		return 0, invalid("weightUnit", "unknown value %q", p.WeightUnit)
	}
	if kg < MinWeightKG || kg > MaxWeightKG {
		return 0, invalid("weight", "out of plausible range (%.0f-%.0f kg), got %.1f kg", MinWeightKG, MaxWeightKG, kg)
	}
	return kg, nil
}

// BMR returns the Mifflin-St Jeor basal metabolic rate in kcal/day.
func BMR(weightKG, heightCM float64, age int, sex Sex) float64 {
	return 10*weightKG + 6.25*heightCM - 5*float64(age) + SexConstants[sex]
}

// CalculateTargets derives the daily calorie and macro targets for p.
func CalculateTargets(p Profile) (MacroTargets, error) {
	if err := p.Validate(); err != nil {
		return MacroTargets{}, err
	}
	heightCM, _ := p.HeightCM()
	weightKG, _ := p.WeightKG()

	bmr := BMR(weightKG, heightCM, p.Age, p.Sex)
	tdee := bmr * ActivityMultipliers[p.ActivityLevel]

	calories := tdee
	switch p.Goal {
	case GoalLose:
		calories -= IntensityCalories[p.GoalIntensity]
	case GoalBuild:
		calories += IntensityCalories[p.GoalIntensity]
	}
	calories = math.Round(math.Max(calories, 0))

	protein := ProteinPerKg[p.Goal] * weightKG
	fats := calories * FatCalorieShare / KcalPerGramFat
	carbs := (calories - protein*KcalPerGramProtein - fats*KcalPerGramFat) / KcalPerGramCarbs
	if carbs < 0 {
		carbs = 0
	}

	return MacroTargets{
		Calories: int(calories),
		Protein:  int(math.Round(protein)),
		Carbs:    int(math.Round(carbs)),
		Fats:     int(math.Round(fats)),
		BaseTDEE: int(math.Round(tdee)),
	}, nil
}

// ManualTargets builds targets from caller supplied macros. Calories are
// always derived from the macros, never supplied.
func ManualTargets(protein, carbs, fats float64) (MacroTargets, error) {
	for _, f := range []struct {
		name  string
		value float64
		max   float64
	}{
		{"protein", protein, MaxProteinGrams},
		{"carbs", carbs, MaxCarbsGrams},
		{"fats", fats, MaxFatsGrams},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return MacroTargets{}, invalid(f.name, "must be a finite number")
		}
		if f.value < 0 {
			return MacroTargets{}, invalid(f.name, "must not be negative, got %g", f.value)
		}
		if f.value > f.max {
			return MacroTargets{}, invalid(f.name, "must be at most %g g, got %g", f.max, f.value)
		}
	}

	calories := protein*KcalPerGramProtein + carbs*KcalPerGramCarbs + fats*KcalPerGramFat
	return MacroTargets{
		Calories: int(math.Round(calories)),
		Protein:  int(math.Round(protein)),
		Carbs:    int(math.Round(carbs)),
		Fats:     int(math.Round(fats)),
	}, nil
}
