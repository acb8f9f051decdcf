package nutrition

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
	SexOther  Sex = "other"
)

type ActivityLevel string

const (
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityLightly   ActivityLevel = "lightly"
	ActivityModerate  ActivityLevel = "moderate"
	ActivityVery      ActivityLevel = "very"
)

type Goal string

const (
	GoalLose     Goal = "lose"
	GoalMaintain Goal = "maintain"
	GoalBuild    Goal = "build"
)

type Intensity string

const (
	IntensityMild       Intensity = "mild"
	IntensityModerate   Intensity = "moderate"
	IntensityAggressive Intensity = "aggressive"
)

const (
	HeightUnitCM = "cm"
	HeightUnitFT = "ft"
	WeightUnitKG = "kg"
	WeightUnitLB = "lbs"
)

// Mifflin-St Jeor sex constants. "other" uses the mean of the two.
var SexConstants = map[Sex]float64{
	SexMale:   5,
	SexFemale: -161,
	SexOther:  -78,
}

// ActivityMultipliers maps activity level to the BMR -> TDEE multiplier.
var ActivityMultipliers = map[ActivityLevel]float64{
	ActivitySedentary: 1.2,
	ActivityLightly:   1.375,
	ActivityModerate:  1.55,
	ActivityVery:      1.725,
}

// IntensityCalories is the kcal/day deficit (lose) or surplus (build).
var IntensityCalories = map[Intensity]float64{
	IntensityMild:       250,
	IntensityModerate:   500,
	IntensityAggressive: 750,
}

// ProteinPerKg is grams of protein per kg of bodyweight for each goal.
var ProteinPerKg = map[Goal]float64{
	GoalLose:     2.0,
	GoalMaintain: 1.6,
	GoalBuild:    1.8,
}

const (
	// FatCalorieShare is the share of the calorie target assigned to fat.
	FatCalorieShare = 0.25

	KcalPerGramProtein = 4.0
	KcalPerGramCarbs   = 4.0
	KcalPerGramFat     = 9.0

	CMPerFoot = 30.48
	LbsPerKG  = 2.20462

	MinAge      = 13
	MaxAge      = 120
	MinHeightCM = 50.0
	MaxHeightCM = 250.0
	MinWeightKG = 20.0
	MaxWeightKG = 400.0

	// Daily gram ceilings for manually entered targets.
	MaxProteinGrams = 1000.0
	MaxCarbsGrams   = 2000.0
	MaxFatsGrams    = 1000.0
)
