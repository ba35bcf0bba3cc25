// Package bodymetrics computes BMI, BMR (Mifflin-St Jeor) and daily calorie
// goals from body metrics. All functions are pure and never return errors:
// missing or zero inputs degrade to 0, and unknown activity levels fall back
// to the moderate multiplier. Range validation (age 1-120, height 50-300 cm,
// weight 20-500 kg) is the caller's responsibility.
package bodymetrics

import "math"

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "veryActive"
)

// ActivityMultipliers is the single source of truth for valid activity levels
// and their TDEE multipliers.
var ActivityMultipliers = map[ActivityLevel]float64{
	ActivitySedentary:  1.2,   // little or no exercise
	ActivityLight:      1.375, // light exercise 1-3 days/week
	ActivityModerate:   1.55,  // moderate exercise 3-5 days/week
	ActivityActive:     1.725, // hard exercise 6-7 days/week
	ActivityVeryActive: 1.9,   // very hard exercise & physical job
}

type Category string

const (
	CategoryUnderweight Category = "Underweight"
	CategoryNormal      Category = "Normal"
	CategoryOverweight  Category = "Overweight"
	CategoryObese       Category = "Obese"
)

// ComputeBMI returns weight / height² with height in meters. Returns 0 when
// either input is missing so callers never divide by zero.
func ComputeBMI(weightKg, heightCm float64) float64 {
	if weightKg == 0 || heightCm == 0 {
		return 0
	}
	heightM := heightCm / 100
	return weightKg / (heightM * heightM)
}

// ClassifyBMI buckets a BMI value. Each upper bound is checked with strict <,
// so the boundary values 18.5, 25 and 30 land in the higher category.
func ClassifyBMI(bmi float64) Category {
	switch {
	case bmi < 18.5:
		return CategoryUnderweight
	case bmi < 25:
		return CategoryNormal
	case bmi < 30:
		return CategoryOverweight
	default:
		return CategoryObese
	}
}

// BMIColor maps the same buckets to the client theme's color tokens. The
// tokens are part of the contract: the mobile client renders them directly.
func BMIColor(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "#FFD60A" // yellow
	case bmi < 25:
		return "#30D158" // green
	case bmi < 30:
		return "#FF9F0A" // orange
	default:
		return "#FF453A" // red
	}
}

// ComputeBMR estimates resting calories via Mifflin-St Jeor, rounded to the
// nearest integer. Returns 0 when weight, height or age is missing.
func ComputeBMR(weightKg, heightCm float64, age int, sex Sex) int {
	if weightKg == 0 || heightCm == 0 || age == 0 {
		return 0
	}
	bmr := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if sex == SexFemale {
		bmr -= 161
	} else {
		bmr += 5
	}
	return int(math.Round(bmr))
}

// ComputeCalorieGoal scales a BMR by the activity multiplier. Unknown levels
// fall back to moderate.
func ComputeCalorieGoal(bmr int, level ActivityLevel) int {
	mult, ok := ActivityMultipliers[level]
	if !ok {
		mult = ActivityMultipliers[ActivityModerate]
	}
	return int(math.Round(float64(bmr) * mult))
}
