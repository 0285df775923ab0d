package heater

import "math"

// Clean performance verdicts.
const (
	PerformanceStandby = "STANDBY"
	PerformancePass    = "PASS"
	PerformanceFail    = "FAIL"
	PerformanceInvalid = "INVALID"
)

const (
	cleanToleranceC = 2.0
	cleanMinTargetC = 70.0
)

// EvaluateCleanPerformance grades how well the water tracks the target while clean mode runs.
func EvaluateCleanPerformance(cleanMode, water, target float64) string {
	if cleanMode <= 0 {
		return PerformanceStandby
	}
	if target < cleanMinTargetC {
		return PerformanceInvalid
	}
	if math.Abs(water-target) <= cleanToleranceC {
		return PerformancePass
	}
	return PerformanceFail
}
