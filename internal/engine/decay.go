package engine

import "math"

// DecayStep advances a continuous-time exponential moving average by elapsed
// seconds with the given time constant.
//
// A non-finite previous value bootstraps to incoming, a non-finite incoming
// sample is skipped, a non-positive elapsed time is a no-op and a non-positive
// time constant disables smoothing.
func DecayStep(previous, incoming, elapsed, timeConstant float64) float64 {
	if !isFinite(previous) {
		return incoming
	}
	if !isFinite(incoming) {
		return previous
	}
	if !isFinite(elapsed) || elapsed <= 0 {
		return previous
	}
	if !isFinite(timeConstant) || timeConstant <= 0 {
		return incoming
	}
	alpha := 1 - math.Exp(-elapsed/timeConstant)
	return previous + alpha*(incoming-previous)
}
