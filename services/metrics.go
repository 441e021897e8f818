package services

// Metrics collects domain counters. Implementations must be safe for concurrent use.
type Metrics interface {
	RoomMatched(gap float64)
	BPStepResolved(action string)
	BPCompleted(finalMap string)
	MatchFinished(winner string, ratingDeltas []int)
}

type nopMetrics struct{}

func (nopMetrics) RoomMatched(float64)         {}
func (nopMetrics) BPStepResolved(string)       {}
func (nopMetrics) BPCompleted(string)          {}
func (nopMetrics) MatchFinished(string, []int) {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
