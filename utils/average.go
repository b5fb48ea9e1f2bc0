package utils

// RollingAverage is a fixed-size moving average over the most recent samples.
type RollingAverage struct {
	data  []float64
	pos   int
	count int
}

// NewRollingAverage returns a RollingAverage over numSamples samples. numSamples below one is
// treated as one.
func NewRollingAverage(numSamples int) *RollingAverage {
	if numSamples < 1 {
		numSamples = 1
	}
	return &RollingAverage{data: make([]float64, numSamples)}
}

// NumSamples returns the window size.
func (ra *RollingAverage) NumSamples() int {
	return len(ra.data)
}

// Add records a sample, evicting the oldest once the window is full.
func (ra *RollingAverage) Add(x float64) {
	ra.data[ra.pos] = x
	ra.pos++
	if ra.pos >= len(ra.data) {
		ra.pos = 0
	}
	if ra.count < len(ra.data) {
		ra.count++
	}
}

// Average returns the mean of the recorded samples, or 0 before any sample is added.
func (ra *RollingAverage) Average() float64 {
	if ra.count == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < ra.count; i++ {
		sum += ra.data[i]
	}
	return sum / float64(ra.count)
}
