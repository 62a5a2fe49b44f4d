package aggregate

// RollingPoint is the trailing-window statistic at one position of a series.
type RollingPoint struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	N    int     `json:"n"`
}

// Rolling computes a trailing rolling mean and sample standard deviation
// over values. Early positions use the values available so far, so the
// output always has len(values) points. A window below 1 is treated as 1.
func Rolling(values []float64, window int) []RollingPoint {
	if window < 1 {
		window = 1
	}
	out := make([]RollingPoint, len(values))
	for i := range values {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		mean, std := MeanStd(values[lo : i+1])
		out[i] = RollingPoint{Mean: mean, Std: std, N: i + 1 - lo}
	}
	return out
}

// Means extracts the Mean of every bucket.
func Means(buckets []Bucket) []float64 {
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = b.Mean
	}
	return out
}
