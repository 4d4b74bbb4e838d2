package indicators

import "fmt"

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return 0, fmt.Errorf("sma(%d) over %d values: %w", period, len(values), ErrNotEnoughData)
	}

	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), nil
}

// SMASlope returns SMA(period) at the last value minus SMA(period) one value
// earlier, the first difference of the rolling average.
func SMASlope(values []float64, period int) (float64, error) {
	if len(values) < period+1 {
		return 0, fmt.Errorf("sma(%d) slope over %d values: %w", period, len(values), ErrNotEnoughData)
	}
	cur, err := SMA(values, period)
	if err != nil {
		return 0, err
	}
	prev, err := SMA(values[:len(values)-1], period)
	if err != nil {
		return 0, err
	}
	return cur - prev, nil
}
