package indicators

import "fmt"

// RSI computes the Relative Strength Index of the series using Wilder's
// smoothing. It needs at least period+1 values.
func RSI(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) <= period {
		return 0, fmt.Errorf("rsi(%d) over %d values: %w", period, len(values), ErrNotEnoughData)
	}

	p := float64(period)
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= p
	avgLoss /= p

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil
		}
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), nil
}
