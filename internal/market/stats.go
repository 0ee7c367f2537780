package market

import "math"

// pearson returns the correlation coefficient of two equally long series, or 0 when
// either series is flat or too short.
func pearson(a, b []float64) float64 {
	n := len(a)
	if n != len(b) || n < 2 {
		return 0
	}
	meanA, meanB := mean(a), mean(b)
	var num, sqA, sqB float64
	for i := 0; i < n; i++ {
		da, db := a[i]-meanA, b[i]-meanB
		num += da * db
		sqA += da * da
		sqB += db * db
	}
	if sqA == 0 || sqB == 0 {
		return 0
	}
	r := num / math.Sqrt(sqA*sqB)
	return math.Max(-1, math.Min(1, r))
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// simpleReturns converts a price series into period-over-period returns, skipping
// periods that start from a non-positive price.
func simpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (prices[i]-prices[i-1])/prices[i-1])
	}
	return out
}

// alignTails cuts both series to their common trailing length
func alignTails(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	return a[len(a)-n:], b[len(b)-n:]
}

// ema seeds with the simple average of the first period values and smooths the rest
// with alpha = 2/(period+1).
func ema(values []float64, period int) (float64, bool) {
	if period < 1 || len(values) < period {
		return 0, false
	}
	value := mean(values[:period])
	alpha := 2.0 / float64(period+1)
	for _, v := range values[period:] {
		value = v*alpha + value*(1-alpha)
	}
	return value, true
}
