package analysis

import "math"

// Indicator periods. The scoring rule table references these same windows,
// so they are fixed here rather than configurable.
const (
	smaShortPeriod  = 5
	smaMidPeriod    = 25
	smaLongPeriod   = 75
	smaTrendPeriod  = 200
	emaFastPeriod   = 12
	emaSlowPeriod   = 26
	rsiPeriod       = 14
	macdSignalSpan  = 9
	bollingerPeriod = 20
	bollingerStdDev = 2.0
	volumeSMAPeriod = 25
)

// ComputeIndicators derives the IndicatorSnapshot for the last bar of the
// given series. Insufficient history is never an error: any indicator whose
// window exceeds the series length stays nil and scores as "not applicable"
// downstream.
func ComputeIndicators(bars []PriceBar) IndicatorSnapshot {
	snap := IndicatorSnapshot{}
	if len(bars) == 0 {
		return snap
	}
	snap.Date = bars[len(bars)-1].Date

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = float64(b.Volume)
	}

	snap.SMA5 = smaLast(closes, smaShortPeriod)
	snap.SMA25 = smaLast(closes, smaMidPeriod)
	snap.SMA75 = smaLast(closes, smaLongPeriod)
	snap.SMA200 = smaLast(closes, smaTrendPeriod)
	snap.VolumeSMA25 = smaLast(volumes, volumeSMAPeriod)

	emaFast := emaSeries(closes, emaFastPeriod)
	emaSlow := emaSeries(closes, emaSlowPeriod)
	snap.EMA12 = lastDefined(emaFast)
	snap.EMA26 = lastDefined(emaSlow)

	snap.RSI14 = rsiLast(closes, rsiPeriod)

	macdLine, macdSignal := macdSeries(emaFast, emaSlow)
	snap.MACDLine = lastDefined(macdLine)
	snap.MACDSignal = lastDefined(macdSignal)
	if snap.MACDLine != nil && snap.MACDSignal != nil {
		hist := *snap.MACDLine - *snap.MACDSignal
		snap.MACDHistogram = &hist
	}

	snap.BBUpper2, snap.BBMiddle, snap.BBLower2 = bollingerLast(closes, bollingerPeriod, bollingerStdDev)

	return snap
}

// smaLast returns the simple moving average of the last `period` values,
// or nil when fewer than `period` values exist.
func smaLast(values []float64, period int) *float64 {
	if len(values) < period {
		return nil
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	avg := sum / float64(period)
	return &avg
}

// emaSeries computes the exponential moving average with smoothing factor
// α = 2/(period+1), seeded by the SMA of the first `period` values.
// Entries before the seed point are nil.
func emaSeries(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if len(values) < period {
		return out
	}
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	ema := seed
	out[period-1] = cloneFloat(ema)

	alpha := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(values); i++ {
		ema = alpha*values[i] + (1-alpha)*ema
		out[i] = cloneFloat(ema)
	}
	return out
}

// rsiLast computes Wilder's RSI over `period` deltas. Returns nil until
// period+1 closes exist. When the smoothed average loss is zero the RSI
// saturates at 100.
func rsiLast(closes []float64, period int) *float64 {
	if len(closes) < period+1 {
		return nil
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return cloneFloat(100.0)
	}
	rs := avgGain / avgLoss
	return cloneFloat(100.0 - 100.0/(1.0+rs))
}

// macdSeries derives the MACD line (fast EMA − slow EMA) and its signal
// line (EMA over macdSignalSpan of the MACD line, seeded with the SMA of
// its first macdSignalSpan defined values).
func macdSeries(emaFast, emaSlow []*float64) (line, signal []*float64) {
	line = make([]*float64, len(emaFast))
	signal = make([]*float64, len(emaFast))

	var defined []float64
	definedAt := make([]int, 0, len(emaFast))
	for i := range emaFast {
		if emaFast[i] == nil || emaSlow[i] == nil {
			continue
		}
		v := *emaFast[i] - *emaSlow[i]
		line[i] = cloneFloat(v)
		defined = append(defined, v)
		definedAt = append(definedAt, i)
	}
	if len(defined) < macdSignalSpan {
		return line, signal
	}

	seed := 0.0
	for i := 0; i < macdSignalSpan; i++ {
		seed += defined[i]
	}
	seed /= float64(macdSignalSpan)
	ema := seed
	signal[definedAt[macdSignalSpan-1]] = cloneFloat(ema)

	alpha := 2.0 / (float64(macdSignalSpan) + 1.0)
	for i := macdSignalSpan; i < len(defined); i++ {
		ema = alpha*defined[i] + (1-alpha)*ema
		signal[definedAt[i]] = cloneFloat(ema)
	}
	return line, signal
}

// bollingerLast computes the 2σ Bollinger Bands over the last `period`
// closes using the population standard deviation.
func bollingerLast(closes []float64, period int, stdDev float64) (upper, middle, lower *float64) {
	mid := smaLast(closes, period)
	if mid == nil {
		return nil, nil, nil
	}

	variance := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - *mid
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period))

	return cloneFloat(*mid + stdDev*sd), mid, cloneFloat(*mid - stdDev*sd)
}

func lastDefined(series []*float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	return series[len(series)-1]
}

func cloneFloat(v float64) *float64 {
	return &v
}
