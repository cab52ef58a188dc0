package analysis

import (
	"fmt"
	"math"
	"sort"
)

// ScoringConfig tunes the scoring rule table. Rule weights multiply the
// base contribution of each rule; TechnicalWeight/FundamentalWeight blend
// the two sub-scores into the combined score. Loadable from YAML so the
// table can be tuned without recompiling.
type ScoringConfig struct {
	TechnicalWeight   float64     `yaml:"technical_weight"`
	FundamentalWeight float64     `yaml:"fundamental_weight"`
	Rules             RuleWeights `yaml:"rules"`
}

// RuleWeights holds one multiplier per scoring rule.
type RuleWeights struct {
	SMATrend      float64 `yaml:"sma_trend"`
	RSI           float64 `yaml:"rsi"`
	MACD          float64 `yaml:"macd"`
	Bollinger     float64 `yaml:"bollinger"`
	Volume        float64 `yaml:"volume"`
	PER           float64 `yaml:"per"`
	PBR           float64 `yaml:"pbr"`
	DividendYield float64 `yaml:"dividend_yield"`
	ROE           float64 `yaml:"roe"`
}

// DefaultScoringConfig returns the default 60/40 technical/fundamental
// blend with all rule weights at 1.0.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		TechnicalWeight:   0.6,
		FundamentalWeight: 0.4,
		Rules: RuleWeights{
			SMATrend:      1.0,
			RSI:           1.0,
			MACD:          1.0,
			Bollinger:     1.0,
			Volume:        1.0,
			PER:           1.0,
			PBR:           1.0,
			DividendYield: 1.0,
			ROE:           1.0,
		},
	}
}

// Validate rejects weight configurations that cannot produce a meaningful
// blended score.
func (c ScoringConfig) Validate() error {
	if c.TechnicalWeight < 0 || c.FundamentalWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative (technical=%v fundamental=%v)",
			c.TechnicalWeight, c.FundamentalWeight)
	}
	if c.TechnicalWeight+c.FundamentalWeight == 0 {
		return fmt.Errorf("technical and fundamental weights cannot both be zero")
	}
	return nil
}

// PriceContext is the current price/volume the scoring rules evaluate
// indicator levels against.
type PriceContext struct {
	Close  float64
	Volume int64
}

// ScoreResult is the output of one scoring pass for one stock/date.
type ScoreResult struct {
	Score            float64
	TechnicalScore   float64
	FundamentalScore float64
	Reasons          []SignalReason
}

// contribution is one rule's signed output before weighting.
type contribution struct {
	indicator   string
	description string
	points      float64
}

// Score combines the indicator snapshot and fundamental snapshot into a
// 0–100 score (50 = neutral). Each applicable rule contributes signed
// points; indicators that are not yet computable contribute nothing.
// Every nonzero contribution appears in Reasons, sorted by absolute score
// descending with ties broken by indicator name.
func Score(ind IndicatorSnapshot, fund *FundamentalSnapshot, px PriceContext, cfg ScoringConfig) ScoreResult {
	technical := []struct {
		c contribution
		w float64
	}{
		{scoreSMATrend(ind), cfg.Rules.SMATrend},
		{scoreRSI(ind), cfg.Rules.RSI},
		{scoreMACD(ind), cfg.Rules.MACD},
		{scoreBollinger(ind, px.Close), cfg.Rules.Bollinger},
		{scoreVolume(ind, px.Volume), cfg.Rules.Volume},
	}
	fundamental := []struct {
		c contribution
		w float64
	}{
		{scorePER(fund), cfg.Rules.PER},
		{scorePBR(fund), cfg.Rules.PBR},
		{scoreDividendYield(fund), cfg.Rules.DividendYield},
		{scoreROE(fund), cfg.Rules.ROE},
	}

	var reasons []SignalReason
	techSum, fundSum := 0.0, 0.0

	for _, rc := range technical {
		pts := rc.c.points * rc.w
		techSum += pts
		if pts != 0 {
			reasons = append(reasons, SignalReason{
				Indicator:   rc.c.indicator,
				Description: rc.c.description,
				Score:       pts,
			})
		}
	}
	for _, rc := range fundamental {
		pts := rc.c.points * rc.w
		fundSum += pts
		if pts != 0 {
			reasons = append(reasons, SignalReason{
				Indicator:   rc.c.indicator,
				Description: rc.c.description,
				Score:       pts,
			})
		}
	}

	sort.Slice(reasons, func(i, j int) bool {
		ai, aj := math.Abs(reasons[i].Score), math.Abs(reasons[j].Score)
		if ai != aj {
			return ai > aj
		}
		return reasons[i].Indicator < reasons[j].Indicator
	})

	techScore := clampScore(50 + techSum)
	fundScore := clampScore(50 + fundSum)
	totalWeight := cfg.TechnicalWeight + cfg.FundamentalWeight
	combined := (techScore*cfg.TechnicalWeight + fundScore*cfg.FundamentalWeight) / totalWeight

	return ScoreResult{
		Score:            round2(combined),
		TechnicalScore:   round2(techScore),
		FundamentalScore: round2(fundScore),
		Reasons:          reasons,
	}
}

func scoreSMATrend(ind IndicatorSnapshot) contribution {
	c := contribution{indicator: "SMA"}
	if ind.SMA5 == nil || ind.SMA25 == nil {
		return c
	}
	sma5, sma25 := *ind.SMA5, *ind.SMA25

	switch {
	case sma5 > sma25:
		c.points = 10
		c.description = "short-term SMA above mid-term SMA (golden-cross bias)"
		if ind.SMA75 != nil && sma25 > *ind.SMA75 {
			c.points = 20
			c.description = "perfect order (SMA5 > SMA25 > SMA75)"
		}
	case sma5 < sma25:
		c.points = -10
		c.description = "short-term SMA below mid-term SMA (dead-cross bias)"
	}
	return c
}

func scoreRSI(ind IndicatorSnapshot) contribution {
	c := contribution{indicator: "RSI"}
	if ind.RSI14 == nil {
		return c
	}
	rsi := *ind.RSI14

	switch {
	case rsi <= 30:
		c.points = 15
		c.description = fmt.Sprintf("RSI=%.1f (oversold)", rsi)
	case rsi <= 40:
		c.points = 7.5
		c.description = fmt.Sprintf("RSI=%.1f (mildly oversold)", rsi)
	case rsi >= 70:
		c.points = -15
		c.description = fmt.Sprintf("RSI=%.1f (overbought)", rsi)
	case rsi >= 60:
		c.points = -5
		c.description = fmt.Sprintf("RSI=%.1f (mildly overbought)", rsi)
	}
	return c
}

func scoreMACD(ind IndicatorSnapshot) contribution {
	c := contribution{indicator: "MACD"}
	if ind.MACDLine == nil || ind.MACDSignal == nil {
		return c
	}

	if *ind.MACDLine > *ind.MACDSignal {
		c.points = 10
		c.description = "MACD above signal line"
		if ind.MACDHistogram != nil && *ind.MACDHistogram > 0 {
			c.points = 15
			c.description = "MACD above signal line with positive histogram"
		}
	} else {
		c.points = -10
		c.description = "MACD below signal line"
	}
	return c
}

func scoreBollinger(ind IndicatorSnapshot, closePrice float64) contribution {
	c := contribution{indicator: "Bollinger"}
	if ind.BBLower2 == nil || ind.BBUpper2 == nil {
		return c
	}
	lower, upper := *ind.BBLower2, *ind.BBUpper2
	middle := (lower + upper) / 2
	if ind.BBMiddle != nil {
		middle = *ind.BBMiddle
	}

	switch {
	case closePrice <= lower:
		c.points = 15
		c.description = "close at or below lower Bollinger band (-2σ)"
	case closePrice <= middle:
		c.points = 5
		c.description = "close below Bollinger middle band"
	case closePrice >= upper:
		c.points = -15
		c.description = "close at or above upper Bollinger band (+2σ)"
	default:
		c.points = -5
		c.description = "close above Bollinger middle band"
	}
	return c
}

func scoreVolume(ind IndicatorSnapshot, volume int64) contribution {
	c := contribution{indicator: "Volume"}
	if ind.VolumeSMA25 == nil || *ind.VolumeSMA25 == 0 {
		return c
	}
	ratio := float64(volume) / *ind.VolumeSMA25

	switch {
	case ratio >= 2.0:
		c.points = 15
		c.description = fmt.Sprintf("volume %.1fx the 25-day average (surge)", ratio)
	case ratio >= 1.5:
		c.points = 7.5
		c.description = fmt.Sprintf("volume %.1fx the 25-day average (elevated)", ratio)
	case ratio <= 0.5:
		c.points = -10
		c.description = fmt.Sprintf("volume %.1fx the 25-day average (drying up)", ratio)
	}
	return c
}

func scorePER(fund *FundamentalSnapshot) contribution {
	c := contribution{indicator: "PER"}
	if fund == nil || fund.PER == nil {
		return c
	}
	per := *fund.PER

	switch {
	case per <= 0:
		c.points = -15
		c.description = fmt.Sprintf("PER=%.1f (loss-making)", per)
	case per <= 10:
		c.points = 20
		c.description = fmt.Sprintf("PER=%.1f (undervalued)", per)
	case per <= 15:
		c.points = 10
		c.description = fmt.Sprintf("PER=%.1f (fair to slightly undervalued)", per)
	case per <= 25:
		// fair value, no contribution
	case per <= 40:
		c.points = -10
		c.description = fmt.Sprintf("PER=%.1f (slightly overvalued)", per)
	default:
		c.points = -17.5
		c.description = fmt.Sprintf("PER=%.1f (overvalued)", per)
	}
	return c
}

func scorePBR(fund *FundamentalSnapshot) contribution {
	c := contribution{indicator: "PBR"}
	if fund == nil || fund.PBR == nil {
		return c
	}
	pbr := *fund.PBR

	switch {
	case pbr <= 0:
		c.points = -15
		c.description = fmt.Sprintf("PBR=%.2f (negative book value)", pbr)
	case pbr <= 0.5:
		c.points = 20
		c.description = fmt.Sprintf("PBR=%.2f (deeply undervalued)", pbr)
	case pbr <= 1.0:
		c.points = 12.5
		c.description = fmt.Sprintf("PBR=%.2f (undervalued)", pbr)
	case pbr <= 2.0:
		// fair value, no contribution
	default:
		c.points = -12.5
		c.description = fmt.Sprintf("PBR=%.2f (overvalued)", pbr)
	}
	return c
}

func scoreDividendYield(fund *FundamentalSnapshot) contribution {
	c := contribution{indicator: "DividendYield"}
	if fund == nil || fund.DividendYield == nil {
		return c
	}
	dy := *fund.DividendYield

	switch {
	case dy >= 5.0:
		c.points = 20
		c.description = fmt.Sprintf("dividend yield %.1f%% (high dividend)", dy)
	case dy >= 3.0:
		c.points = 12.5
		c.description = fmt.Sprintf("dividend yield %.1f%% (attractive)", dy)
	case dy >= 2.0:
		c.points = 2.5
		c.description = fmt.Sprintf("dividend yield %.1f%%", dy)
	case dy > 0:
		c.points = -5
		c.description = fmt.Sprintf("dividend yield %.1f%% (low)", dy)
	default:
		c.points = -10
		c.description = "no dividend"
	}
	return c
}

func scoreROE(fund *FundamentalSnapshot) contribution {
	c := contribution{indicator: "ROE"}
	if fund == nil || fund.ROE == nil {
		return c
	}
	roe := *fund.ROE

	switch {
	case roe >= 20:
		c.points = 20
		c.description = fmt.Sprintf("ROE=%.1f%% (highly efficient)", roe)
	case roe >= 10:
		c.points = 10
		c.description = fmt.Sprintf("ROE=%.1f%% (efficient)", roe)
	case roe >= 5:
		// average, no contribution
	case roe > 0:
		c.points = -10
		c.description = fmt.Sprintf("ROE=%.1f%% (weak)", roe)
	default:
		c.points = -17.5
		c.description = fmt.Sprintf("ROE=%.1f%% (loss-making)", roe)
	}
	return c
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
