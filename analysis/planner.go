package analysis

import (
	"fmt"
	"math"
)

// PlannerConfig holds the account risk settings the trade plan builder
// sizes positions against.
type PlannerConfig struct {
	Capital            float64    `yaml:"capital"`
	RiskPerTradePct    float64    `yaml:"risk_per_trade_pct"` // fraction of capital risked per trade, e.g. 0.01
	MinRiskReward      float64    `yaml:"min_risk_reward"`
	DefaultStopLossPct float64    `yaml:"default_stop_loss_pct"` // fraction, e.g. 0.05
	TakeProfitRiskMult [3]float64 `yaml:"take_profit_risk_mult"` // reward multiples of the stop distance
	LotSize            int        `yaml:"lot_size"`
	MarketOrderScore   float64    `yaml:"market_order_score"` // buys at or above go out as market orders
}

// Volatility-derived stops stay inside these bounds regardless of how wide
// the Bollinger bands are.
const (
	minStopLossPct = 0.02
	maxStopLossPct = 0.08
)

// DefaultPlannerConfig returns the default 1M capital / 1% risk settings
// with take-profit tiers at 1x, 2x and 3x the stop distance.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Capital:            1_000_000,
		RiskPerTradePct:    0.01,
		MinRiskReward:      1.0,
		DefaultStopLossPct: 0.05,
		TakeProfitRiskMult: [3]float64{1, 2, 3},
		LotSize:            100,
		MarketOrderScore:   80,
	}
}

// Validate rejects risk settings that would produce degenerate plans.
func (c PlannerConfig) Validate() error {
	if c.Capital <= 0 {
		return fmt.Errorf("capital must be positive (got %v)", c.Capital)
	}
	if c.RiskPerTradePct <= 0 || c.RiskPerTradePct > 1 {
		return fmt.Errorf("risk_per_trade_pct must be in (0,1] (got %v)", c.RiskPerTradePct)
	}
	if c.DefaultStopLossPct <= 0 || c.DefaultStopLossPct >= 1 {
		return fmt.Errorf("default_stop_loss_pct must be in (0,1) (got %v)", c.DefaultStopLossPct)
	}
	if c.MinRiskReward <= 0 {
		return fmt.Errorf("min_risk_reward must be positive (got %v)", c.MinRiskReward)
	}
	if c.LotSize <= 0 {
		return fmt.Errorf("lot_size must be positive (got %v)", c.LotSize)
	}
	prev := 0.0
	for i, m := range c.TakeProfitRiskMult {
		if m <= prev {
			return fmt.Errorf("take_profit_risk_mult must be positive and strictly increasing (tier %d = %v)", i+1, m)
		}
		prev = m
	}
	return nil
}

// BuildPlan derives an executable trade plan from a classified signal.
// The second return is false when the plan is discarded: risk/reward below
// the configured minimum, zero risk distance, or capital too small for a
// single lot. Discarded plans are never emitted as zero-quantity orders.
func BuildPlan(sig Signal, ind IndicatorSnapshot, closePrice float64, cfg PlannerConfig) (*TradePlan, bool) {
	if closePrice <= 0 {
		return nil, false
	}

	// Sells always go out as market orders; buys below the conviction
	// threshold become limit orders at a pullback entry.
	orderType := OrderMarket
	if sig.SignalType == SignalBuy && sig.Score < cfg.MarketOrderScore {
		orderType = OrderLimit
	}
	entry := entryPrice(sig, ind, closePrice, orderType)

	stopPct := stopLossPct(ind, cfg)
	risk := entry * stopPct
	if risk <= 0 {
		return nil, false
	}

	var stopLoss float64
	levels := make([]TakeProfitLevel, 0, len(cfg.TakeProfitRiskMult))
	if sig.SignalType == SignalBuy {
		stopLoss = entry - risk
		for i, mult := range cfg.TakeProfitRiskMult {
			price := entry + mult*risk
			levels = append(levels, TakeProfitLevel{
				Level: i + 1,
				Price: round2(price),
				Pct:   round2((price - entry) / entry * 100),
			})
		}
	} else {
		stopLoss = entry + risk
		for i, mult := range cfg.TakeProfitRiskMult {
			price := entry - mult*risk
			if price <= 0 {
				return nil, false
			}
			levels = append(levels, TakeProfitLevel{
				Level: i + 1,
				Price: round2(price),
				Pct:   round2((price - entry) / entry * 100),
			})
		}
	}

	// Reward over risk measured against the first tier; the tier layout
	// makes this the configured first multiple, but keep the arithmetic
	// explicit so custom tier configs stay honest.
	riskReward := math.Abs(levels[0].Price-entry) / risk
	if riskReward < cfg.MinRiskReward {
		return nil, false
	}

	size := positionSize(entry, stopLoss, cfg)
	if size <= 0 {
		return nil, false
	}

	return &TradePlan{
		StockCode:        sig.StockCode,
		StockName:        sig.StockName,
		SignalType:       sig.SignalType,
		OrderType:        orderType,
		EntryPrice:       round2(entry),
		TakeProfitLevels: levels,
		StopLossPrice:    round2(stopLoss),
		StopLossPct:      round2(stopPct * 100),
		PositionSize:     size,
		RiskRewardRatio:  round2(riskReward),
		Score:            sig.Score,
	}, true
}

// entryPrice anchors limit buys halfway between the close and SMA25 when
// the SMA sits below the close (pullback entry); everything else enters at
// the current close.
func entryPrice(sig Signal, ind IndicatorSnapshot, closePrice float64, orderType OrderType) float64 {
	if sig.SignalType == SignalBuy && orderType == OrderLimit &&
		ind.SMA25 != nil && *ind.SMA25 < closePrice {
		return (closePrice + *ind.SMA25) / 2
	}
	return closePrice
}

// stopLossPct derives the stop distance from recent volatility: half the
// Bollinger band width relative to the middle band, clamped to sane
// bounds. Falls back to the configured fixed default when bands are not
// yet computable.
func stopLossPct(ind IndicatorSnapshot, cfg PlannerConfig) float64 {
	if ind.BBUpper2 == nil || ind.BBLower2 == nil || ind.BBMiddle == nil || *ind.BBMiddle <= 0 {
		return cfg.DefaultStopLossPct
	}
	halfWidth := (*ind.BBUpper2 - *ind.BBLower2) / 2
	pct := halfWidth / *ind.BBMiddle
	if pct <= 0 {
		return cfg.DefaultStopLossPct
	}
	if pct < minStopLossPct {
		return minStopLossPct
	}
	if pct > maxStopLossPct {
		return maxStopLossPct
	}
	return pct
}

// positionSize converts the per-trade risk budget into whole lots. A
// stop-loss hit on the returned size loses at most capital × risk pct.
func positionSize(entry, stopLoss float64, cfg PlannerConfig) int {
	riskPerShare := math.Abs(entry - stopLoss)
	if riskPerShare <= 0 {
		return 0
	}
	budget := cfg.Capital * cfg.RiskPerTradePct
	shares := int(math.Floor(budget / riskPerShare))
	return (shares / cfg.LotSize) * cfg.LotSize
}
