package analysis

import (
	"testing"
)

func buySignal(score float64) Signal {
	return Signal{
		StockCode:  "7203",
		StockName:  "Toyota",
		SignalType: SignalBuy,
		Score:      score,
	}
}

func sellSignal(score float64) Signal {
	return Signal{
		StockCode:  "9984",
		StockName:  "SoftBank G",
		SignalType: SignalSell,
		Score:      score,
	}
}

func TestBuildPlanHighConvictionBuy(t *testing.T) {
	// No Bollinger history: the stop falls back to the fixed 5% default.
	plan, ok := BuildPlan(buySignal(85), IndicatorSnapshot{}, 1000, DefaultPlannerConfig())
	if !ok {
		t.Fatal("expected a plan to be emitted")
	}

	if plan.OrderType != OrderMarket {
		t.Errorf("score 85 should go out as a market order, got %s", plan.OrderType)
	}
	if plan.EntryPrice != 1000 {
		t.Errorf("expected entry at close 1000, got %v", plan.EntryPrice)
	}
	if plan.StopLossPrice != 950 {
		t.Errorf("expected stop at 950, got %v", plan.StopLossPrice)
	}
	if plan.StopLossPct != 5 {
		t.Errorf("expected stop pct 5, got %v", plan.StopLossPct)
	}

	wantTPs := []float64{1050, 1100, 1150}
	if len(plan.TakeProfitLevels) != 3 {
		t.Fatalf("expected 3 take-profit tiers, got %d", len(plan.TakeProfitLevels))
	}
	for i, want := range wantTPs {
		if plan.TakeProfitLevels[i].Price != want {
			t.Errorf("tier %d: expected %v, got %v", i+1, want, plan.TakeProfitLevels[i].Price)
		}
	}

	if plan.RiskRewardRatio != 1.0 {
		t.Errorf("first tier at 1x risk gives RR=1.0, got %v", plan.RiskRewardRatio)
	}
	// Budget 10000 / 50 risk per share = 200 shares, already a whole lot count.
	if plan.PositionSize != 200 {
		t.Errorf("expected position size 200, got %d", plan.PositionSize)
	}
}

func TestBuildPlanLimitBuyPullbackEntry(t *testing.T) {
	ind := IndicatorSnapshot{SMA25: floatPtr(980)}
	plan, ok := BuildPlan(buySignal(72), ind, 1000, DefaultPlannerConfig())
	if !ok {
		t.Fatal("expected a plan to be emitted")
	}

	if plan.OrderType != OrderLimit {
		t.Errorf("score 72 should go out as a limit order, got %s", plan.OrderType)
	}
	// Pullback entry halfway between close and SMA25.
	if plan.EntryPrice != 990 {
		t.Errorf("expected pullback entry 990, got %v", plan.EntryPrice)
	}
}

func TestBuildPlanLimitBuyWithoutPullbackAnchor(t *testing.T) {
	// SMA25 above the close means no pullback level exists; enter at close.
	ind := IndicatorSnapshot{SMA25: floatPtr(1050)}
	plan, ok := BuildPlan(buySignal(72), ind, 1000, DefaultPlannerConfig())
	if !ok {
		t.Fatal("expected a plan to be emitted")
	}
	if plan.EntryPrice != 1000 {
		t.Errorf("expected entry at close, got %v", plan.EntryPrice)
	}
}

func TestBuildPlanSellIsMarketWithInvertedLevels(t *testing.T) {
	plan, ok := BuildPlan(sellSignal(20), IndicatorSnapshot{}, 1000, DefaultPlannerConfig())
	if !ok {
		t.Fatal("expected a plan to be emitted")
	}

	if plan.OrderType != OrderMarket {
		t.Errorf("sells always go out as market orders, got %s", plan.OrderType)
	}
	if plan.StopLossPrice != 1050 {
		t.Errorf("sell stop sits above entry: expected 1050, got %v", plan.StopLossPrice)
	}
	wantTPs := []float64{950, 900, 850}
	for i, want := range wantTPs {
		if plan.TakeProfitLevels[i].Price != want {
			t.Errorf("tier %d: expected %v, got %v", i+1, want, plan.TakeProfitLevels[i].Price)
		}
	}
	if plan.TakeProfitLevels[0].Pct != -5 {
		t.Errorf("expected first tier pct -5, got %v", plan.TakeProfitLevels[0].Pct)
	}
}

func TestBuildPlanVolatilityStop(t *testing.T) {
	tests := []struct {
		name    string
		upper   float64
		lower   float64
		wantPct float64
	}{
		{"band width inside bounds", 1060, 940, 6},
		{"wide bands clamp at 8%", 1150, 850, 8},
		{"narrow bands clamp at 2%", 1005, 995, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ind := IndicatorSnapshot{
				BBUpper2: floatPtr(tt.upper),
				BBMiddle: floatPtr(1000),
				BBLower2: floatPtr(tt.lower),
			}
			plan, ok := BuildPlan(buySignal(85), ind, 1000, DefaultPlannerConfig())
			if !ok {
				t.Fatal("expected a plan to be emitted")
			}
			if plan.StopLossPct != tt.wantPct {
				t.Errorf("expected stop pct %v, got %v", tt.wantPct, plan.StopLossPct)
			}
		})
	}
}

func TestBuildPlanDiscardsLowRiskReward(t *testing.T) {
	cfg := DefaultPlannerConfig()
	cfg.MinRiskReward = 1.5

	// First tier at 1x the stop distance yields RR=1.0 < 1.5.
	if _, ok := BuildPlan(buySignal(85), IndicatorSnapshot{}, 1000, cfg); ok {
		t.Error("expected plan discarded when RR below the configured minimum")
	}

	// Widening the first tier to 2x risk restores the plan.
	cfg.TakeProfitRiskMult = [3]float64{2, 3, 4}
	plan, ok := BuildPlan(buySignal(85), IndicatorSnapshot{}, 1000, cfg)
	if !ok {
		t.Fatal("expected a plan with a 2x first tier")
	}
	if plan.RiskRewardRatio != 2 {
		t.Errorf("expected RR=2, got %v", plan.RiskRewardRatio)
	}
}

func TestBuildPlanDiscardsSubLotPosition(t *testing.T) {
	cfg := DefaultPlannerConfig()
	cfg.Capital = 100_000 // budget 1000 / 50 risk = 20 shares, below one lot

	if _, ok := BuildPlan(buySignal(85), IndicatorSnapshot{}, 1000, cfg); ok {
		t.Error("expected plan discarded when capital cannot fund one lot")
	}
}

func TestBuildPlanRejectsNonPositiveClose(t *testing.T) {
	if _, ok := BuildPlan(buySignal(85), IndicatorSnapshot{}, 0, DefaultPlannerConfig()); ok {
		t.Error("expected no plan for a zero close")
	}
}

func TestBuildPlanPositionSizeFloorsToLots(t *testing.T) {
	cfg := DefaultPlannerConfig()
	cfg.Capital = 1_250_000 // budget 12500 / 50 = 250 shares -> 200 after lot floor

	plan, ok := BuildPlan(buySignal(85), IndicatorSnapshot{}, 1000, cfg)
	if !ok {
		t.Fatal("expected a plan to be emitted")
	}
	if plan.PositionSize != 200 {
		t.Errorf("expected 250 shares floored to 200 (lot size 100), got %d", plan.PositionSize)
	}

	// Loss at the stop never exceeds the risk budget.
	loss := float64(plan.PositionSize) * (plan.EntryPrice - plan.StopLossPrice)
	if loss > cfg.Capital*cfg.RiskPerTradePct {
		t.Errorf("stop-loss hit loses %v, above the %v budget", loss, cfg.Capital*cfg.RiskPerTradePct)
	}
}

func TestPlannerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PlannerConfig)
		wantErr bool
	}{
		{"defaults are valid", func(c *PlannerConfig) {}, false},
		{"zero capital", func(c *PlannerConfig) { c.Capital = 0 }, true},
		{"risk pct above 1", func(c *PlannerConfig) { c.RiskPerTradePct = 1.5 }, true},
		{"stop pct at 1", func(c *PlannerConfig) { c.DefaultStopLossPct = 1 }, true},
		{"zero min RR", func(c *PlannerConfig) { c.MinRiskReward = 0 }, true},
		{"zero lot size", func(c *PlannerConfig) { c.LotSize = 0 }, true},
		{"non-increasing tiers", func(c *PlannerConfig) { c.TakeProfitRiskMult = [3]float64{1, 1, 2} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPlannerConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
