package pipeline

import (
	"strings"
	"testing"
	"time"

	"kabu-agent/analysis"
)

func testSignal(code, name string, sigType analysis.SignalType, score float64) analysis.Signal {
	return analysis.Signal{
		StockCode:  code,
		StockName:  name,
		SignalType: sigType,
		Score:      score,
		Reasons: []analysis.SignalReason{
			{Indicator: "RSI", Description: "test reason", Score: 15},
		},
	}
}

func testPlan(code, name string, sigType analysis.SignalType, score float64) *analysis.TradePlan {
	return &analysis.TradePlan{
		StockCode:  code,
		StockName:  name,
		SignalType: sigType,
		OrderType:  analysis.OrderMarket,
		EntryPrice: 1000,
		TakeProfitLevels: []analysis.TakeProfitLevel{
			{Level: 1, Price: 1050, Pct: 5},
			{Level: 2, Price: 1100, Pct: 10},
			{Level: 3, Price: 1150, Pct: 15},
		},
		StopLossPrice:   950,
		StopLossPct:     5,
		PositionSize:    200,
		RiskRewardRatio: 1,
		Score:           score,
	}
}

func TestBuildSnapshotSortsByScore(t *testing.T) {
	signals := []analysis.Signal{
		testSignal("7203", "Toyota", analysis.SignalBuy, 72),
		testSignal("6758", "Sony", analysis.SignalBuy, 88),
		testSignal("9984", "SoftBank G", analysis.SignalSell, 20),
		testSignal("8306", "MUFG", analysis.SignalBuy, 75),
	}
	plans := []*analysis.TradePlan{
		testPlan("7203", "Toyota", analysis.SignalBuy, 72),
		testPlan("6758", "Sony", analysis.SignalBuy, 88),
		testPlan("9984", "SoftBank G", analysis.SignalSell, 20),
		testPlan("8306", "MUFG", analysis.SignalBuy, 75),
	}

	snap := BuildSnapshot(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), signals, plans)

	wantOrder := []string{"6758", "8306", "7203"}
	if len(snap.BuyRecommendations) != 3 {
		t.Fatalf("expected 3 buy recommendations, got %d", len(snap.BuyRecommendations))
	}
	for i, want := range wantOrder {
		if snap.BuyRecommendations[i].StockCode != want {
			t.Errorf("buy position %d: expected %s, got %s", i, want, snap.BuyRecommendations[i].StockCode)
		}
	}
	if len(snap.SellRecommendations) != 1 || snap.SellRecommendations[0].StockCode != "9984" {
		t.Errorf("expected one sell recommendation for 9984, got %+v", snap.SellRecommendations)
	}

	// Signals themselves are sorted too.
	for i := 1; i < len(snap.Signals); i++ {
		if snap.Signals[i-1].Score < snap.Signals[i].Score {
			t.Error("signals not sorted by score descending")
			break
		}
	}
}

func TestBuildSnapshotOnlyPlannedSignalsBecomeRecommendations(t *testing.T) {
	// 7203 produced a signal but its plan was discarded (e.g. sub-lot size).
	signals := []analysis.Signal{
		testSignal("7203", "Toyota", analysis.SignalBuy, 72),
		testSignal("6758", "Sony", analysis.SignalBuy, 88),
	}
	plans := []*analysis.TradePlan{
		testPlan("6758", "Sony", analysis.SignalBuy, 88),
	}

	snap := BuildSnapshot(time.Now().UTC(), signals, plans)

	if len(snap.Signals) != 2 {
		t.Errorf("both signals stay in the snapshot, got %d", len(snap.Signals))
	}
	if len(snap.BuyRecommendations) != 1 {
		t.Fatalf("only the planned signal becomes a recommendation, got %d", len(snap.BuyRecommendations))
	}

	rec := snap.BuyRecommendations[0]
	if rec.StockCode != "6758" || rec.Quantity != 200 || rec.Price != 1000 {
		t.Errorf("unexpected recommendation: %+v", rec)
	}
	if rec.TakeProfit1 == nil || *rec.TakeProfit1 != 1050 {
		t.Errorf("expected take_profit_1=1050, got %v", rec.TakeProfit1)
	}
	if rec.StopLoss == nil || *rec.StopLoss != 950 {
		t.Errorf("expected stop_loss=950, got %v", rec.StopLoss)
	}
	if len(rec.Reasons) != 1 {
		t.Errorf("recommendation carries the signal's reasons, got %+v", rec.Reasons)
	}
}

func TestBuildSnapshotSummary(t *testing.T) {
	t.Run("no signals", func(t *testing.T) {
		snap := BuildSnapshot(time.Now().UTC(), nil, nil)
		if snap.Summary != "No clear signals detected today." {
			t.Errorf("unexpected summary: %q", snap.Summary)
		}
	})

	t.Run("buys and sells", func(t *testing.T) {
		signals := []analysis.Signal{
			testSignal("6758", "Sony", analysis.SignalBuy, 88),
			testSignal("9984", "SoftBank G", analysis.SignalSell, 20),
		}
		plans := []*analysis.TradePlan{
			testPlan("6758", "Sony", analysis.SignalBuy, 88),
			testPlan("9984", "SoftBank G", analysis.SignalSell, 20),
		}
		snap := BuildSnapshot(time.Now().UTC(), signals, plans)

		if !strings.Contains(snap.Summary, "1 buy candidate(s)") {
			t.Errorf("summary missing buy count: %q", snap.Summary)
		}
		if !strings.Contains(snap.Summary, "Sony") {
			t.Errorf("summary missing top buy name: %q", snap.Summary)
		}
		if !strings.Contains(snap.Summary, "1 sell candidate(s)") {
			t.Errorf("summary missing sell count: %q", snap.Summary)
		}
	})
}
