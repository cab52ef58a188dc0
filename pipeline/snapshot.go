package pipeline

import (
	"fmt"
	"sort"
	"time"

	"kabu-agent/analysis"
)

// OrderRecommendation projects a trade plan into an actionable order. The
// JSON field names are the wire contract consumed by the client shell.
type OrderRecommendation struct {
	StockCode       string                  `json:"stock_code"`
	StockName       string                  `json:"stock_name"`
	Action          analysis.SignalType     `json:"action"`
	OrderType       analysis.OrderType      `json:"order_type"`
	Price           float64                 `json:"price"`
	Quantity        int                     `json:"quantity"`
	Score           float64                 `json:"score"`
	Reasons         []analysis.SignalReason `json:"reasons"`
	TakeProfit1     *float64                `json:"take_profit_1"`
	TakeProfit2     *float64                `json:"take_profit_2"`
	TakeProfit3     *float64                `json:"take_profit_3"`
	StopLoss        *float64                `json:"stop_loss"`
	RiskRewardRatio *float64                `json:"risk_reward_ratio"`
}

// Snapshot is one day's completed recommendation set. Snapshots are
// immutable once built; readers always see either the previous completed
// snapshot or, after a successful run, the new one, never a mix.
type Snapshot struct {
	Date                time.Time             `json:"date"`
	GeneratedAt         time.Time             `json:"generated_at"`
	Signals             []analysis.Signal     `json:"signals"`
	Plans               []*analysis.TradePlan `json:"plans"`
	BuyRecommendations  []OrderRecommendation `json:"buy_recommendations"`
	SellRecommendations []OrderRecommendation `json:"sell_recommendations"`
	Summary             string                `json:"summary"`

	// Indicators holds the latest computed snapshot per processed stock.
	// Internal to the engine (persisted for screening), not part of the
	// wire contract.
	Indicators map[string]analysis.IndicatorSnapshot `json:"-"`
}

// BuildSnapshot aggregates the per-stock results of a completed run.
// Recommendation lists carry only signals that produced an emitted plan,
// sorted by score descending.
func BuildSnapshot(date time.Time, signals []analysis.Signal, plans []*analysis.TradePlan) *Snapshot {
	snap := &Snapshot{
		Date:        date,
		GeneratedAt: time.Now().UTC(),
		Signals:     signals,
		Plans:       plans,
	}

	sort.Slice(snap.Signals, func(i, j int) bool {
		return snap.Signals[i].Score > snap.Signals[j].Score
	})

	signalByCode := make(map[string]analysis.Signal, len(signals))
	for _, s := range signals {
		signalByCode[s.StockCode] = s
	}

	for _, plan := range plans {
		rec := buildRecommendation(plan, signalByCode[plan.StockCode])
		if plan.SignalType == analysis.SignalBuy {
			snap.BuyRecommendations = append(snap.BuyRecommendations, rec)
		} else {
			snap.SellRecommendations = append(snap.SellRecommendations, rec)
		}
	}

	sort.Slice(snap.BuyRecommendations, func(i, j int) bool {
		return snap.BuyRecommendations[i].Score > snap.BuyRecommendations[j].Score
	})
	sort.Slice(snap.SellRecommendations, func(i, j int) bool {
		return snap.SellRecommendations[i].Score > snap.SellRecommendations[j].Score
	})

	snap.Summary = buildSummary(snap.BuyRecommendations, snap.SellRecommendations)
	return snap
}

func buildRecommendation(plan *analysis.TradePlan, sig analysis.Signal) OrderRecommendation {
	rec := OrderRecommendation{
		StockCode:       plan.StockCode,
		StockName:       plan.StockName,
		Action:          plan.SignalType,
		OrderType:       plan.OrderType,
		Price:           plan.EntryPrice,
		Quantity:        plan.PositionSize,
		Score:           plan.Score,
		Reasons:         sig.Reasons,
		StopLoss:        ptr(plan.StopLossPrice),
		RiskRewardRatio: ptr(plan.RiskRewardRatio),
	}
	tiers := []**float64{&rec.TakeProfit1, &rec.TakeProfit2, &rec.TakeProfit3}
	for i, level := range plan.TakeProfitLevels {
		if i >= len(tiers) {
			break
		}
		*tiers[i] = ptr(level.Price)
	}
	return rec
}

// buildSummary writes the one-line human summary shown on the dashboard.
func buildSummary(buys, sells []OrderRecommendation) string {
	if len(buys) == 0 && len(sells) == 0 {
		return "No clear signals detected today."
	}

	var parts []string
	if len(buys) > 0 {
		top := buys[0]
		parts = append(parts, fmt.Sprintf("%d buy candidate(s), top score %s (%.1f pts)",
			len(buys), top.StockName, top.Score))
	}
	if len(sells) > 0 {
		parts = append(parts, fmt.Sprintf("%d sell candidate(s)", len(sells)))
	}

	out := parts[0]
	for _, p := range parts[1:] {
		out += "; " + p
	}
	return out + "."
}

func ptr(v float64) *float64 {
	return &v
}
