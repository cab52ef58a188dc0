// Package analysis contains the pure computation core of the kabu-agent engine:
// technical indicators, fundamental ratios, scoring, signal classification and
// trade plan construction. Nothing in this package touches the database or
// holds state between calls; every function is deterministic in its inputs.
package analysis

import "time"

// SignalType is the buy/sell classification of a scored stock.
type SignalType string

const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
)

// OrderType distinguishes market from limit entries.
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// PriceBar is one daily OHLCV bar. Bars are immutable inputs owned by the
// upstream data store; series are ordered by date ascending.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// IndicatorSnapshot holds every technical indicator for one (stock, date).
// A nil field means the indicator is not yet computable from the available
// history (e.g. SMA200 before 200 bars exist). Nil is never conflated with
// a zero value.
type IndicatorSnapshot struct {
	Date          time.Time `json:"date"`
	SMA5          *float64  `json:"sma_5"`
	SMA25         *float64  `json:"sma_25"`
	SMA75         *float64  `json:"sma_75"`
	SMA200        *float64  `json:"sma_200"`
	EMA12         *float64  `json:"ema_12"`
	EMA26         *float64  `json:"ema_26"`
	RSI14         *float64  `json:"rsi_14"`
	MACDLine      *float64  `json:"macd_line"`
	MACDSignal    *float64  `json:"macd_signal"`
	MACDHistogram *float64  `json:"macd_histogram"`
	BBUpper2      *float64  `json:"bb_upper_2"`
	BBMiddle      *float64  `json:"bb_middle"`
	BBLower2      *float64  `json:"bb_lower_2"`
	VolumeSMA25   *float64  `json:"volume_sma_25"`
}

// FundamentalSnapshot is one disclosure-derived snapshot of valuation ratios.
// Nil fields reflect missing disclosures.
type FundamentalSnapshot struct {
	Date            time.Time `json:"date"`
	PER             *float64  `json:"per"`
	PBR             *float64  `json:"pbr"`
	DividendYield   *float64  `json:"dividend_yield"`
	ROE             *float64  `json:"roe"`
	EPS             *float64  `json:"eps"`
	BPS             *float64  `json:"bps"`
	MarketCap       *int64    `json:"market_cap"`
	Revenue         *int64    `json:"revenue"`
	OperatingIncome *int64    `json:"operating_income"`
}

// SignalReason is one signed scoring contribution. Positive favors buy,
// negative favors sell.
type SignalReason struct {
	Indicator   string  `json:"indicator"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// Signal is the scored classification of one stock on one date.
// Reasons are sorted by absolute score descending.
type Signal struct {
	StockCode        string         `json:"stock_code"`
	StockName        string         `json:"stock_name"`
	Date             time.Time      `json:"date"`
	SignalType       SignalType     `json:"signal_type"`
	Score            float64        `json:"score"`
	TechnicalScore   float64        `json:"technical_score"`
	FundamentalScore float64        `json:"fundamental_score"`
	Reasons          []SignalReason `json:"reasons"`
}

// TakeProfitLevel is one tier of a staged exit: Level is 1-based,
// Pct is the percentage move from entry.
type TakeProfitLevel struct {
	Level int     `json:"level"`
	Price float64 `json:"price"`
	Pct   float64 `json:"pct"`
}

// TradePlan is an executable plan derived from a classified signal.
// Plans are only emitted when the risk/reward ratio meets the configured
// minimum and the position size is at least one lot.
type TradePlan struct {
	StockCode        string            `json:"stock_code"`
	StockName        string            `json:"stock_name"`
	SignalType       SignalType        `json:"signal_type"`
	OrderType        OrderType         `json:"order_type"`
	EntryPrice       float64           `json:"entry_price"`
	TakeProfitLevels []TakeProfitLevel `json:"take_profit_levels"`
	StopLossPrice    float64           `json:"stop_loss_price"`
	StopLossPct      float64           `json:"stop_loss_pct"`
	PositionSize     int               `json:"position_size"`
	RiskRewardRatio  float64           `json:"risk_reward_ratio"`
	Score            float64           `json:"score"`
}
