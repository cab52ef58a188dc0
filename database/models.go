package database

import "time"

// Stock is one listed equity of the trading universe.
type Stock struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string    `gorm:"size:10;uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Sector    string    `gorm:"size:50" json:"sector"`
	Market    string    `gorm:"size:20" json:"market"`
	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Stock
func (Stock) TableName() string {
	return "stocks"
}

// StockPrice is one immutable daily OHLCV bar, owned by the upstream data
// collection jobs. Dates are strictly increasing per stock.
type StockPrice struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StockCode string    `gorm:"size:10;index:idx_prices_code_date,unique;not null" json:"stock_code"`
	Date      time.Time `gorm:"index:idx_prices_code_date,unique;not null" json:"date"`
	Open      float64   `gorm:"type:decimal(15,2);not null" json:"open"`
	High      float64   `gorm:"type:decimal(15,2);not null" json:"high"`
	Low       float64   `gorm:"type:decimal(15,2);not null" json:"low"`
	Close     float64   `gorm:"type:decimal(15,2);not null" json:"close"`
	Volume    int64     `gorm:"not null" json:"volume"`
}

// TableName specifies the table name for StockPrice
func (StockPrice) TableName() string {
	return "stock_prices"
}

// FundamentalData is one externally sourced disclosure snapshot. Nil
// columns reflect missing disclosures.
type FundamentalData struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StockCode       string    `gorm:"size:10;index:idx_fund_code_date,unique;not null" json:"stock_code"`
	Date            time.Time `gorm:"index:idx_fund_code_date,unique;not null" json:"date"`
	PER             *float64  `gorm:"type:decimal(10,2)" json:"per"`
	PBR             *float64  `gorm:"type:decimal(10,2)" json:"pbr"`
	DividendYield   *float64  `gorm:"type:decimal(6,2)" json:"dividend_yield"`
	ROE             *float64  `gorm:"type:decimal(6,2)" json:"roe"`
	EPS             *float64  `gorm:"type:decimal(10,2)" json:"eps"`
	BPS             *float64  `gorm:"type:decimal(10,2)" json:"bps"`
	MarketCap       *int64    `json:"market_cap"`
	Revenue         *int64    `json:"revenue"`
	OperatingIncome *int64    `json:"operating_income"`
}

// TableName specifies the table name for FundamentalData
func (FundamentalData) TableName() string {
	return "fundamental_data"
}

// IndicatorRecord persists the latest computed indicator snapshot per
// stock so screening can filter on indicator levels without recomputing.
type IndicatorRecord struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StockCode     string    `gorm:"size:10;index:idx_ind_code_date,unique;not null" json:"stock_code"`
	Date          time.Time `gorm:"index:idx_ind_code_date,unique;not null" json:"date"`
	SMA5          *float64  `gorm:"type:decimal(15,2)" json:"sma_5"`
	SMA25         *float64  `gorm:"type:decimal(15,2)" json:"sma_25"`
	SMA75         *float64  `gorm:"type:decimal(15,2)" json:"sma_75"`
	SMA200        *float64  `gorm:"type:decimal(15,2)" json:"sma_200"`
	EMA12         *float64  `gorm:"type:decimal(15,2)" json:"ema_12"`
	EMA26         *float64  `gorm:"type:decimal(15,2)" json:"ema_26"`
	RSI14         *float64  `gorm:"type:decimal(6,2)" json:"rsi_14"`
	MACDLine      *float64  `gorm:"type:decimal(15,4)" json:"macd_line"`
	MACDSignal    *float64  `gorm:"type:decimal(15,4)" json:"macd_signal"`
	MACDHistogram *float64  `gorm:"type:decimal(15,4)" json:"macd_histogram"`
	BBUpper2      *float64  `gorm:"type:decimal(15,2)" json:"bb_upper_2"`
	BBMiddle      *float64  `gorm:"type:decimal(15,2)" json:"bb_middle"`
	BBLower2      *float64  `gorm:"type:decimal(15,2)" json:"bb_lower_2"`
	VolumeSMA25   *float64  `gorm:"type:decimal(20,2)" json:"volume_sma_25"`
}

// TableName specifies the table name for IndicatorRecord
func (IndicatorRecord) TableName() string {
	return "indicator_records"
}

// SignalRecord is one persisted buy/sell signal from a completed run.
// Reasons are stored as serialized JSON.
type SignalRecord struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RunDate          time.Time `gorm:"index;not null" json:"run_date"`
	StockCode        string    `gorm:"size:10;index;not null" json:"stock_code"`
	StockName        string    `gorm:"size:100" json:"stock_name"`
	SignalType       string    `gorm:"size:10;index;not null" json:"signal_type"` // buy, sell
	Score            float64   `gorm:"type:decimal(6,2);not null" json:"score"`
	TechnicalScore   float64   `gorm:"type:decimal(6,2)" json:"technical_score"`
	FundamentalScore float64   `gorm:"type:decimal(6,2)" json:"fundamental_score"`
	Reasons          string    `gorm:"type:jsonb" json:"reasons"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for SignalRecord
func (SignalRecord) TableName() string {
	return "signal_records"
}

// TradePlanRecord is one persisted trade plan from a completed run.
type TradePlanRecord struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RunDate         time.Time `gorm:"index;not null" json:"run_date"`
	StockCode       string    `gorm:"size:10;index;not null" json:"stock_code"`
	StockName       string    `gorm:"size:100" json:"stock_name"`
	PlanType        string    `gorm:"size:10;not null" json:"plan_type"`  // buy, sell
	OrderType       string    `gorm:"size:10;not null" json:"order_type"` // market, limit
	EntryPrice      float64   `gorm:"type:decimal(15,2);not null" json:"entry_price"`
	TakeProfit1     float64   `gorm:"type:decimal(15,2)" json:"take_profit_1"`
	TakeProfit2     float64   `gorm:"type:decimal(15,2)" json:"take_profit_2"`
	TakeProfit3     float64   `gorm:"type:decimal(15,2)" json:"take_profit_3"`
	StopLossPrice   float64   `gorm:"type:decimal(15,2);not null" json:"stop_loss_price"`
	StopLossPct     float64   `gorm:"type:decimal(6,2);not null" json:"stop_loss_pct"`
	PositionSize    int       `gorm:"not null" json:"position_size"`
	RiskRewardRatio float64   `gorm:"type:decimal(6,2);not null" json:"risk_reward_ratio"`
	Score           float64   `gorm:"type:decimal(6,2)" json:"score"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName specifies the table name for TradePlanRecord
func (TradePlanRecord) TableName() string {
	return "trade_plan_records"
}
