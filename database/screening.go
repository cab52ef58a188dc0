package database

import (
	"context"
	"fmt"
	"strings"
)

// ScreeningCriteria filters the stock universe on the latest price,
// fundamental, indicator and signal values. Nil bounds impose no filter.
type ScreeningCriteria struct {
	Market           string   `json:"market,omitempty"`
	PERMin           *float64 `json:"per_min,omitempty"`
	PERMax           *float64 `json:"per_max,omitempty"`
	PBRMin           *float64 `json:"pbr_min,omitempty"`
	PBRMax           *float64 `json:"pbr_max,omitempty"`
	DividendYieldMin *float64 `json:"dividend_yield_min,omitempty"`
	RSIMin           *float64 `json:"rsi_min,omitempty"`
	RSIMax           *float64 `json:"rsi_max,omitempty"`
	MinVolume        *int64   `json:"min_volume,omitempty"`
	MinScore         *float64 `json:"min_score,omitempty"`
	SortBy           string   `json:"sort_by,omitempty"`
	SortOrder        string   `json:"sort_order,omitempty"`
	Page             int      `json:"page,omitempty"`
	PerPage          int      `json:"per_page,omitempty"`
}

// ScreenedStock is one screening result row.
type ScreenedStock struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Market        string   `json:"market"`
	Sector        string   `json:"sector"`
	Close         float64  `json:"close"`
	Volume        int64    `json:"volume"`
	PER           *float64 `json:"per"`
	PBR           *float64 `json:"pbr"`
	DividendYield *float64 `json:"dividend_yield"`
	ROE           *float64 `json:"roe"`
	RSI14         *float64 `json:"rsi_14"`
	Score         *float64 `json:"score"`
}

// Sortable columns exposed to the screening API. Anything else falls back
// to score.
var screeningSortColumns = map[string]string{
	"score":          "score",
	"per":            "per",
	"pbr":            "pbr",
	"dividend_yield": "dividend_yield",
	"rsi":            "rsi_14",
	"close":          "close",
	"volume":         "volume",
	"code":           "code",
}

// Screen runs the screening query: each active stock joined with its
// latest price, fundamental, indicator and signal rows, filtered and
// sorted per the criteria. Returns one page plus the total match count.
func (r *StockRepository) Screen(ctx context.Context, criteria ScreeningCriteria) ([]ScreenedStock, int64, error) {
	where, args := buildScreeningFilters(criteria)

	base := `
		FROM stocks s
		JOIN LATERAL (
			SELECT close, volume FROM stock_prices
			WHERE stock_code = s.code ORDER BY date DESC LIMIT 1
		) p ON true
		LEFT JOIN LATERAL (
			SELECT per, pbr, dividend_yield, roe FROM fundamental_data
			WHERE stock_code = s.code ORDER BY date DESC LIMIT 1
		) f ON true
		LEFT JOIN LATERAL (
			SELECT rsi_14 FROM indicator_records
			WHERE stock_code = s.code ORDER BY date DESC LIMIT 1
		) i ON true
		LEFT JOIN LATERAL (
			SELECT score FROM signal_records
			WHERE stock_code = s.code ORDER BY run_date DESC LIMIT 1
		) sig ON true
		WHERE s.is_active = true` + where

	var total int64
	if err := r.db.db.WithContext(ctx).
		Raw("SELECT COUNT(*) "+base, args...).
		Scan(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("screening count: %w", err)
	}

	page, perPage := criteria.Page, criteria.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := `SELECT s.code, s.name, s.market, s.sector,
		p.close, p.volume,
		f.per, f.pbr, f.dividend_yield, f.roe,
		i.rsi_14, sig.score ` + base +
		" ORDER BY " + screeningOrder(criteria) +
		fmt.Sprintf(" LIMIT %d OFFSET %d", perPage, (page-1)*perPage)

	var rows []ScreenedStock
	if err := r.db.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("screening query: %w", err)
	}
	return rows, total, nil
}

func buildScreeningFilters(c ScreeningCriteria) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	add := func(clause string, value interface{}) {
		clauses = append(clauses, clause)
		args = append(args, value)
	}

	if c.Market != "" {
		add("s.market = ?", c.Market)
	}
	if c.PERMin != nil {
		add("f.per >= ?", *c.PERMin)
	}
	if c.PERMax != nil {
		add("f.per <= ?", *c.PERMax)
	}
	if c.PBRMin != nil {
		add("f.pbr >= ?", *c.PBRMin)
	}
	if c.PBRMax != nil {
		add("f.pbr <= ?", *c.PBRMax)
	}
	if c.DividendYieldMin != nil {
		add("f.dividend_yield >= ?", *c.DividendYieldMin)
	}
	if c.RSIMin != nil {
		add("i.rsi_14 >= ?", *c.RSIMin)
	}
	if c.RSIMax != nil {
		add("i.rsi_14 <= ?", *c.RSIMax)
	}
	if c.MinVolume != nil {
		add("p.volume >= ?", *c.MinVolume)
	}
	if c.MinScore != nil {
		add("sig.score >= ?", *c.MinScore)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

func screeningOrder(c ScreeningCriteria) string {
	column, ok := screeningSortColumns[c.SortBy]
	if !ok {
		column = "score"
	}
	direction := "DESC"
	if strings.EqualFold(c.SortOrder, "asc") {
		direction = "ASC"
	}
	// NULLS LAST keeps stocks without signals/fundamentals out of the top
	// of the list regardless of direction.
	return fmt.Sprintf("%s %s NULLS LAST, code ASC", column, direction)
}
