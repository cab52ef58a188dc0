package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kabu-agent/analysis"
	"kabu-agent/pipeline"
)

// StockRepository handles database operations for the engine: it is the
// pipeline's read-only MarketData source and the Recorder that persists
// completed run results.
type StockRepository struct {
	db *Database
}

// NewStockRepository creates a new stock repository
func NewStockRepository(db *Database) *StockRepository {
	return &StockRepository{db: db}
}

// InitSchema performs auto-migration of all engine tables.
func (r *StockRepository) InitSchema() error {
	log.Println("🔄 Starting database schema initialization...")

	err := r.db.db.AutoMigrate(
		&Stock{},
		&StockPrice{},
		&FundamentalData{},
		&IndicatorRecord{},
		&SignalRecord{},
		&TradePlanRecord{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	log.Println("✅ Database schema ready")
	return nil
}

// Universe returns the active stock universe.
func (r *StockRepository) Universe(ctx context.Context) ([]pipeline.StockInfo, error) {
	var stocks []Stock
	if err := r.db.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("code asc").
		Find(&stocks).Error; err != nil {
		return nil, fmt.Errorf("%w: loading universe: %v", pipeline.ErrDataUnavailable, err)
	}

	infos := make([]pipeline.StockInfo, len(stocks))
	for i, s := range stocks {
		infos[i] = pipeline.StockInfo{Code: s.Code, Name: s.Name, Market: s.Market, Sector: s.Sector}
	}
	return infos, nil
}

// PriceHistory returns the full ordered bar series for one stock.
func (r *StockRepository) PriceHistory(ctx context.Context, code string) ([]analysis.PriceBar, error) {
	var prices []StockPrice
	if err := r.db.db.WithContext(ctx).
		Where("stock_code = ?", code).
		Order("date asc").
		Find(&prices).Error; err != nil {
		return nil, fmt.Errorf("%w: prices for %s: %v", pipeline.ErrDataUnavailable, code, err)
	}

	bars := make([]analysis.PriceBar, len(prices))
	for i, p := range prices {
		bars[i] = analysis.PriceBar{
			Date:   p.Date,
			Open:   p.Open,
			High:   p.High,
			Low:    p.Low,
			Close:  p.Close,
			Volume: p.Volume,
		}
	}
	return bars, nil
}

// LatestFundamental returns the most recent fundamental snapshot for one
// stock, or nil when none has been disclosed yet.
func (r *StockRepository) LatestFundamental(ctx context.Context, code string) (*analysis.FundamentalSnapshot, error) {
	var fund FundamentalData
	err := r.db.db.WithContext(ctx).
		Where("stock_code = ?", code).
		Order("date desc").
		First(&fund).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fundamentals for %s: %v", pipeline.ErrDataUnavailable, code, err)
	}

	return &analysis.FundamentalSnapshot{
		Date:            fund.Date,
		PER:             fund.PER,
		PBR:             fund.PBR,
		DividendYield:   fund.DividendYield,
		ROE:             fund.ROE,
		EPS:             fund.EPS,
		BPS:             fund.BPS,
		MarketCap:       fund.MarketCap,
		Revenue:         fund.Revenue,
		OperatingIncome: fund.OperatingIncome,
	}, nil
}

// SaveRun persists a completed snapshot in one transaction: same-day
// signals and plans are replaced, indicator records upserted. Called only
// at the pipeline's commit point, so a failed run never touches prior
// results.
func (r *StockRepository) SaveRun(ctx context.Context, snap *pipeline.Snapshot) error {
	return r.db.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_date = ?", snap.Date).Delete(&SignalRecord{}).Error; err != nil {
			return fmt.Errorf("clearing signals for %s: %w", snap.Date.Format("2006-01-02"), err)
		}
		if err := tx.Where("run_date = ?", snap.Date).Delete(&TradePlanRecord{}).Error; err != nil {
			return fmt.Errorf("clearing plans for %s: %w", snap.Date.Format("2006-01-02"), err)
		}

		for _, sig := range snap.Signals {
			reasons, err := json.Marshal(sig.Reasons)
			if err != nil {
				return fmt.Errorf("encoding reasons for %s: %w", sig.StockCode, err)
			}
			rec := SignalRecord{
				RunDate:          snap.Date,
				StockCode:        sig.StockCode,
				StockName:        sig.StockName,
				SignalType:       string(sig.SignalType),
				Score:            sig.Score,
				TechnicalScore:   sig.TechnicalScore,
				FundamentalScore: sig.FundamentalScore,
				Reasons:          string(reasons),
			}
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("saving signal for %s: %w", sig.StockCode, err)
			}
		}

		for _, plan := range snap.Plans {
			rec := TradePlanRecord{
				RunDate:         snap.Date,
				StockCode:       plan.StockCode,
				StockName:       plan.StockName,
				PlanType:        string(plan.SignalType),
				OrderType:       string(plan.OrderType),
				EntryPrice:      plan.EntryPrice,
				StopLossPrice:   plan.StopLossPrice,
				StopLossPct:     plan.StopLossPct,
				PositionSize:    plan.PositionSize,
				RiskRewardRatio: plan.RiskRewardRatio,
				Score:           plan.Score,
			}
			tiers := []*float64{&rec.TakeProfit1, &rec.TakeProfit2, &rec.TakeProfit3}
			for i, level := range plan.TakeProfitLevels {
				if i >= len(tiers) {
					break
				}
				*tiers[i] = level.Price
			}
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("saving plan for %s: %w", plan.StockCode, err)
			}
		}

		for code, ind := range snap.Indicators {
			rec := IndicatorRecord{
				StockCode:     code,
				Date:          ind.Date,
				SMA5:          ind.SMA5,
				SMA25:         ind.SMA25,
				SMA75:         ind.SMA75,
				SMA200:        ind.SMA200,
				EMA12:         ind.EMA12,
				EMA26:         ind.EMA26,
				RSI14:         ind.RSI14,
				MACDLine:      ind.MACDLine,
				MACDSignal:    ind.MACDSignal,
				MACDHistogram: ind.MACDHistogram,
				BBUpper2:      ind.BBUpper2,
				BBMiddle:      ind.BBMiddle,
				BBLower2:      ind.BBLower2,
				VolumeSMA25:   ind.VolumeSMA25,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "stock_code"}, {Name: "date"}},
				UpdateAll: true,
			}).Create(&rec).Error
			if err != nil {
				return fmt.Errorf("saving indicators for %s: %w", code, err)
			}
		}

		return nil
	})
}

// SignalsByType returns the persisted signals of the most recent run for
// one signal type, score descending.
func (r *StockRepository) SignalsByType(ctx context.Context, signalType analysis.SignalType) ([]analysis.Signal, error) {
	var records []SignalRecord
	err := r.db.db.WithContext(ctx).
		Where("signal_type = ? AND run_date = (?)",
			string(signalType),
			r.db.db.Model(&SignalRecord{}).Select("MAX(run_date)"),
		).
		Order("score desc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("loading %s signals: %w", signalType, err)
	}

	signals := make([]analysis.Signal, len(records))
	for i, rec := range records {
		signals[i] = recordToSignal(rec)
	}
	return signals, nil
}

// LatestPlan returns the most recent persisted trade plan for one stock,
// or nil when the stock has no plan.
func (r *StockRepository) LatestPlan(ctx context.Context, code string) (*analysis.TradePlan, error) {
	var rec TradePlanRecord
	err := r.db.db.WithContext(ctx).
		Where("stock_code = ?", code).
		Order("run_date desc").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading plan for %s: %w", code, err)
	}

	plan := &analysis.TradePlan{
		StockCode:       rec.StockCode,
		StockName:       rec.StockName,
		SignalType:      analysis.SignalType(rec.PlanType),
		OrderType:       analysis.OrderType(rec.OrderType),
		EntryPrice:      rec.EntryPrice,
		StopLossPrice:   rec.StopLossPrice,
		StopLossPct:     rec.StopLossPct,
		PositionSize:    rec.PositionSize,
		RiskRewardRatio: rec.RiskRewardRatio,
		Score:           rec.Score,
	}
	for i, price := range []float64{rec.TakeProfit1, rec.TakeProfit2, rec.TakeProfit3} {
		if price == 0 {
			continue
		}
		pct := 0.0
		if rec.EntryPrice > 0 {
			pct = (price - rec.EntryPrice) / rec.EntryPrice * 100
		}
		plan.TakeProfitLevels = append(plan.TakeProfitLevels, analysis.TakeProfitLevel{
			Level: i + 1,
			Price: price,
			Pct:   pct,
		})
	}
	return plan, nil
}

// ListStocks returns one page of the stock universe with the total count.
func (r *StockRepository) ListStocks(ctx context.Context, page, perPage int) ([]Stock, int64, error) {
	var total int64
	if err := r.db.db.WithContext(ctx).Model(&Stock{}).
		Where("is_active = ?", true).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting stocks: %w", err)
	}

	var stocks []Stock
	err := r.db.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("code asc").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&stocks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing stocks: %w", err)
	}
	return stocks, total, nil
}

// LatestIndicators returns the most recent persisted indicator record for
// one stock, or nil when the pipeline has not processed it yet.
func (r *StockRepository) LatestIndicators(ctx context.Context, code string) (*IndicatorRecord, error) {
	var rec IndicatorRecord
	err := r.db.db.WithContext(ctx).
		Where("stock_code = ?", code).
		Order("date desc").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading indicators for %s: %w", code, err)
	}
	return &rec, nil
}

func recordToSignal(rec SignalRecord) analysis.Signal {
	sig := analysis.Signal{
		StockCode:        rec.StockCode,
		StockName:        rec.StockName,
		Date:             rec.RunDate,
		SignalType:       analysis.SignalType(rec.SignalType),
		Score:            rec.Score,
		TechnicalScore:   rec.TechnicalScore,
		FundamentalScore: rec.FundamentalScore,
	}
	if rec.Reasons != "" {
		// Reasons were serialized by SaveRun; a decode failure leaves
		// them empty rather than failing the read path.
		_ = json.Unmarshal([]byte(rec.Reasons), &sig.Reasons)
	}
	return sig
}

var _ pipeline.MarketData = (*StockRepository)(nil)
var _ pipeline.Recorder = (*StockRepository)(nil)
