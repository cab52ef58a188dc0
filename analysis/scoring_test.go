package analysis

import (
	"math"
	"testing"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestScoreNeutralWhenNothingComputable(t *testing.T) {
	res := Score(IndicatorSnapshot{}, nil, PriceContext{Close: 1000, Volume: 1000}, DefaultScoringConfig())

	if res.Score != 50 || res.TechnicalScore != 50 || res.FundamentalScore != 50 {
		t.Errorf("expected all-neutral 50, got combined=%v tech=%v fund=%v",
			res.Score, res.TechnicalScore, res.FundamentalScore)
	}
	if len(res.Reasons) != 0 {
		t.Errorf("expected no reasons, got %d", len(res.Reasons))
	}
}

func TestScoreRSIBands(t *testing.T) {
	tests := []struct {
		name   string
		rsi    float64
		points float64
	}{
		{"oversold", 25, 15},
		{"mildly oversold", 35, 7.5},
		{"neutral", 50, 0},
		{"mildly overbought", 65, -5},
		{"overbought", 80, -15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ind := IndicatorSnapshot{RSI14: floatPtr(tt.rsi)}
			res := Score(ind, nil, PriceContext{Close: 1000, Volume: 0}, DefaultScoringConfig())

			wantTech := 50 + tt.points
			if res.TechnicalScore != wantTech {
				t.Errorf("RSI=%v: expected technical score %v, got %v", tt.rsi, wantTech, res.TechnicalScore)
			}
			if tt.points != 0 && len(res.Reasons) != 1 {
				t.Fatalf("expected one reason, got %d", len(res.Reasons))
			}
			if tt.points != 0 && res.Reasons[0].Score != tt.points {
				t.Errorf("expected reason score %v, got %v", tt.points, res.Reasons[0].Score)
			}
		})
	}
}

func TestScorePerfectOrderBeatsSimpleCross(t *testing.T) {
	cross := Score(IndicatorSnapshot{
		SMA5:  floatPtr(110),
		SMA25: floatPtr(100),
	}, nil, PriceContext{Close: 1000}, DefaultScoringConfig())

	perfect := Score(IndicatorSnapshot{
		SMA5:  floatPtr(110),
		SMA25: floatPtr(100),
		SMA75: floatPtr(90),
	}, nil, PriceContext{Close: 1000}, DefaultScoringConfig())

	if cross.TechnicalScore != 60 {
		t.Errorf("golden-cross bias: expected 60, got %v", cross.TechnicalScore)
	}
	if perfect.TechnicalScore != 70 {
		t.Errorf("perfect order: expected 70, got %v", perfect.TechnicalScore)
	}
}

func TestScoreFundamentalClampsAt100(t *testing.T) {
	fund := &FundamentalSnapshot{
		PER:           floatPtr(8),   // +20
		PBR:           floatPtr(0.4), // +20
		DividendYield: floatPtr(5.5), // +20
		ROE:           floatPtr(25),  // +20
	}
	res := Score(IndicatorSnapshot{}, fund, PriceContext{Close: 1000}, DefaultScoringConfig())

	if res.FundamentalScore != 100 {
		t.Errorf("expected fundamental score clamped to 100, got %v", res.FundamentalScore)
	}
	// 0.6*50 + 0.4*100 with default weights.
	if res.Score != 70 {
		t.Errorf("expected combined score 70, got %v", res.Score)
	}
}

func TestScoreClampsAtZero(t *testing.T) {
	fund := &FundamentalSnapshot{
		PER:           floatPtr(-5),  // -15
		PBR:           floatPtr(-1),  // -15
		DividendYield: floatPtr(0),   // -10
		ROE:           floatPtr(-10), // -17.5
	}
	res := Score(IndicatorSnapshot{}, fund, PriceContext{Close: 1000}, DefaultScoringConfig())

	if res.FundamentalScore != 0 {
		t.Errorf("expected fundamental score clamped to 0, got %v", res.FundamentalScore)
	}
}

func TestScoreReasonsSortedByMagnitude(t *testing.T) {
	ind := IndicatorSnapshot{
		RSI14:       floatPtr(25),         // +15
		SMA5:        floatPtr(95),         // dead cross, -10
		SMA25:       floatPtr(100),        //
		VolumeSMA25: floatPtr(1000),       // volume ratio 2.2 -> +15
		BBUpper2:    floatPtr(1100),       //
		BBMiddle:    floatPtr(1000),       //
		BBLower2:    floatPtr(900),        // close below middle -> +5
	}
	res := Score(ind, nil, PriceContext{Close: 950, Volume: 2200}, DefaultScoringConfig())

	if len(res.Reasons) != 4 {
		t.Fatalf("expected 4 reasons, got %d: %+v", len(res.Reasons), res.Reasons)
	}
	for i := 1; i < len(res.Reasons); i++ {
		prev, cur := math.Abs(res.Reasons[i-1].Score), math.Abs(res.Reasons[i].Score)
		if prev < cur {
			t.Errorf("reasons not sorted by |score| desc: %v before %v", prev, cur)
		}
		if prev == cur && res.Reasons[i-1].Indicator > res.Reasons[i].Indicator {
			t.Errorf("tie not broken by indicator name: %s before %s",
				res.Reasons[i-1].Indicator, res.Reasons[i].Indicator)
		}
	}
	// The two +15 contributions tie, RSI sorts before Volume.
	if res.Reasons[0].Indicator != "RSI" || res.Reasons[1].Indicator != "Volume" {
		t.Errorf("expected RSI then Volume at the top, got %s then %s",
			res.Reasons[0].Indicator, res.Reasons[1].Indicator)
	}
}

func TestScoreRuleWeightZeroSilencesRule(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.Rules.RSI = 0

	ind := IndicatorSnapshot{RSI14: floatPtr(25)}
	res := Score(ind, nil, PriceContext{Close: 1000}, cfg)

	if res.TechnicalScore != 50 {
		t.Errorf("expected zero-weighted rule to contribute nothing, got %v", res.TechnicalScore)
	}
	if len(res.Reasons) != 0 {
		t.Errorf("expected no reasons from a silenced rule, got %+v", res.Reasons)
	}
}

func TestScoreMissingFundamentalsAreNeutral(t *testing.T) {
	// Disclosed PER only; the other fundamental rules stay silent.
	fund := &FundamentalSnapshot{PER: floatPtr(12)}
	res := Score(IndicatorSnapshot{}, fund, PriceContext{Close: 1000}, DefaultScoringConfig())

	if res.FundamentalScore != 60 {
		t.Errorf("expected fundamental score 60 (+10 for PER 12), got %v", res.FundamentalScore)
	}
}

func TestScoreRisingSeriesFlagsOverbought(t *testing.T) {
	// 60 strictly rising closes saturate the RSI at 100; scoring must flag
	// the overbought condition even while the trend rules stay bullish.
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 0.5*float64(i)
	}
	ind := ComputeIndicators(barsFromCloses(closes))
	last := closes[len(closes)-1]

	res := Score(ind, nil, PriceContext{Close: last, Volume: 1000}, DefaultScoringConfig())

	var rsiReason *SignalReason
	for i := range res.Reasons {
		if res.Reasons[i].Indicator == "RSI" {
			rsiReason = &res.Reasons[i]
		}
	}
	if rsiReason == nil {
		t.Fatal("expected an RSI reason on a saturated series")
	}
	if rsiReason.Score != -15 {
		t.Errorf("expected overbought RSI contribution -15, got %v", rsiReason.Score)
	}
}

func TestScoringConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ScoringConfig)
		wantErr bool
	}{
		{"defaults are valid", func(c *ScoringConfig) {}, false},
		{"negative weight", func(c *ScoringConfig) { c.TechnicalWeight = -0.1 }, true},
		{"both weights zero", func(c *ScoringConfig) {
			c.TechnicalWeight = 0
			c.FundamentalWeight = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultScoringConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeFundamentalsDerivesRatios(t *testing.T) {
	fund := &FundamentalSnapshot{
		EPS: floatPtr(100),
		BPS: floatPtr(500),
	}
	out := NormalizeFundamentals(fund, 1500)

	if out.PER == nil || *out.PER != 15 {
		t.Errorf("expected derived PER=15, got %v", out.PER)
	}
	if out.PBR == nil || *out.PBR != 3 {
		t.Errorf("expected derived PBR=3, got %v", out.PBR)
	}
	if fund.PER != nil {
		t.Error("input snapshot must not be mutated")
	}
}

func TestNormalizeFundamentalsDisclosedWins(t *testing.T) {
	fund := &FundamentalSnapshot{
		PER: floatPtr(22),
		EPS: floatPtr(100),
	}
	out := NormalizeFundamentals(fund, 1500)
	if *out.PER != 22 {
		t.Errorf("disclosed PER must win over derived, got %v", *out.PER)
	}
}
