package analysis

import "fmt"

// ClassifierConfig holds the score thresholds that turn a combined score
// into a buy or sell signal. Scores strictly between the two thresholds
// produce no signal.
type ClassifierConfig struct {
	BuyThreshold  float64 `yaml:"buy_threshold"`
	SellThreshold float64 `yaml:"sell_threshold"`
}

// DefaultClassifierConfig returns the default buy ≥ 70 / sell ≤ 30 bands.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{BuyThreshold: 70, SellThreshold: 30}
}

// Validate rejects threshold pairs that overlap or leave the 0–100 range.
func (c ClassifierConfig) Validate() error {
	if c.BuyThreshold < 0 || c.BuyThreshold > 100 || c.SellThreshold < 0 || c.SellThreshold > 100 {
		return fmt.Errorf("signal thresholds must be within [0,100] (buy=%v sell=%v)",
			c.BuyThreshold, c.SellThreshold)
	}
	if c.SellThreshold >= c.BuyThreshold {
		return fmt.Errorf("sell threshold (%v) must be below buy threshold (%v)",
			c.SellThreshold, c.BuyThreshold)
	}
	return nil
}

// Classify maps a combined score to a signal type. The second return is
// false when the score falls in the neutral band and no signal is emitted.
func Classify(score float64, cfg ClassifierConfig) (SignalType, bool) {
	switch {
	case score >= cfg.BuyThreshold:
		return SignalBuy, true
	case score <= cfg.SellThreshold:
		return SignalSell, true
	default:
		return "", false
	}
}
