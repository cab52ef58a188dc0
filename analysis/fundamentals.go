package analysis

// NormalizeFundamentals fills derivable ratios in a fundamental snapshot.
// Disclosed values always win; PER and PBR are only derived from EPS/BPS
// and the current close when the ratio itself is missing. The input is not
// mutated.
func NormalizeFundamentals(fund *FundamentalSnapshot, closePrice float64) *FundamentalSnapshot {
	if fund == nil {
		return nil
	}
	out := *fund

	if out.PER == nil && out.EPS != nil && *out.EPS != 0 && closePrice > 0 {
		out.PER = cloneFloat(closePrice / *out.EPS)
	}
	if out.PBR == nil && out.BPS != nil && *out.BPS > 0 && closePrice > 0 {
		out.PBR = cloneFloat(closePrice / *out.BPS)
	}

	return &out
}
