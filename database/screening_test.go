package database

import (
	"strings"
	"testing"
)

func f64(v float64) *float64 { return &v }

func TestBuildScreeningFilters(t *testing.T) {
	tests := []struct {
		name      string
		criteria  ScreeningCriteria
		wantWhere []string
		wantArgs  int
	}{
		{
			name:     "no criteria",
			criteria: ScreeningCriteria{},
			wantArgs: 0,
		},
		{
			name:      "market only",
			criteria:  ScreeningCriteria{Market: "prime"},
			wantWhere: []string{"s.market = ?"},
			wantArgs:  1,
		},
		{
			name: "valuation band",
			criteria: ScreeningCriteria{
				PERMax: f64(15),
				PBRMax: f64(1),
			},
			wantWhere: []string{"f.per <= ?", "f.pbr <= ?"},
			wantArgs:  2,
		},
		{
			name: "oversold high-yield screen",
			criteria: ScreeningCriteria{
				RSIMax:           f64(30),
				DividendYieldMin: f64(3),
				MinScore:         f64(60),
			},
			wantWhere: []string{"i.rsi_14 <= ?", "f.dividend_yield >= ?", "sig.score >= ?"},
			wantArgs:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildScreeningFilters(tt.criteria)
			if len(args) != tt.wantArgs {
				t.Errorf("expected %d args, got %d", tt.wantArgs, len(args))
			}
			if tt.wantArgs == 0 && where != "" {
				t.Errorf("expected empty where clause, got %q", where)
			}
			for _, clause := range tt.wantWhere {
				if !strings.Contains(where, clause) {
					t.Errorf("where %q missing clause %q", where, clause)
				}
			}
		})
	}
}

func TestScreeningOrder(t *testing.T) {
	tests := []struct {
		name     string
		criteria ScreeningCriteria
		want     string
	}{
		{"default is score desc", ScreeningCriteria{}, "score DESC NULLS LAST, code ASC"},
		{"explicit asc", ScreeningCriteria{SortBy: "per", SortOrder: "asc"}, "per ASC NULLS LAST, code ASC"},
		{"rsi maps to its column", ScreeningCriteria{SortBy: "rsi"}, "rsi_14 DESC NULLS LAST, code ASC"},
		{"unknown column falls back to score", ScreeningCriteria{SortBy: "1; DROP TABLE stocks"}, "score DESC NULLS LAST, code ASC"},
		{"sort order is case-insensitive", ScreeningCriteria{SortBy: "close", SortOrder: "ASC"}, "close ASC NULLS LAST, code ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := screeningOrder(tt.criteria); got != tt.want {
				t.Errorf("screeningOrder() = %q, want %q", got, tt.want)
			}
		})
	}
}
