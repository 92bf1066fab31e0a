package strategyconfig

import "time"

// Catalog는 전략 이름 → 레그 규칙, 유형별 만기 구간, 유동성 기준의 전체 설정
type Catalog struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Timeframes Timeframes `yaml:"timeframes" json:"timeframes"`
	Liquidity  Liquidity  `yaml:"liquidity" json:"liquidity"`
	Strategies []Strategy `yaml:"strategies" json:"strategies"`
}

// Meta 메타 정보
type Meta struct {
	CatalogID string `yaml:"catalog_id" json:"catalog_id"`
	Version   string `yaml:"version" json:"version"`
}

// Timeframes 유형별 기본 DTE 구간
type Timeframes struct {
	HighConfidenceThreshold float64 `yaml:"high_confidence_threshold" json:"high_confidence_threshold"`
	Directional             Window  `yaml:"directional" json:"directional"`
	Volatility              Window  `yaml:"volatility" json:"volatility"`
	Income                  Window  `yaml:"income" json:"income"`
	LEAP                    Window  `yaml:"leap" json:"leap"`
	Default                 Window  `yaml:"default" json:"default"` // unknown types
}

type Window struct {
	MinDTE int    `yaml:"min_dte" json:"min_dte"`
	MaxDTE int    `yaml:"max_dte" json:"max_dte"`
	Label  string `yaml:"label" json:"label"`
}

// Liquidity 세션별 유동성 게이트
type Liquidity struct {
	Regular              Gate    `yaml:"regular" json:"regular"`
	AfterHours           Gate    `yaml:"after_hours" json:"after_hours"`
	MaxStrikeDistancePct float64 `yaml:"max_strike_distance_pct" json:"max_strike_distance_pct"`
}

type Gate struct {
	MinOpenInterest int64   `yaml:"min_open_interest" json:"min_open_interest"`
	MaxSpreadPct    float64 `yaml:"max_spread_pct" json:"max_spread_pct"`
}

// Strategy 하나의 전략 정의
type Strategy struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"` // Directional | Volatility | Income | LEAP
	Rule Rule   `yaml:"rule" json:"rule"`
}

// Rule is the flat YAML form of a leg rule; Kind selects which fields apply
type Rule struct {
	Kind           string  `yaml:"kind" json:"kind"` // single | straddle | strangle | vertical | iron_condor
	OptionType     string  `yaml:"option_type,omitempty" json:"option_type,omitempty"`
	Side           string  `yaml:"side,omitempty" json:"side,omitempty"`
	MoneynessPct   float64 `yaml:"moneyness_pct,omitempty" json:"moneyness_pct,omitempty"`
	OffsetPct      float64 `yaml:"offset_pct,omitempty" json:"offset_pct,omitempty"`
	AnchorPct      float64 `yaml:"anchor_pct,omitempty" json:"anchor_pct,omitempty"`
	WidthPct       float64 `yaml:"width_pct,omitempty" json:"width_pct,omitempty"`
	ShortOffsetPct float64 `yaml:"short_offset_pct,omitempty" json:"short_offset_pct,omitempty"`
	WingWidthPct   float64 `yaml:"wing_width_pct,omitempty" json:"wing_width_pct,omitempty"`
}

// CatalogSnapshot 카탈로그 스냅샷 (실행 재현성용)
type CatalogSnapshot struct {
	CatalogHash string    `json:"catalog_hash"`
	CatalogYAML string    `json:"catalog_yaml"`
	CatalogID   string    `json:"catalog_id"`
	Version     string    `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
}
