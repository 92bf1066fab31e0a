package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StrategyType is the taxonomy bucket that drives timeframe assignment
type StrategyType string

const (
	StrategyDirectional StrategyType = "Directional"
	StrategyVolatility  StrategyType = "Volatility"
	StrategyIncome      StrategyType = "Income"
	StrategyLEAP        StrategyType = "LEAP"

	// StrategyUnknown is never rejected; it receives the wide default window
	StrategyUnknown StrategyType = "Unknown"
)

// ParseStrategyType maps a free-form label to a StrategyType (case-insensitive).
// Unrecognized labels map to StrategyUnknown instead of failing.
func ParseStrategyType(s string) StrategyType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "directional":
		return StrategyDirectional
	case "volatility":
		return StrategyVolatility
	case "income":
		return StrategyIncome
	case "leap", "leaps":
		return StrategyLEAP
	default:
		return StrategyUnknown
	}
}

// UnmarshalJSON routes every label through ParseStrategyType, so "leap"
// decodes as LEAP and unrecognized labels as StrategyUnknown.
func (t *StrategyType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("strategy_type: %w", err)
	}
	*t = ParseStrategyType(s)
	return nil
}

// Known reports whether t is one of the four recognized categories
func (t StrategyType) Known() bool {
	switch t {
	case StrategyDirectional, StrategyVolatility, StrategyIncome, StrategyLEAP:
		return true
	}
	return false
}

// ErrInvalidRequest marks a malformed request (a caller bug, not a data condition)
var ErrInvalidRequest = errors.New("invalid request")

// StrategyTimeframeRequest is one (ticker, strategy) pair from the strategy generator
// ⭐ SSOT: 업스트림 → 엔진 입력 단위, 생성 후 변경 금지
type StrategyTimeframeRequest struct {
	Ticker          string       `json:"ticker"`
	StrategyName    string       `json:"strategy_name"`
	StrategyType    StrategyType `json:"strategy_type"`
	ConfidenceScore float64      `json:"confidence_score"`          // 0.0 ~ 1.0
	VolatilityRank  *float64     `json:"volatility_rank,omitempty"` // 0 ~ 100
}

// Validate reports malformed requests
func (r StrategyTimeframeRequest) Validate() error {
	if strings.TrimSpace(r.Ticker) == "" {
		return fmt.Errorf("%w: empty ticker", ErrInvalidRequest)
	}
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 1 {
		return fmt.Errorf("%w: confidence %.3f outside [0,1]", ErrInvalidRequest, r.ConfidenceScore)
	}
	if r.VolatilityRank != nil && (*r.VolatilityRank < 0 || *r.VolatilityRank > 100) {
		return fmt.Errorf("%w: volatility rank %.1f outside [0,100]", ErrInvalidRequest, *r.VolatilityRank)
	}
	return nil
}

// NormalizedTicker returns the upper-cased, trimmed ticker
func (r StrategyTimeframeRequest) NormalizedTicker() string {
	return strings.ToUpper(strings.TrimSpace(r.Ticker))
}
