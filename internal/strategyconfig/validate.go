package strategyconfig

import (
	"fmt"
	"strings"

	"github.com/wonny/optacq/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cat *Catalog) error {
	// === Meta ===
	if cat.Meta.CatalogID == "" {
		return ValidationError{"meta.catalog_id", "required"}
	}

	// === Timeframes ===
	tf := cat.Timeframes
	if tf.HighConfidenceThreshold <= 0 || tf.HighConfidenceThreshold >= 1 {
		return ValidationError{"timeframes.high_confidence_threshold", "must be in (0, 1)"}
	}
	windows := []struct {
		field string
		w     Window
	}{
		{"timeframes.directional", tf.Directional},
		{"timeframes.volatility", tf.Volatility},
		{"timeframes.income", tf.Income},
		{"timeframes.leap", tf.LEAP},
		{"timeframes.default", tf.Default},
	}
	for _, w := range windows {
		if err := validateWindow(w.field, w.w); err != nil {
			return err
		}
	}
	if tf.LEAP.MinDTE < 365 {
		return ValidationError{"timeframes.leap.min_dte", "must be >= 365"}
	}

	// === Liquidity ===
	if err := validateGate("liquidity.regular", cat.Liquidity.Regular); err != nil {
		return err
	}
	if err := validateGate("liquidity.after_hours", cat.Liquidity.AfterHours); err != nil {
		return err
	}
	if cat.Liquidity.MaxStrikeDistancePct <= 0 {
		return ValidationError{"liquidity.max_strike_distance_pct", "must be > 0"}
	}

	// === Strategies ===
	seen := make(map[string]int, len(cat.Strategies))
	for i, s := range cat.Strategies {
		field := fmt.Sprintf("strategies[%d]", i)
		if strings.TrimSpace(s.Name) == "" {
			return ValidationError{field + ".name", "required"}
		}
		key := normalizeName(s.Name)
		if j, dup := seen[key]; dup {
			return ValidationError{field + ".name", fmt.Sprintf("duplicate of strategies[%d] (%s)", j, s.Name)}
		}
		seen[key] = i

		if !contracts.ParseStrategyType(s.Type).Known() {
			return ValidationError{field + ".type", fmt.Sprintf("unknown strategy type %q", s.Type)}
		}
		if _, err := ToRule(s.Rule); err != nil {
			return ValidationError{field + ".rule", err.Error()}
		}
	}

	return nil
}

// Warn returns recommendations (does not fail)
func Warn(cat *Catalog) []Warning {
	var warnings []Warning

	if cat.Liquidity.AfterHours.MinOpenInterest > cat.Liquidity.Regular.MinOpenInterest {
		warnings = append(warnings, Warning{
			Code:    "AFTER_HOURS_STRICTER",
			Message: "after_hours.min_open_interest is stricter than regular",
		})
	}
	if cat.Liquidity.AfterHours.MaxSpreadPct < cat.Liquidity.Regular.MaxSpreadPct {
		warnings = append(warnings, Warning{
			Code:    "AFTER_HOURS_STRICTER",
			Message: "after_hours.max_spread_pct is stricter than regular",
		})
	}

	// 목표 행사가가 최대 허용 거리 밖이면 해당 전략은 항상 No_Suitable_Strikes
	for _, s := range cat.Strategies {
		if reach := ruleReachPct(s.Rule); reach > cat.Liquidity.MaxStrikeDistancePct {
			warnings = append(warnings, Warning{
				Code:    "LEG_OUT_OF_REACH",
				Message: fmt.Sprintf("%s targets strikes %.1f%% from spot, beyond max_strike_distance_pct=%.1f", s.Name, reach, cat.Liquidity.MaxStrikeDistancePct),
			})
		}
	}

	return warnings
}

func validateWindow(field string, w Window) error {
	if w.MinDTE < 0 {
		return ValidationError{field + ".min_dte", "must be >= 0"}
	}
	if w.MinDTE > w.MaxDTE {
		return ValidationError{field, "min_dte must be <= max_dte"}
	}
	if w.Label == "" {
		return ValidationError{field + ".label", "required"}
	}
	return nil
}

func validateGate(field string, g Gate) error {
	if g.MinOpenInterest < 0 {
		return ValidationError{field + ".min_open_interest", "must be >= 0"}
	}
	if g.MaxSpreadPct <= 0 {
		return ValidationError{field + ".max_spread_pct", "must be > 0"}
	}
	return nil
}

// ruleReachPct is the furthest any single leg target sits from its own
// reference strike (spot or anchor), in % of spot
func ruleReachPct(r Rule) float64 {
	abs := func(v float64) float64 {
		if v < 0 {
			return -v
		}
		return v
	}
	switch r.Kind {
	case "single":
		return abs(r.MoneynessPct)
	case "strangle":
		return abs(r.OffsetPct)
	case "vertical":
		return max(abs(r.AnchorPct), abs(r.WidthPct))
	case "iron_condor":
		return max(abs(r.ShortOffsetPct), abs(r.WingWidthPct))
	}
	return 0
}
