package contracts

import "time"

// SelectionStatus is the mutually exclusive outcome of contract selection
type SelectionStatus string

const (
	SelectionNoExpirations     SelectionStatus = "No_Expirations_In_Window"
	SelectionLowLiquidity      SelectionStatus = "Low_Liquidity"
	SelectionNoSuitableStrikes SelectionStatus = "No_Suitable_Strikes"
	SelectionSuccess           SelectionStatus = "Success"
)

// GreeksSource flags where Greek values came from
type GreeksSource string

const (
	GreeksProvider GreeksSource = "provider"
	GreeksProxy    GreeksSource = "proxy"
)

// PriceSource flags how MidPrice was derived
type PriceSource string

const (
	PriceMid  PriceSource = "mid"
	PriceLast PriceSource = "last"
)

// LiquidityGrade is a qualitative bucket from open interest and spread width
type LiquidityGrade string

const (
	LiquidityExcellent  LiquidityGrade = "excellent"
	LiquidityGood       LiquidityGrade = "good"
	LiquidityAcceptable LiquidityGrade = "acceptable"
	LiquidityThin       LiquidityGrade = "thin"
	LiquidityIlliquid   LiquidityGrade = "illiquid"
)

// LegRole names a leg's position within its strategy
type LegRole string

const (
	LegLongCall  LegRole = "long_call"
	LegShortCall LegRole = "short_call"
	LegLongPut   LegRole = "long_put"
	LegShortPut  LegRole = "short_put"
)

// SelectedContract is one leg of a strategy's trade candidate
type SelectedContract struct {
	ContractSymbol  string          `json:"contract_symbol"`
	Ticker          string          `json:"ticker"`
	OptionType      OptionType      `json:"option_type"`
	LegRole         LegRole         `json:"leg_role"`
	Strike          float64         `json:"strike"`
	Expiration      time.Time       `json:"expiration"`
	ActualDTE       int             `json:"actual_dte"`
	MidPrice        float64         `json:"mid_price"`
	PriceSource     PriceSource     `json:"price_source"`
	Bid             float64         `json:"bid"`
	Ask             float64         `json:"ask"`
	SpreadPct       float64         `json:"spread_pct"`
	OpenInterest    int64           `json:"open_interest"`
	Volume          int64           `json:"volume"`
	Delta           float64         `json:"delta"`
	Gamma           float64         `json:"gamma"`
	Vega            float64         `json:"vega"`
	Theta           float64         `json:"theta"`
	GreeksSource    GreeksSource    `json:"greeks_source"`
	LiquidityGrade  LiquidityGrade  `json:"liquidity_grade"`
	SelectionStatus SelectionStatus `json:"selection_status"`
}
